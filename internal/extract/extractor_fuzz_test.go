//go:build go1.18

package extract

import (
	"testing"
)

// FuzzExtract fuzzes vocabulary matching over arbitrary input for stability.
func FuzzExtract(f *testing.F) {
	f.Add("Redis and PostgreSQL")
	f.Add("")
	f.Add("gogogo Go go.")
	f.Add("ReactReact React\x00Redis")
	f.Add("C++ in Göogle docs")
	e := NewVocabularyExtractor(DefaultVocabulary())
	f.Fuzz(func(t *testing.T, text string) {
		found := e.Extract(text)
		// No panics, never nil, always sorted and deduplicated.
		if found == nil {
			t.Fatal("Extract must never return nil")
		}
		for i := 1; i < len(found); i++ {
			if found[i-1] >= found[i] {
				t.Fatalf("results not sorted/deduplicated: %v", found)
			}
		}
	})
}
