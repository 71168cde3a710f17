//go:build go1.18

package rank

import (
	"testing"
)

// FuzzRelevance fuzzes the scoring blend for stability and range.
func FuzzRelevance(f *testing.F) {
	f.Add("retry backoff", "Retry with exponential backoff")
	f.Add("", "")
	f.Add("the of a", "anything")
	f.Add("x\x00y", "x\xffy")
	f.Add("ünïcode query", "ÜNÏCODE candidate text")
	f.Fuzz(func(t *testing.T, query, candidate string) {
		score := Relevance(query, candidate)
		// No panics, and the score stays in [0, 1] for any input pair.
		if score < 0 || score > 1 {
			t.Fatalf("score %v out of range for query %q candidate %q", score, query, candidate)
		}
		boosted := BoostByCentrality(score, 0.5)
		if boosted < 0 || boosted > 1 {
			t.Fatalf("boosted score %v out of range", boosted)
		}
	})
}
