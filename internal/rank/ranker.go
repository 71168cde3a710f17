package rank

import (
	"strings"
	"unicode"
)

// CentralityWeight is how much degree centrality pulls the final score
// toward well-connected patterns.
const CentralityWeight = 0.2

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"how": true, "i": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "to": true,
	"was": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "will": true, "with": true,
}

// Tokenize lowercases text and splits it into stop-word-free tokens on
// non-alphanumeric boundaries.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, field := range fields {
		if stopWords[field] {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// Relevance scores how well candidate text answers a query, in [0, 1].
// The score blends token overlap (the fraction of query tokens present in
// the candidate) with a bonus when the whole query appears as a substring.
// An empty or all-stop-word query scores 0 against everything.
func Relevance(query, candidate string) float64 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	candidateTokens := Tokenize(candidate)
	candidateSet := make(map[string]bool, len(candidateTokens))
	for _, token := range candidateTokens {
		candidateSet[token] = true
	}

	matched := 0
	for _, token := range queryTokens {
		if candidateSet[token] {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(queryTokens))

	bonus := 0.0
	if strings.Contains(strings.ToLower(candidate), strings.ToLower(strings.TrimSpace(query))) {
		bonus = 1.0
	}

	score := 0.7*overlap + 0.3*bonus
	return clamp01(score)
}

// BoostByCentrality blends a relevance score with a node's centrality:
// score*(1-w) + centrality*w. With centrality in [0, 1] the boosted score
// never drops below score*(1-w).
func BoostByCentrality(score, centrality float64) float64 {
	return clamp01(score*(1-CentralityWeight) + centrality*CentralityWeight)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
