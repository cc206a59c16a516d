// Package match scores a free-text query against a candidate string. It is
// the relevance policy used to rank backend task names during search.
package match

import (
	"fmt"
	"strings"
	"unicode"
)

// coverageThreshold is the fraction of significant query tokens that must
// appear in the candidate before it counts as a match.
const coverageThreshold = 0.6

// minTokenLength filters out noise tokens such as "a" or "#".
const minTokenLength = 2

// containmentBonus is added to the score when the candidate contains the
// whole query as a substring.
const containmentBonus = 1.0

// Result is the outcome of scoring one candidate against a query.
type Result struct {
	// IsMatch is true when token coverage meets the threshold.
	IsMatch bool
	// Score ranks candidates; higher is more relevant.
	Score float64
	// Reason explains the decision for logs and result metadata.
	Reason string
}

// Tokenize lowercases s, splits on non-alphanumeric separators and drops
// tokens shorter than two characters.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, tok := range fields {
		if len(tok) < minTokenLength {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Match scores candidate against query. Coverage is the fraction of
// significant query tokens found (by substring containment in either
// direction) among the candidate's tokens. A candidate matches when
// coverage reaches the threshold and at least one token matched.
func Match(candidate, query string) Result {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return Result{Reason: "no significant query tokens"}
	}
	candidateTokens := Tokenize(candidate)

	matched := 0
	for _, qt := range queryTokens {
		if containsToken(candidateTokens, qt) {
			matched++
		}
	}
	coverage := float64(matched) / float64(len(queryTokens))
	score := coverage

	wholeQuery := strings.TrimSpace(strings.ToLower(query))
	contained := wholeQuery != "" && strings.Contains(strings.ToLower(candidate), wholeQuery)
	if contained {
		score += containmentBonus
	}

	if matched == 0 || coverage < coverageThreshold {
		return Result{
			Score:  score,
			Reason: fmt.Sprintf("matched %d/%d query tokens", matched, len(queryTokens)),
		}
	}
	reason := fmt.Sprintf("matched %d/%d query tokens", matched, len(queryTokens))
	if contained {
		reason = "contains full query"
	}
	return Result{IsMatch: true, Score: score, Reason: reason}
}

func containsToken(candidateTokens []string, queryToken string) bool {
	for _, ct := range candidateTokens {
		if strings.Contains(ct, queryToken) || strings.Contains(queryToken, ct) {
			return true
		}
	}
	return false
}
