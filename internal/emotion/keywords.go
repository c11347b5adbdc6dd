package emotion

import (
	"math"
	"strings"
)

const (
	keywordStep     = 0.1
	keywordMaxBoost = 0.3
	// keywordBase is assigned to a category the model did not report.
	keywordBase = 0.6
)

// ClampPolicy decides whether boosted scores are capped.
type ClampPolicy int

const (
	// ClampNone leaves boosted scores unbounded.
	ClampNone ClampPolicy = iota
	// ClampUnit caps boosted scores at 1.0.
	ClampUnit
)

type category struct {
	label    string
	keywords []string
}

// categories is evaluated in this order; new labels are appended to the
// score map in the same order.
var categories = []category{
	{"stress", []string{"stress", "overwhelmed", "pressure", "deadline", "too much", "can't handle", "stressed"}},
	{"sadness", []string{"sad", "unhappy", "depressed", "down", "blue", "miserable", "lonely", "grief"}},
	{"anger", []string{"angry", "furious", "mad", "irritated", "annoyed", "frustrated", "rage"}},
	{"fear", []string{"afraid", "scared", "terrified", "frightened", "fear", "panic"}},
	{"joy", []string{"happy", "joy", "excited", "grateful", "glad", "delighted", "cheerful"}},
	{"anxious", []string{"anxious", "worried", "nervous", "uneasy", "restless", "anxiety"}},
}

// KeywordMatches returns, per category label, the distinct keywords found in
// the lowercased text. Categories without matches are omitted.
func KeywordMatches(text string) map[string][]string {
	lower := strings.ToLower(text)
	out := make(map[string][]string)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				out[c.label] = append(out[c.label], kw)
			}
		}
	}
	return out
}

// keywordBoost is min(0.1*n, 0.3).
func keywordBoost(n int) float64 {
	return math.Min(keywordStep*float64(n), keywordMaxBoost)
}

// ApplyKeywordBoost adds the keyword heuristic to scores in place. A reported
// category gains the boost; a missing one is set to 0.6 plus the boost.
func ApplyKeywordBoost(scores *ScoreMap, text string, policy ClampPolicy) {
	matches := KeywordMatches(text)
	for _, c := range categories {
		n := len(matches[c.label])
		if n == 0 {
			continue
		}
		boost := keywordBoost(n)
		v, ok := scores.Get(c.label)
		if ok {
			v += boost
		} else {
			v = keywordBase + boost
		}
		if policy == ClampUnit && v > 1.0 {
			v = 1.0
		}
		scores.Set(c.label, v)
	}
}
