// Package emotion turns journal text into a per-emotion score map.
//
// Raw scores come from a remote classifier reached through the inference
// client. A deterministic keyword heuristic is layered on top so that
// domain-specific distress language (deadlines, pressure, loneliness) is
// reflected even when the general-purpose model misses it.
package emotion

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/inference"
)

// MaxInputChars is the classifier input limit in characters.
const MaxInputChars = 1024

// Analysis is the scorer output for one text.
type Analysis struct {
	Scores   *ScoreMap
	Dominant Dominant
	// Failure is set when the classifier could not be used and the neutral
	// base map was substituted.
	Failure *inference.Failure
}

// Scorer computes emotion scores.
type Scorer struct {
	caller inference.Caller
	clamp  ClampPolicy
	logger *zap.Logger
}

// NewScorer creates a scorer backed by caller.
func NewScorer(caller inference.Caller, clamp ClampPolicy, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{caller: caller, clamp: clamp, logger: logger}
}

type labelScore struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

// Score classifies text. It never fails: empty input short-circuits to
// neutral without a network call, and a classifier failure degrades to the
// neutral base map before the keyword heuristic runs.
func (s *Scorer) Score(ctx context.Context, text string) Analysis {
	if strings.TrimSpace(text) == "" {
		return Analysis{Scores: Neutral(), Dominant: Dominant{Label: NeutralLabel, Intensity: 1.0}}
	}

	scores, failure := s.classify(ctx, Truncate(text, MaxInputChars))
	if failure != nil {
		s.logger.Warn("Emotion classification unavailable, using neutral base",
			zap.String("failure_kind", failure.Kind.String()),
			zap.Int("attempts", failure.Attempts),
			zap.Error(failure),
		)
		scores = Neutral()
	}

	ApplyKeywordBoost(scores, text, s.clamp)
	return Analysis{Scores: scores, Dominant: scores.Dominant(), Failure: failure}
}

func (s *Scorer) classify(ctx context.Context, input string) (*ScoreMap, *inference.Failure) {
	res := s.caller.Call(ctx, inference.EndpointClassification, inference.Request{Inputs: input})
	if !res.OK() {
		return nil, res.Failure
	}
	pairs, err := decodeLabelScores(res)
	if err != nil {
		return nil, err
	}
	scores := NewScoreMap()
	for _, p := range pairs {
		scores.Set(p.Label, *p.Score)
	}
	return scores, nil
}

// decodeLabelScores accepts both [{label,score}] and [[{label,score}]].
func decodeLabelScores(res inference.Result) ([]labelScore, *inference.Failure) {
	var flat []labelScore
	if err := res.Decode(inference.EndpointClassification, &flat); err != nil {
		var nested [][]labelScore
		if nerr := res.Decode(inference.EndpointClassification, &nested); nerr != nil || len(nested) == 0 {
			return nil, inference.Malformed(inference.EndpointClassification, res.Attempts, "classification body is not a label/score list")
		}
		flat = nested[0]
	}
	if len(flat) == 0 {
		return nil, inference.Malformed(inference.EndpointClassification, res.Attempts, "classification returned no labels")
	}
	for _, p := range flat {
		if p.Label == "" || p.Score == nil {
			return nil, inference.Malformed(inference.EndpointClassification, res.Attempts, "classification entry missing label or score")
		}
	}
	return flat, nil
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
