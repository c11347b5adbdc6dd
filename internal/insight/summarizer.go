package insight

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/emotion"
	"github.com/mindsage/analyzer/internal/inference"
)

const (
	// MinSummaryChars is the length below which text is returned as is.
	MinSummaryChars = 50

	summaryInputChars = 1024
	summaryMaxLength  = 100
	summaryMinLength  = 30
	fallbackWords     = 20
	fallbackChars     = 100
	ellipsis          = "..."
)

// Summarizer condenses journal entries.
type Summarizer struct {
	caller inference.Caller
	logger *zap.Logger
}

// NewSummarizer creates a summarizer backed by caller.
func NewSummarizer(caller inference.Caller, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{caller: caller, logger: logger}
}

// Summarize returns a summary of text. Short text is returned unchanged
// without a remote call. The Failure is non-nil when the local fallback
// was used.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, *inference.Failure) {
	if utf8.RuneCountInString(text) < MinSummaryChars {
		return text, nil
	}

	res := s.caller.Call(ctx, inference.EndpointSummarization, inference.Request{
		Inputs: emotion.Truncate(text, summaryInputChars),
		Parameters: map[string]any{
			"max_length": summaryMaxLength,
			"min_length": summaryMinLength,
			"do_sample":  false,
		},
	})
	out, failure := parseSummary(res)
	if failure != nil {
		s.logger.Warn("Summarization unavailable, using extract",
			zap.String("failure_kind", failure.Kind.String()),
			zap.Error(failure),
		)
		return FallbackSummary(text), failure
	}
	return out, nil
}

// FallbackSummary is the first 20 words plus an ellipsis, or the first 100
// characters plus an ellipsis when word splitting yields nothing usable.
func FallbackSummary(text string) string {
	words := strings.Fields(text)
	if len(words) > 0 {
		if len(words) > fallbackWords {
			words = words[:fallbackWords]
		}
		return strings.Join(words, " ") + ellipsis
	}
	return emotion.Truncate(text, fallbackChars) + ellipsis
}

type summary struct {
	SummaryText *string `json:"summary_text"`
}

func parseSummary(res inference.Result) (string, *inference.Failure) {
	if !res.OK() {
		return "", res.Failure
	}
	var text *string
	var list []summary
	if err := json.Unmarshal(res.Body, &list); err == nil {
		if len(list) > 0 {
			text = list[0].SummaryText
		}
	} else {
		var single summary
		if err := json.Unmarshal(res.Body, &single); err == nil {
			text = single.SummaryText
		}
	}
	if text == nil || strings.TrimSpace(*text) == "" {
		return "", inference.Malformed(inference.EndpointSummarization, res.Attempts, "summarization body has no summary_text")
	}
	return strings.TrimSpace(*text), nil
}
