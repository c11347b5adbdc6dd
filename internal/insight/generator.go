// Package insight produces the free-text parts of an analysis: a short
// empathetic commentary and a summary of the entry. Both call a remote text
// model and fall back to deterministic local text when that model is
// unavailable.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/activity"
	"github.com/mindsage/analyzer/internal/emotion"
	"github.com/mindsage/analyzer/internal/inference"
)

const (
	excerptChars        = 400
	generationMaxTokens = 120
)

// Generator writes insight commentary.
type Generator struct {
	caller  inference.Caller
	advisor activity.Advisor
	logger  *zap.Logger
}

// NewGenerator creates a generator. The advisor drives the fallback text.
func NewGenerator(caller inference.Caller, advisor activity.Advisor, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{caller: caller, advisor: advisor, logger: logger}
}

// Generate returns display text for text given its dominant emotion. The
// returned Failure is non-nil when the fallback template was used.
func (g *Generator) Generate(ctx context.Context, text string, dominant emotion.Dominant) (string, *inference.Failure) {
	prompt := buildPrompt(text, dominant)

	res := g.caller.Call(ctx, inference.EndpointGeneration, inference.Request{
		Inputs: prompt,
		Parameters: map[string]any{
			"max_new_tokens":   generationMaxTokens,
			"return_full_text": false,
		},
	})
	out, failure := parseGenerated(res)
	if failure != nil {
		g.logger.Warn("Insight generation unavailable, using template",
			zap.String("dominant_emotion", dominant.Label),
			zap.String("failure_kind", failure.Kind.String()),
			zap.Error(failure),
		)
		return g.Fallback(dominant), failure
	}
	return out, nil
}

// Fallback is the deterministic insight used when generation fails.
func (g *Generator) Fallback(dominant emotion.Dominant) string {
	return fmt.Sprintf("I notice you're feeling %s today. Consider trying: %s",
		dominant.Label, g.advisor.Suggest(dominant.Label, dominant.Intensity))
}

func buildPrompt(text string, dominant emotion.Dominant) string {
	var b strings.Builder
	b.WriteString("You are a supportive journaling companion. ")
	b.WriteString("Read the journal excerpt below and reply with two or three warm, empathetic sentences ")
	b.WriteString("followed by one practical suggestion.\n\n")
	fmt.Fprintf(&b, "Journal excerpt: %q\n", strings.TrimSpace(emotion.Truncate(text, excerptChars)))
	fmt.Fprintf(&b, "Dominant emotion: %s (intensity %.2f)\n", dominant.Label, dominant.Intensity)
	b.WriteString("Response:")
	return b.String()
}

type generated struct {
	GeneratedText *string `json:"generated_text"`
}

// parseGenerated accepts [{generated_text}] or a bare {generated_text}.
func parseGenerated(res inference.Result) (string, *inference.Failure) {
	if !res.OK() {
		return "", res.Failure
	}
	var text *string
	var list []generated
	if err := json.Unmarshal(res.Body, &list); err == nil {
		if len(list) > 0 {
			text = list[0].GeneratedText
		}
	} else {
		var single generated
		if err := json.Unmarshal(res.Body, &single); err == nil {
			text = single.GeneratedText
		}
	}
	if text == nil || strings.TrimSpace(*text) == "" {
		return "", inference.Malformed(inference.EndpointGeneration, res.Attempts, "generation body has no generated_text")
	}
	return strings.TrimSpace(*text), nil
}
