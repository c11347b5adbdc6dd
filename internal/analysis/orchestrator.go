// Package analysis runs the full journal analysis for one request.
//
// Crisis detection runs first and synchronously so it is reported no matter
// what happens to the remote-backed components. Emotion scoring and
// summarization run concurrently; the activity suggestion and the insight
// are derived from the scored result. Every component below the risk
// detector degrades to a local fallback instead of failing the request.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mindsage/analyzer/internal/activity"
	"github.com/mindsage/analyzer/internal/emotion"
	"github.com/mindsage/analyzer/internal/inference"
	"github.com/mindsage/analyzer/internal/insight"
	"github.com/mindsage/analyzer/internal/metrics"
	"github.com/mindsage/analyzer/internal/risk"
	"github.com/mindsage/analyzer/internal/tracing"
)

// Component names used in Result.Degraded and metrics.
const (
	ComponentEmotion    = "emotion"
	ComponentSummarizer = "summarizer"
	ComponentInsight    = "insight"
	ComponentActivity   = "activity"
)

// kindPanic marks a component that panicked and was recovered.
const kindPanic = "panic"

// RiskDetector flags crisis language.
type RiskDetector interface {
	Detect(text string) bool
}

// EmotionScorer scores text.
type EmotionScorer interface {
	Score(ctx context.Context, text string) emotion.Analysis
}

// ActivityAdvisor suggests an activity.
type ActivityAdvisor interface {
	Suggest(label string, intensity float64) string
}

// InsightGenerator writes commentary.
type InsightGenerator interface {
	Generate(ctx context.Context, text string, dominant emotion.Dominant) (string, *inference.Failure)
	Fallback(dominant emotion.Dominant) string
}

// Summarizer condenses text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, *inference.Failure)
}

// Components wires the orchestrator.
type Components struct {
	Risk       RiskDetector
	Scorer     EmotionScorer
	Advisor    ActivityAdvisor
	Generator  InsightGenerator
	Summarizer Summarizer
}

// Result is the assembled analysis.
type Result struct {
	Summary            string            `json:"summary"`
	Emotions           *emotion.ScoreMap `json:"emotions"`
	DominantEmotion    string            `json:"dominant_emotion"`
	Intensity          float64           `json:"intensity"`
	ActivitySuggestion string            `json:"activity_suggestion"`
	SuicideRisk        bool              `json:"suicide_risk"`
	Insights           string            `json:"insights"`
	CrisisResources    string            `json:"crisis_resources,omitempty"`
	// Degraded lists "component:kind" for each component that fell back.
	Degraded []string `json:"degraded,omitempty"`
}

// Orchestrator sequences the analysis components.
type Orchestrator struct {
	c       Components
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an orchestrator. A zero timeout leaves the caller's deadline
// in charge.
func New(c Components, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{c: c, timeout: timeout, logger: logger}
}

// NewDefault builds the standard component set on top of one inference caller.
func NewDefault(caller inference.Caller, clamp emotion.ClampPolicy, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	advisor := activity.NewAdvisor()
	return New(Components{
		Risk:       risk.NewDetector(),
		Scorer:     emotion.NewScorer(caller, clamp, logger.Named("emotion")),
		Advisor:    advisor,
		Generator:  insight.NewGenerator(caller, advisor, logger.Named("insight")),
		Summarizer: insight.NewSummarizer(caller, logger.Named("summarizer")),
	}, timeout, logger)
}

type degradation struct {
	component string
	kind      string
}

// Analyze runs every component for text. It always returns a complete Result.
func (o *Orchestrator) Analyze(ctx context.Context, text string) Result {
	start := time.Now()
	defer func() { metrics.AnalysisDuration.Observe(time.Since(start).Seconds()) }()

	// No I/O: computed before anything that can block or be canceled.
	suicideRisk := o.c.Risk.Detect(text)
	if suicideRisk {
		metrics.CrisisFlags.Inc()
		o.logger.Warn("Crisis language detected in journal text")
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	ctx, span := tracing.StartSpan(ctx, "analysis.analyze")
	defer span.End()

	var (
		scored     emotion.Analysis
		summary    string
		scoreDeg   *degradation
		summaryDeg *degradation
	)

	// Components report failures as degradations, never as errors, so one
	// branch never cancels the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scored, scoreDeg = o.score(gctx, text)
		return nil
	})
	g.Go(func() error {
		summary, summaryDeg = o.summarize(gctx, text)
		return nil
	})
	_ = g.Wait()

	suggestion, activityDeg := o.suggest(scored.Dominant)
	insights, insightDeg := o.generate(ctx, text, scored.Dominant)

	res := Result{
		Summary:            summary,
		Emotions:           scored.Scores,
		DominantEmotion:    scored.Dominant.Label,
		Intensity:          scored.Dominant.Intensity,
		ActivitySuggestion: suggestion,
		SuicideRisk:        suicideRisk,
		Insights:           insights,
	}
	if suicideRisk {
		res.CrisisResources = risk.CrisisResources
	}
	for _, d := range []*degradation{scoreDeg, summaryDeg, activityDeg, insightDeg} {
		if d == nil {
			continue
		}
		metrics.RecordFallback(d.component, d.kind)
		res.Degraded = append(res.Degraded, d.component+":"+d.kind)
	}
	if len(res.Degraded) > 0 {
		o.logger.Info("Analysis completed with fallbacks",
			zap.Strings("degraded", res.Degraded),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return res
}

func fromFailure(component string, f *inference.Failure) *degradation {
	if f == nil {
		return nil
	}
	return &degradation{component: component, kind: f.Kind.String()}
}

func (o *Orchestrator) recovered(component string, r any) *degradation {
	o.logger.Error("Analysis component panicked",
		zap.String("component", component),
		zap.String("panic", fmt.Sprint(r)),
		zap.Stack("stack"),
	)
	return &degradation{component: component, kind: kindPanic}
}

func neutralAnalysis() emotion.Analysis {
	return emotion.Analysis{
		Scores:   emotion.Neutral(),
		Dominant: emotion.Dominant{Label: emotion.NeutralLabel, Intensity: 1.0},
	}
}

func (o *Orchestrator) score(ctx context.Context, text string) (a emotion.Analysis, d *degradation) {
	defer func() {
		if r := recover(); r != nil {
			a, d = neutralAnalysis(), o.recovered(ComponentEmotion, r)
		}
	}()
	a = o.c.Scorer.Score(ctx, text)
	if a.Scores == nil || a.Scores.Len() == 0 {
		return neutralAnalysis(), &degradation{component: ComponentEmotion, kind: inference.KindMalformed.String()}
	}
	return a, fromFailure(ComponentEmotion, a.Failure)
}

func (o *Orchestrator) summarize(ctx context.Context, text string) (s string, d *degradation) {
	defer func() {
		if r := recover(); r != nil {
			s, d = insight.FallbackSummary(text), o.recovered(ComponentSummarizer, r)
		}
	}()
	out, failure := o.c.Summarizer.Summarize(ctx, text)
	return out, fromFailure(ComponentSummarizer, failure)
}

func (o *Orchestrator) suggest(dominant emotion.Dominant) (s string, d *degradation) {
	defer func() {
		if r := recover(); r != nil {
			s, d = activity.Fallback, o.recovered(ComponentActivity, r)
		}
	}()
	return o.c.Advisor.Suggest(dominant.Label, dominant.Intensity), nil
}

func (o *Orchestrator) generate(ctx context.Context, text string, dominant emotion.Dominant) (s string, d *degradation) {
	defer func() {
		if r := recover(); r != nil {
			s, d = o.fallbackInsight(dominant), o.recovered(ComponentInsight, r)
		}
	}()
	out, failure := o.c.Generator.Generate(ctx, text, dominant)
	return out, fromFailure(ComponentInsight, failure)
}

// fallbackInsight survives a generator whose Fallback also panics.
func (o *Orchestrator) fallbackInsight(dominant emotion.Dominant) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("I notice you're feeling %s today. Consider trying: %s", dominant.Label, activity.Fallback)
		}
	}()
	return o.c.Generator.Fallback(dominant)
}
