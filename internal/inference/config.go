package inference

import (
	"fmt"
	"time"
)

const (
	DefaultMaxRetries  = 3
	DefaultInitialWait = time.Second
	DefaultTimeout     = 30 * time.Second

	// MaxRetriesLimit bounds max_retries.
	MaxRetriesLimit = 10

	// MaxBackoff caps a single wait.
	MaxBackoff = 5 * time.Minute

	DefaultClassificationURL = "https://api-inference.huggingface.co/models/j-hartmann/emotion-english-distilroberta-base"
	DefaultGenerationURL     = "https://api-inference.huggingface.co/models/google/flan-t5-base"
	DefaultSummarizationURL  = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"
)

// Config controls the inference client. It replaces any process-wide
// client or credential: every Client owns its own copy.
type Config struct {
	APIToken          string        `mapstructure:"api_token"`
	ClassificationURL string        `mapstructure:"classification_url"`
	GenerationURL     string        `mapstructure:"generation_url"`
	SummarizationURL  string        `mapstructure:"summarization_url"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialWait       time.Duration `mapstructure:"initial_wait"`
	Timeout           time.Duration `mapstructure:"timeout"`
	// RPS paces outbound calls per client. Zero disables pacing.
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxRetries > MaxRetriesLimit {
		c.MaxRetries = MaxRetriesLimit
	}
	if c.InitialWait <= 0 {
		c.InitialWait = DefaultInitialWait
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ClassificationURL == "" {
		c.ClassificationURL = DefaultClassificationURL
	}
	if c.GenerationURL == "" {
		c.GenerationURL = DefaultGenerationURL
	}
	if c.SummarizationURL == "" {
		c.SummarizationURL = DefaultSummarizationURL
	}
	if c.RPS > 0 && c.Burst <= 0 {
		c.Burst = 1
	}
	return c
}

// URL returns the configured URL for an endpoint.
func (c Config) URL(e Endpoint) (string, error) {
	switch e {
	case EndpointClassification:
		return c.ClassificationURL, nil
	case EndpointGeneration:
		return c.GenerationURL, nil
	case EndpointSummarization:
		return c.SummarizationURL, nil
	}
	return "", fmt.Errorf("unknown inference endpoint %q", e)
}

// Backoff returns the wait before retry n (1-based): InitialWait * 2^(n-1),
// saturating at MaxBackoff.
func (c Config) Backoff(n int) time.Duration {
	d := c.InitialWait
	for i := 1; i < n; i++ {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}
