package health

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by the journal store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseChecker checks store connectivity. Critical.
func NewDatabaseChecker(store Pinger) Checker {
	return NewCustomHealthChecker("database", true, store.Ping)
}

// NewRedisChecker checks the rate limiter backend. Not critical: the
// limiter fails open.
func NewRedisChecker(client redis.UniversalClient) Checker {
	return NewCustomHealthChecker("redis", false, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// NewInferenceCredentialChecker reports a missing provider token. Not
// critical: analysis degrades to local fallbacks.
func NewInferenceCredentialChecker(token string) Checker {
	return NewCustomHealthChecker("inference_credential", false, func(context.Context) error {
		if token == "" {
			return errors.New("no inference API token configured")
		}
		return nil
	})
}
