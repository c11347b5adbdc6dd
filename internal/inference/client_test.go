package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type scriptedResponse struct {
	status int
	body   string
}

// scriptedServer replays responses in order and repeats the last one.
type scriptedServer struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     int
	lastAuth  string
	lastBody  Request
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	s.lastAuth = r.Header.Get("Authorization")
	_ = json.NewDecoder(r.Body).Decode(&s.lastBody)
	resp := s.responses[idx]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (s *scriptedServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, srv *httptest.Server, sl *recordingSleeper) *Client {
	t.Helper()
	cfg := Config{
		APIToken:          "hf_test",
		ClassificationURL: srv.URL + "/classify",
		GenerationURL:     srv.URL + "/generate",
		SummarizationURL:  srv.URL + "/summarize",
		MaxRetries:        3,
		InitialWait:       time.Second,
	}
	return NewClient(cfg, zaptest.NewLogger(t), WithHTTPDoer(srv.Client()), WithSleeper(sl.Sleep))
}

func TestCallSucceedsAfterLoading(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, `{"error":"Model is currently loading","estimated_time":20}`},
		{http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`},
		{http.StatusOK, `[{"label":"joy","score":0.8}]`},
	}}
	srv := httptest.NewServer(script)
	defer srv.Close()

	sl := &recordingSleeper{}
	c := newTestClient(t, srv, sl)

	res := c.Call(context.Background(), EndpointClassification, Request{Inputs: "hello"})
	require.True(t, res.OK(), "unexpected failure: %v", res.Failure)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.waits)
	assert.Equal(t, 3, script.Calls())
	assert.Equal(t, "Bearer hf_test", script.lastAuth)
	assert.Equal(t, "hello", script.lastBody.Inputs)
	assert.JSONEq(t, `[{"label":"joy","score":0.8}]`, string(res.Body))
}

func TestCallUnauthorizedIsNotRetried(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
	}}
	srv := httptest.NewServer(script)
	defer srv.Close()

	sl := &recordingSleeper{}
	c := newTestClient(t, srv, sl)

	res := c.Call(context.Background(), EndpointGeneration, Request{Inputs: "x"})
	require.False(t, res.OK())
	assert.Equal(t, KindAuth, res.Failure.Kind)
	assert.Equal(t, 1, script.Calls())
	assert.Empty(t, sl.waits)
	assert.True(t, errors.Is(res.Failure, ErrAuthorization))
	assert.Equal(t, http.StatusUnauthorized, res.Failure.StatusCode)
}

func TestCallExhaustsRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate limit reached"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"503 without loading", http.StatusServiceUnavailable, `{"error":"overloaded"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := &scriptedServer{responses: []scriptedResponse{{tt.status, tt.body}}}
			srv := httptest.NewServer(script)
			defer srv.Close()

			sl := &recordingSleeper{}
			c := newTestClient(t, srv, sl)

			res := c.Call(context.Background(), EndpointSummarization, Request{Inputs: "x"})
			require.False(t, res.OK())
			assert.Equal(t, KindTransient, res.Failure.Kind)
			assert.Equal(t, 3, res.Failure.Attempts)
			assert.Equal(t, tt.status, res.Failure.StatusCode)
			assert.Equal(t, 3, script.Calls())
			assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.waits)
		})
	}
}

func TestCallNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	sl := &recordingSleeper{}
	c := NewClient(Config{ClassificationURL: url, MaxRetries: 2, InitialWait: 10 * time.Millisecond},
		zaptest.NewLogger(t), WithSleeper(sl.Sleep))

	res := c.Call(context.Background(), EndpointClassification, Request{Inputs: "x"})
	require.False(t, res.OK())
	assert.Equal(t, KindTransient, res.Failure.Kind)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sl.waits)
}

func TestCallCanceledDuringBackoff(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, `{"error":"loading"}`},
	}}
	srv := httptest.NewServer(script)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(Config{ClassificationURL: srv.URL, InitialWait: time.Hour}, zaptest.NewLogger(t),
		WithHTTPDoer(srv.Client()))

	done := make(chan Result, 1)
	go func() { done <- c.Call(ctx, EndpointClassification, Request{Inputs: "x"}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		require.False(t, res.OK())
		assert.Equal(t, KindCanceled, res.Failure.Kind)
		assert.Equal(t, 1, script.Calls())
	case <-time.After(5 * time.Second):
		t.Fatal("backoff wait was not aborted by cancellation")
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Config{InitialWait: 500 * time.Millisecond}.WithDefaults()
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, time.Second, cfg.Backoff(2))
	assert.Equal(t, 2*time.Second, cfg.Backoff(3))
	assert.Equal(t, 4*time.Second, cfg.Backoff(4))
}

func TestBackoffSaturates(t *testing.T) {
	cfg := Config{InitialWait: time.Second}.WithDefaults()
	for _, n := range []int{35, 63, 64, 200} {
		assert.Equal(t, MaxBackoff, cfg.Backoff(n), "attempt %d", n)
	}
	assert.Equal(t, 8*time.Second, cfg.Backoff(4))
}

func TestResultDecode(t *testing.T) {
	ok := Result{Body: json.RawMessage(`{"a":1}`), Attempts: 1}
	var v struct{ A int }
	require.NoError(t, ok.Decode(EndpointGeneration, &v))
	assert.Equal(t, 1, v.A)

	bad := Result{Body: json.RawMessage(`not json`), Attempts: 1}
	err := bad.Decode(EndpointGeneration, &v)
	require.Error(t, err)
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, KindMalformed, f.Kind)
	assert.True(t, errors.Is(err, ErrMalformed))

	failed := Result{Failure: &Failure{Kind: KindTransient, Endpoint: EndpointGeneration}}
	require.True(t, errors.As(failed.Decode(EndpointGeneration, &v), &f))
	assert.Equal(t, KindTransient, f.Kind)
}
