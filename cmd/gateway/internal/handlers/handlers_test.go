package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mindsage/analyzer/internal/analysis"
	"github.com/mindsage/analyzer/internal/auth"
	"github.com/mindsage/analyzer/internal/emotion"
	"github.com/mindsage/analyzer/internal/health"
	"github.com/mindsage/analyzer/internal/inference"
	"github.com/mindsage/analyzer/internal/journal"
)

type fakeAnalyzer struct {
	texts []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, text string) analysis.Result {
	f.texts = append(f.texts, text)
	scores := emotion.NewScoreMap()
	scores.Set("stress", 0.8)
	return analysis.Result{
		Summary:            "summary of " + text,
		Emotions:           scores,
		DominantEmotion:    "stress",
		Intensity:          0.8,
		ActivitySuggestion: "breathe",
		SuicideRisk:        strings.Contains(text, "kill myself"),
		Insights:           "insight",
	}
}

type memStore struct {
	mu       sync.Mutex
	journals []journal.Entry
	moods    []journal.MoodEntry
	fail     error
}

func (m *memStore) InsertJournal(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.journals = append(m.journals, *e)
	return nil
}

func (m *memStore) ListJournals(_ context.Context, userID string) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := []journal.Entry{}
	for _, e := range m.journals {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) InsertMood(_ context.Context, e *journal.MoodEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.moods = append(m.moods, *e)
	return nil
}

func (m *memStore) ListMoods(_ context.Context, userID string) ([]journal.MoodEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := []journal.MoodEntry{}
	for _, e := range m.moods {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return m.fail }

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), &auth.UserContext{UserID: userID, TokenType: auth.TokenTypeJWT}))
}

func post(t *testing.T, h http.HandlerFunc, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if user != "" {
		req = asUser(req, user)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestAddJournal(t *testing.T) {
	store := &memStore{}
	an := &fakeAnalyzer{}
	h := NewJournalHandler(an, store, zaptest.NewLogger(t))

	rr := post(t, h.AddJournal, "user-1", `{"user_id":"user-1","content":"deadline pressure"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	assert.Equal(t, "Journal entry added", body["message"])
	assert.Equal(t, "stress", body["dominant_emotion"])
	assert.Equal(t, map[string]interface{}{"stress": 0.8}, body["emotions"])
	assert.Equal(t, false, body["suicide_risk"])
	assert.NotEmpty(t, body["entry_id"])
	assert.NotContains(t, body, "database_error")

	require.Len(t, store.journals, 1)
	assert.Equal(t, "user-1", store.journals[0].UserID)
	assert.Equal(t, "deadline pressure", store.journals[0].Content)
	assert.Equal(t, []string{"deadline pressure"}, an.texts)
}

func TestAddJournalLegacyFields(t *testing.T) {
	store := &memStore{}
	h := NewJournalHandler(&fakeAnalyzer{}, store, zaptest.NewLogger(t))

	rr := post(t, h.AddJournal, "user-1", `{"id":"user-1","text":"hello there"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.journals, 1)
	assert.Equal(t, "hello there", store.journals[0].Content)
}

func TestAddJournalDefaultsToCaller(t *testing.T) {
	store := &memStore{}
	h := NewJournalHandler(&fakeAnalyzer{}, store, zaptest.NewLogger(t))

	rr := post(t, h.AddJournal, "user-9", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-9", store.journals[0].UserID)
}

func TestAddJournalRejects(t *testing.T) {
	tests := []struct {
		name string
		user string
		body string
		code int
	}{
		{"bad json", "user-1", `{`, http.StatusBadRequest},
		{"missing content", "user-1", `{"user_id":"user-1"}`, http.StatusBadRequest},
		{"blank content", "user-1", `{"user_id":"user-1","content":"  "}`, http.StatusBadRequest},
		{"other user", "user-1", `{"user_id":"user-2","content":"x"}`, http.StatusForbidden},
		{"no caller", "", `{"user_id":"user-1","content":"x"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := &fakeAnalyzer{}
			h := NewJournalHandler(an, &memStore{}, zaptest.NewLogger(t))
			rr := post(t, h.AddJournal, tt.user, tt.body)
			assert.Equal(t, tt.code, rr.Code)
			assert.Contains(t, decode(t, rr), "error")
			assert.Empty(t, an.texts, "analysis must not run")
		})
	}
}

func TestAddJournalStoreFailureStillReturnsAnalysis(t *testing.T) {
	store := &memStore{fail: errors.New("disk full")}
	h := NewJournalHandler(&fakeAnalyzer{}, store, zaptest.NewLogger(t))

	rr := post(t, h.AddJournal, "user-1", `{"content":"I want to kill myself"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode(t, rr)
	assert.Equal(t, true, body["suicide_risk"])
	assert.NotEmpty(t, body["database_error"])
	assert.NotContains(t, body, "entry_id")
}

func TestAnalyze(t *testing.T) {
	an := &fakeAnalyzer{}
	store := &memStore{}
	h := NewJournalHandler(an, store, zaptest.NewLogger(t))

	rr := post(t, h.Analyze, "user-1", `{"text":""}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{""}, an.texts)
	assert.Empty(t, store.journals)

	rr = post(t, h.Analyze, "user-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type hangingCaller struct{}

func (hangingCaller) Call(ctx context.Context, endpoint inference.Endpoint, _ inference.Request) inference.Result {
	<-ctx.Done()
	return inference.Result{Failure: &inference.Failure{Kind: inference.KindCanceled, Endpoint: endpoint, Err: ctx.Err()}}
}

func TestAnalyzeCrisisSurvivesHangingProvider(t *testing.T) {
	orchestrator := analysis.NewDefault(hangingCaller{}, emotion.ClampNone, 150*time.Millisecond, zaptest.NewLogger(t))
	h := NewJournalHandler(orchestrator, &memStore{}, zaptest.NewLogger(t))

	srv := httptest.NewUnstartedServer(http.HandlerFunc(h.Analyze))
	srv.Config.WriteTimeout = time.Second
	srv.Start()
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL, "application/json",
		strings.NewReader(`{"text":"Some days I want to end my life and nobody answers"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body analysis.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.SuicideRisk)
	assert.NotEmpty(t, body.CrisisResources)
	assert.Contains(t, body.Degraded, "emotion:canceled")
}

func TestGetJournals(t *testing.T) {
	store := &memStore{journals: []journal.Entry{
		{UserID: "user-1", Content: "a"},
		{UserID: "user-2", Content: "b"},
		{UserID: "user-1", Content: "c"},
	}}
	h := NewJournalHandler(&fakeAnalyzer{}, store, zaptest.NewLogger(t))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /get-journals/{user_id}", h.GetJournals)

	req := asUser(httptest.NewRequest(http.MethodGet, "/get-journals/user-1", nil), "user-1")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp JournalListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Journals, 2)
	assert.Equal(t, "a", resp.Journals[0].Content)
	assert.Equal(t, "c", resp.Journals[1].Content)

	req = asUser(httptest.NewRequest(http.MethodGet, "/get-journals/user-2", nil), "user-1")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDevCallerMayNameAnyUser(t *testing.T) {
	store := &memStore{}
	h := NewJournalHandler(&fakeAnalyzer{}, store, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"alice","content":"hi"}`))
	req = req.WithContext(auth.WithUser(req.Context(), &auth.UserContext{UserID: auth.DevUserID, TokenType: auth.TokenTypeDev}))
	rr := httptest.NewRecorder()
	h.AddJournal(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", store.journals[0].UserID)
}

func TestAddMood(t *testing.T) {
	store := &memStore{}
	h := NewMoodHandler(store, zaptest.NewLogger(t))

	rr := post(t, h.AddMood, "user-1", `{"happiness":70,"anxiety":10,"energy":50,"stress":0,"activity":"yoga"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, store.moods, 1)
	assert.Equal(t, "user-1", store.moods[0].UserID)
	assert.Equal(t, 0.0, store.moods[0].Stress)

	rr = post(t, h.AddMood, "user-1", `{"happiness":70,"anxiety":10,"energy":50}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "stress")

	rr = post(t, h.AddMood, "user-1", `{"happiness":170,"anxiety":10,"energy":50,"stress":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	store.fail = errors.New("down")
	rr = post(t, h.AddMood, "user-1", `{"happiness":70,"anxiety":10,"energy":50,"stress":1}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetMoods(t *testing.T) {
	store := &memStore{moods: []journal.MoodEntry{{UserID: "user-1", Happiness: 10}, {UserID: "user-2"}}}
	h := NewMoodHandler(store, zaptest.NewLogger(t))

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/get-mood-data", nil), "user-1")
	rr := httptest.NewRecorder()
	h.GetMoods(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp MoodListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Moods, 1)
	assert.Equal(t, 10.0, resp.Moods[0].Happiness)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/get-mood-data?user_id=user-2", nil), "user-1")
	rr = httptest.NewRecorder()
	h.GetMoods(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHealth(t *testing.T) {
	store := &memStore{}
	checks := health.NewManager(time.Second, zaptest.NewLogger(t), health.NewDatabaseChecker(store))
	h := NewHealthHandler(checks, zaptest.NewLogger(t))

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode(t, rr)["status"])

	rr = httptest.NewRecorder()
	h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"database": "healthy"}, decode(t, rr)["checks"])

	store.fail = errors.New("no db")
	rr = httptest.NewRecorder()
	h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "not ready", decode(t, rr)["status"])
}
