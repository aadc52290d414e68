package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiewarden/internal/domain"
	"cookiewarden/internal/router"
)

type fakeMessages struct {
	got []router.Request
}

func (f *fakeMessages) Handle(_ context.Context, req router.Request) router.Response {
	f.got = append(f.got, req)
	if req.Type != router.TypeGetState {
		return router.Response{Success: false, Error: "unknown message type"}
	}
	s := domain.DefaultState()
	return router.Response{Success: true, State: &s}
}

type fakeState struct{}

func (fakeState) Snapshot() domain.ExtensionState {
	s := domain.DefaultState()
	s.BlockedCount = 3
	return s
}

type fakeRules struct {
	rules []domain.BlockRule
	err   error
}

func (f fakeRules) DynamicRules(context.Context) ([]domain.BlockRule, error) {
	return f.rules, f.err
}

func newTestServer(t *testing.T, secret string, rules fakeRules) (*Server, *fakeMessages) {
	t.Helper()

	msgs := &fakeMessages{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))

	return New(&Config{
		Addr:       "127.0.0.1:0",
		Messages:   msgs,
		State:      fakeState{},
		Rules:      rules,
		Gatherer:   reg,
		AuthSecret: secret,
	}), msgs
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMessageRoute(t *testing.T) {
	s, msgs := newTestServer(t, "", fakeRules{})

	rec := do(t, s.Handler(), http.MethodPost, "/message", `{"type":"GET_STATE"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp router.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.State)
	assert.True(t, resp.State.Active)
	require.Len(t, msgs.got, 1)

	rec = do(t, s.Handler(), http.MethodPost, "/message", `{"type":"NOPE"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = do(t, s.Handler(), http.MethodPost, "/message", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateAndRulesRoutes(t *testing.T) {
	rule := domain.BlockRule{ID: 1000, Priority: 1}
	s, _ := newTestServer(t, "", fakeRules{rules: []domain.BlockRule{rule}})

	rec := do(t, s.Handler(), http.MethodGet, "/state", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"blockedCount":3`)

	rec = do(t, s.Handler(), http.MethodGet, "/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.BlockRule
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 1000, got[0].ID)

	failing, _ := newTestServer(t, "", fakeRules{err: errors.New("engine down")})
	rec = do(t, failing.Handler(), http.MethodGet, "/rules", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	s, _ := newTestServer(t, "", fakeRules{})

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total")

	rec = do(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, "secret", fakeRules{})

	rec := do(t, s.Handler(), http.MethodOptions, "/message", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuth(t *testing.T) {
	const secret = "s3cret"
	s, _ := newTestServer(t, secret, fakeRules{})

	rec := do(t, s.Handler(), http.MethodGet, "/state", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := IssueToken([]byte(secret), "popup", time.Minute)
	require.NoError(t, err)
	rec = do(t, s.Handler(), http.MethodGet, "/state", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	forged, err := IssueToken([]byte("other"), "popup", time.Minute)
	require.NoError(t, err)
	rec = do(t, s.Handler(), http.MethodGet, "/state", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueToken([]byte(secret), "popup", -time.Minute)
	require.NoError(t, err)
	rec = do(t, s.Handler(), http.MethodGet, "/state", "", expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateToken(t *testing.T) {
	secret := []byte("k")

	token, err := IssueToken(secret, "device-1", time.Hour)
	require.NoError(t, err)

	sub, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "device-1", sub)

	noSubject, err := IssueToken(secret, "", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(secret, noSubject)
	assert.Error(t, err)
}

func TestSubjectFromContext(t *testing.T) {
	const secret = "s3cret"
	var seen string
	h := requireAuth([]byte(secret), http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFromContext(r.Context())
	}))

	token, err := IssueToken([]byte(secret), "ui", time.Minute)
	require.NoError(t, err)
	do(t, h, http.MethodGet, "/", "", token)
	assert.Equal(t, "ui", seen)
}

func TestMessageLogsSubject(t *testing.T) {
	var buf bytes.Buffer
	level := log.GetLevel()
	log.SetOutput(&buf)
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(level)
	})

	const secret = "s3cret"
	s, msgs := newTestServer(t, secret, fakeRules{})

	token, err := IssueToken([]byte(secret), "popup", time.Minute)
	require.NoError(t, err)
	rec := do(t, s.Handler(), http.MethodPost, "/message", `{"type":"GET_STATE"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, msgs.got, 1)

	assert.Contains(t, buf.String(), "Handling message")
	assert.Contains(t, buf.String(), "subject=popup")
}

func TestListenAndServeShutdown(t *testing.T) {
	s, _ := newTestServer(t, "", fakeRules{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
