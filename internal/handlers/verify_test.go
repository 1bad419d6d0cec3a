package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantchat/gatekeeper/internal/delivery"
	"github.com/verdantchat/gatekeeper/internal/handlers"
	"github.com/verdantchat/gatekeeper/internal/models"
	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/services"
	"github.com/verdantchat/gatekeeper/internal/transport"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// Collaborator mocks for wiring a quiz service under the handlers.

type stubRoleStore struct{ roles map[string][]string }

func (s *stubRoleStore) Roles(ctx context.Context, userID string) ([]string, error) {
	return s.roles[userID], nil
}
func (s *stubRoleStore) AddRole(ctx context.Context, userID, role string) error    { return nil }
func (s *stubRoleStore) RemoveRole(ctx context.Context, userID, role string) error { return nil }

type stubLedger struct{ counts map[string]int }

func (s *stubLedger) CanAttempt(userID string) bool       { return s.counts[userID] < 4 }
func (s *stubLedger) RecordAttempt(userID string) error   { s.counts[userID]++; return nil }
func (s *stubLedger) RemainingAttempts(userID string) int { return 4 - s.counts[userID] }

type stubSender struct{}

func (stubSender) Send(ctx context.Context, ch transport.Channel, content string) bool { return true }
func (stubSender) OpenDirectChannel(ctx context.Context, userID string) (transport.Channel, error) {
	return transport.Channel{ID: "dm-" + userID}, nil
}

type stubQuestions struct{}

func (stubQuestions) Pick() []models.Question {
	return []models.Question{{
		Text: "Only question?",
		Options: map[string]models.Option{
			"A": {Text: "Yes", Points: 40}, "B": {Text: "No", Points: 0},
			"C": {Text: "Maybe", Points: 0}, "D": {Text: "Pass", Points: 0},
		},
	}}
}

type handlerFixture struct {
	verify *handlers.VerificationHandler
	gate   *ratelimit.CooldownGate
	router *delivery.ReplyRouter
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	logger := newTestLogger()
	roles := &stubRoleStore{roles: map[string][]string{"user-1": {"unverified"}}}
	ledger := &stubLedger{counts: make(map[string]int)}
	gate := ratelimit.NewCooldownGate()
	failures := ratelimit.NewFailureTracker()
	router := delivery.NewReplyRouter()

	admission := services.NewAdmissionController(ledger, roles, services.DefaultAdmissionConfig(), logger)
	svc := services.NewQuizService(
		admission, stubSender{}, router, ledger, &noopTranscripts{}, roles,
		stubQuestions{}, failures, services.DefaultQuizConfig(), logger)
	svc.SetSleeper(func(ctx context.Context, d time.Duration) error { return nil })

	return &handlerFixture{
		verify: handlers.NewVerificationHandler(svc, gate, 10*time.Second, logger),
		gate:   gate,
		router: router,
	}
}

type noopTranscripts struct{}

func (noopTranscripts) Append(username string, attempt models.TranscriptAttempt) error { return nil }

func postVerify(h *handlers.VerificationHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Start(rec, req)
	return rec
}

const validStart = `{"user_id":"user-1","username":"comrade#1234","channel_id":"welcome"}`

func TestVerify_StartAccepted(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postVerify(f.verify, validStart)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp handlers.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Message, "private messages")
}

func TestVerify_InvalidBody(t *testing.T) {
	f := newHandlerFixture(t)

	assert.Equal(t, http.StatusBadRequest, postVerify(f.verify, `{nope`).Code)
	assert.Equal(t, http.StatusBadRequest, postVerify(f.verify, `{"user_id":"user-1"}`).Code)
}

func TestVerify_GlobalCooldownReturns503(t *testing.T) {
	f := newHandlerFixture(t)
	f.gate.Trip(15 * time.Minute)

	rec := postVerify(f.verify, validStart)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "cooling down")
}

func TestVerify_BurstThrottle(t *testing.T) {
	f := newHandlerFixture(t)

	first := postVerify(f.verify, validStart)
	require.Equal(t, http.StatusAccepted, first.Code)

	// A different user inside the burst window is still refused
	second := postVerify(f.verify, `{"user_id":"user-2","username":"other","channel_id":"welcome"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "wait a few seconds")
}

func TestVerify_IneligibleUserGets403(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postVerify(f.verify, `{"user_id":"stranger","username":"s","channel_id":"welcome"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not permitted")
}

func TestReplies_DeliveredFlag(t *testing.T) {
	f := newHandlerFixture(t)
	h := handlers.NewReplyHandler(f.router, newTestLogger())

	// Nobody waiting
	req := httptest.NewRequest(http.MethodPost, "/v1/replies",
		strings.NewReader(`{"user_id":"user-1","channel_id":"dm-user-1","content":"A"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"delivered":false}`, rec.Body.String())

	// A session is waiting
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.router.Await(context.Background(), "user-1", "dm-user-1", time.Second)
	}()

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodPost, "/v1/replies",
			strings.NewReader(`{"user_id":"user-1","channel_id":"dm-user-1","content":"A"}`))
		rec := httptest.NewRecorder()
		h.Post(rec, req)
		return strings.Contains(rec.Body.String(), `"delivered":true`)
	}, time.Second, 5*time.Millisecond)
	<-done
}

func TestStatus_ReportsRuntimeState(t *testing.T) {
	logger := newTestLogger()
	roles := &stubRoleStore{roles: map[string][]string{"user-1": {"unverified"}}}
	ledger := &stubLedger{counts: make(map[string]int)}
	gate := ratelimit.NewCooldownGate()
	failures := ratelimit.NewFailureTracker()

	admission := services.NewAdmissionController(ledger, roles, services.DefaultAdmissionConfig(), logger)
	require.NoError(t, admission.Admit(context.Background(), "user-1"))
	gate.Trip(15 * time.Minute)
	failures.RecordFailure()

	h := handlers.NewStatusHandler(admission, gate, failures, 5*time.Minute)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ActiveSessions)
	assert.True(t, resp.CooldownActive)
	assert.InDelta(t, 900, resp.CooldownRemainingSeconds, 1)
	assert.Equal(t, 1, resp.RecentSendFailures)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
