// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nerve/internal/core"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/health"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/motor"
)

func newTestServer(t *testing.T, cfg Config, queueCap int) (*Server, *core.Core) {
	t.Helper()
	c, err := core.New(core.Config{QueueCapacity: queueCap}, core.Deps{
		Motors: motor.NewSim(motor.DefaultSimConfig()),
		Store:  journal.NewMemoryStore(10),
	})
	require.NoError(t, err)
	return New(cfg, c), c
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, Config{}, 10)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz_ReportsComponents(t *testing.T) {
	hm := health.NewManager("test")
	s, c := newTestServer(t, Config{Health: hm}, 10)
	hm.RegisterChecker(health.NewArbitratorChecker(c.Arbitrator().Enabled))

	rec := do(t, s.Handler(), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp health.ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, health.StatusHealthy, resp.Checks["arbitrator"].Status)

	c.Arbitrator().Disable()
	rec = do(t, s.Handler(), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code, "a paused arbitrator is degraded, not unready")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusDegraded, resp.Status)
}

func TestPublish_Arbitration(t *testing.T) {
	s, c := newTestServer(t, Config{}, 10)
	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/events", PublishRequest{Event: "half_ahead"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp PublishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "HALF_AHEAD", resp.Event)
	assert.Equal(t, 100, resp.Priority)
	assert.Equal(t, "arbitration", resp.Path)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, c.Status().QueueSize)
}

func TestPublish_Broadcast(t *testing.T) {
	s, c := newTestServer(t, Config{}, 10)
	_, err := c.RegisterSubscriber("panel", []event.Kind{event.Button})
	require.NoError(t, err)

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/events", PublishRequest{Event: "BUTTON", Value: true, Path: "broadcast"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp PublishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"garbage-collector", "panel"}, resp.Pending)
	assert.Equal(t, 1, c.Status().BusInFlight)
}

func TestPublish_Errors(t *testing.T) {
	s, _ := newTestServer(t, Config{}, 1)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/events", PublishRequest{Event: "WARP"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/events", PublishRequest{Event: "STOP", Path: "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/events", map[string]any{"event": "STOP", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/events", PublishRequest{Event: "STOP"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/v1/events", PublishRequest{Event: "STOP"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "queue of one is full")
}

func TestListEvents_OrderedByPriority(t *testing.T) {
	s, _ := newTestServer(t, Config{}, 10)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []EventInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, event.Default().Len())
	for i := 1; i < len(infos); i++ {
		assert.LessOrEqual(t, infos[i-1].Priority, infos[i].Priority)
	}
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, Config{}, 10)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st core.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Nil(t, st.Current)
	assert.True(t, st.Arbitrating)
	assert.Equal(t, []string{"garbage-collector"}, st.Subscribers)
}

func TestJournal(t *testing.T) {
	s, c := newTestServer(t, Config{}, 10)
	require.NoError(t, c.Journal().Save(context.Background(), journal.Record{
		MessageID: "m1", Sequence: 1, Event: "BUTTON", Subscriber: "panel", SavedAt: time.Now(),
	}))

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/journal?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []journal.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "m1", recs[0].MessageID)

	rec = do(t, s.Handler(), http.MethodGet, "/api/v1/journal?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimit: 1}, 10)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/api/v1/status", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s.Handler(), http.MethodGet, "/api/v1/status", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/healthz", nil).Code, "health is not limited")
}
