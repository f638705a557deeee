package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.ObserveUpdate("message", 20*time.Millisecond, nil)
	c.ObserveUpdate("message", time.Millisecond, errors.New("boom"))
	c.ObserveEvent("command", "start", "complete", time.Millisecond)
	c.ObserveEvent("text", "", "retry", time.Millisecond)
	c.ObserveReply("text", nil)
	c.ObserveReply("answer", errors.New("query is too old"))
	c.Skip("duplicate")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.updates.WithLabelValues("message", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.updates.WithLabelValues("message", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("text", "unknown", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replies.WithLabelValues("answer", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skipped.WithLabelValues("duplicate")))
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	c := New()
	c.ObserveReply("text", nil)

	healthy := Router(c, map[string]HealthCheck{"db": func(context.Context) error { return nil }})
	code, body := get(t, healthy, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `shopbot_replies_total{kind="text",status="ok"} 1`)

	code, body = get(t, healthy, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	sick := Router(c, map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("refused") }})
	code, body = get(t, sick, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "redis")
}

func TestServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", New(), nil)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
