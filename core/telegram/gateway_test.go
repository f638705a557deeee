package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	method string
	params map[string]any
}

func newTestGateway(t *testing.T, body string) (*Gateway, func() []apiCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&params)
		mu.Lock()
		calls = append(calls, apiCall{method: r.URL.Path[strings.LastIndexByte(r.URL.Path, '/')+1:], params: params})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	gw, err := NewGateway(GatewayOptions{Token: "1:test", APIURL: srv.URL, LongPoll: 3 * time.Second, Offline: true})
	require.NoError(t, err)
	return gw, func() []apiCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]apiCall(nil), calls...)
	}
}

func TestGatewayUpdatesLongPollsFromOffset(t *testing.T) {
	gw, calls := newTestGateway(t, `{"ok":true,"result":[{"update_id":12,"message":{"message_id":1,"text":"hi"}}]}`)

	updates, err := gw.Updates(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 12, updates[0].ID)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "getUpdates", got[0].method)
	assert.EqualValues(t, 12, got[0].params["offset"])
	assert.EqualValues(t, 3, got[0].params["timeout"])
}

func TestGatewayCommitConfirmsWithoutWaiting(t *testing.T) {
	gw, calls := newTestGateway(t, `{"ok":true,"result":[]}`)

	require.NoError(t, gw.Commit(context.Background(), 21))

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "getUpdates", got[0].method)
	assert.EqualValues(t, 21, got[0].params["offset"])
	assert.EqualValues(t, 0, got[0].params["timeout"])
	assert.EqualValues(t, 1, got[0].params["limit"])
}
