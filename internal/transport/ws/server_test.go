package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitpulse/internal/broadcast"
	"recruitpulse/internal/hiring"
	"recruitpulse/internal/storage"
	logx "recruitpulse/pkg/logx"
)

type countingSource struct{ n atomic.Int64 }

func (c *countingSource) ComputeSnapshot() hiring.Payload {
	v := c.n.Add(1)
	return hiring.Payload{Datasets: map[string][]hiring.Record{
		hiring.KeyTechStack: {{{Key: "Name", Value: "Go"}, {Key: "Count", Value: v}}},
	}}
}

type inFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func setup(t *testing.T, cfg Config, opts ...Option) (*httptest.Server, *broadcast.Service, *countingSource) {
	t.Helper()
	src := &countingSource{}
	b := broadcast.New(broadcast.Config{}, src, logx.Nop())
	b.Start(context.Background())
	srv := New(cfg, b, src, logx.Nop(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
		ts.Close()
		b.Stop(ctx)
	})
	return ts, b, src
}

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) inFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f inFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestConnectReceivesSnapshot(t *testing.T) {
	t.Parallel()
	ts, _, _ := setup(t, Config{})
	conn := dial(t, ts, nil)

	f := readFrame(t, conn)
	assert.Equal(t, broadcast.EventDataUpdated, f.Event)
	assert.JSONEq(t, `{
		"individualPerformance": [],
		"dateWisePerformance": [],
		"weeklyPerformance": [],
		"interviewStatus": [],
		"techStack": [{"Name": "Go", "Count": 1}],
		"monthlyPerformance": []
	}`, string(f.Data))
}

func TestManualRefreshReachesEveryViewer(t *testing.T) {
	t.Parallel()
	ts, b, _ := setup(t, Config{})
	x := dial(t, ts, nil)
	readFrame(t, x)
	y := dial(t, ts, nil)
	readFrame(t, y)
	require.Eventually(t, func() bool { return b.Sessions() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, x.WriteJSON(map[string]any{"event": EventManualRefresh}))

	fx, fy := readFrame(t, x), readFrame(t, y)
	assert.Equal(t, broadcast.EventDataUpdated, fx.Event)
	assert.Equal(t, string(fx.Data), string(fy.Data))
	assert.Contains(t, string(fx.Data), `"Count":3`)
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	t.Parallel()
	ts, _, src := setup(t, Config{})
	conn := dial(t, ts, nil)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "ping"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventManualRefresh, "data": map[string]any{"ignored": true}}))

	f := readFrame(t, conn)
	assert.Contains(t, string(f.Data), `"Count":2`)
	assert.Equal(t, int64(2), src.n.Load())
}

func TestDisconnectUnregisters(t *testing.T) {
	t.Parallel()
	ts, b, _ := setup(t, Config{})
	conn := dial(t, ts, nil)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return b.Sessions() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()
	require.Eventually(t, func() bool { return b.Sessions() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestOriginCheck(t *testing.T) {
	t.Parallel()
	ts, _, _ := setup(t, Config{AllowedOrigins: []string{"http://dash.local"}})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, ts, http.Header{"Origin": {"http://dash.local"}})
	assert.Equal(t, broadcast.EventDataUpdated, readFrame(t, conn).Event)
}

func TestSnapshotAndHealthEndpoints(t *testing.T) {
	t.Parallel()
	ts, _, _ := setup(t, Config{})

	resp, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body, 6)

	resp2, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(ts.URL + "/api/audit")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestSnapshotEndpointCarriesErrorPayload(t *testing.T) {
	t.Parallel()
	loader := hiring.NewLoader(hiring.Config{Path: filepath.Join(t.TempDir(), "gone.xlsx")}, logx.Nop())
	b := broadcast.New(broadcast.Config{}, loader, logx.Nop())
	ts := httptest.NewServer(New(Config{}, b, loader, logx.Nop()).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "gone.xlsx' not found.")
}

func TestAuditEndpoint(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "audit")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.AppendAudit(context.Background(), storage.AuditEntry{At: time.Now(), Trigger: "refresh", Recipients: 2, Delivered: 2}))

	ts, _, _ := setup(t, Config{}, WithAudit(st))

	resp, err := http.Get(ts.URL + "/api/audit?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []storage.AuditEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "refresh", entries[len(entries)-1].Trigger)

	bad, err := http.Get(ts.URL + "/api/audit?limit=zero")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestSessionSendQueueFull(t *testing.T) {
	t.Parallel()
	s := &Session{id: "s", log: logx.Nop(), out: make(chan []byte, 1), done: make(chan struct{})}
	p := hiring.Payload{Error: "x"}
	require.NoError(t, s.Send(broadcast.EventDataUpdated, p))
	assert.ErrorIs(t, s.Send(broadcast.EventDataUpdated, p), ErrQueueFull)

	msg := <-s.out
	assert.JSONEq(t, `{"event":"data_updated","data":{"error":"x"}}`, string(msg))

	s.Close()
	assert.ErrorIs(t, s.Send(broadcast.EventDataUpdated, p), ErrSessionClosed)
}
