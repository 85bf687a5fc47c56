package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/dante-control/internal/protocol"
	"github.com/muurk/dante-control/internal/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	_, err := reg.Merge(registry.Fact{Family: registry.FamilyARC, Name: "Amp", Addresses: []string{"10.0.0.5"}, Port: 4440})
	require.NoError(t, err)
	_, err = reg.Merge(registry.Fact{Family: registry.FamilyCHAN, Name: "Mixer1", Addresses: []string{"10.0.0.9"}, TransmitterChannel: "Out3"})
	require.NoError(t, err)
	return reg
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestBuildSnapshot(t *testing.T) {
	reg := newRegistry(t)
	reg.SetReceiverSubscription("Amp", 2, "Mixer1", "Out3")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := BuildSnapshot(reg.All(), reg.Generation(), now)

	assert.Equal(t, "snapshot", snap.Type)
	assert.Equal(t, reg.Generation(), snap.Generation)
	require.Len(t, snap.Devices, 2)

	amp := snap.Devices[0]
	assert.Equal(t, "Amp", amp.Name)
	assert.Equal(t, map[string]int{"arc": 4440}, amp.Ports)
	assert.Equal(t, []string{}, amp.TransmitterChannels)
	require.Len(t, amp.ReceiverChannels, 1)
	assert.Equal(t, ReceiverChannel{Index: 2, TxDevice: "Mixer1", TxChannel: "Out3"}, amp.ReceiverChannels[0])

	assert.Equal(t, []string{"Out3"}, snap.Devices[1].TransmitterChannels)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"primary_ip":"10.0.0.5"`)
}

func TestFeedSendsOnChangeOnly(t *testing.T) {
	reg := newRegistry(t)
	srv := New(reg, Config{Interval: 10 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts)

	first := readSnapshot(t, conn)
	assert.Len(t, first.Devices, 2)
	assert.Equal(t, reg.Generation(), first.Generation)

	// No change: nothing should arrive within a few check intervals
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(60*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestFeedPushesUpdates(t *testing.T) {
	reg := newRegistry(t)
	srv := New(reg, Config{Interval: 10 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	first := readSnapshot(t, conn)

	require.Eventually(t, func() bool { return srv.ActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	reg.SetReceiverChannels("Amp", []protocol.ReceiverChannel{{Index: 1, Name: "In1"}})
	second := readSnapshot(t, conn)
	assert.Greater(t, second.Generation, first.Generation)
	require.Len(t, second.Devices[0].ReceiverChannels, 1)
	assert.Equal(t, "In1", second.Devices[0].ReceiverChannels[0].Name)
}

func TestDevicesEndpoint(t *testing.T) {
	reg := newRegistry(t)
	ts := httptest.NewServer(New(reg, Config{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/devices")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Len(t, snap.Devices, 2)

	post, err := http.Post(ts.URL+"/devices", "application/json", nil)
	require.NoError(t, err)
	_ = post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestStartAndShutdown(t *testing.T) {
	reg := newRegistry(t)
	srv := New(reg, Config{Addr: "127.0.0.1:0", Interval: 10 * time.Millisecond})
	require.NoError(t, srv.Start())
	require.NotEmpty(t, srv.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	readSnapshot(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "error = %v", err)
}

func TestFeedRefusedAfterShutdown(t *testing.T) {
	reg := newRegistry(t)
	srv := New(reg, Config{Interval: 10 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, srv.ActiveConnections())

	// a second Shutdown finds nothing left to wait for
	require.NoError(t, srv.Shutdown(ctx))
}
