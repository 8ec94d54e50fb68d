// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/wsconn"
)

func setupServer(t *testing.T, handler func(ws *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		handler(ws)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	return ws
}

// fakeRoom is a scriptable double for the Room interface.
type fakeRoom struct {
	mu           sync.Mutex
	validToken   string
	raceStatus   string
	applyErr     error
	statusCalls  int
	finishCalls  int
	abandonCalls int
}

func (f *fakeRoom) Authenticate(token string) bool { return token == f.validToken }
func (f *fakeRoom) ParticipantID() string          { return "t-1" }

func (f *fakeRoom) Snapshot() (envelope.RaceInfo, envelope.SeedInfo, []envelope.ParticipantInfo, error) {
	return envelope.RaceInfo{ID: "t-1", Status: f.raceStatus}, envelope.SeedInfo{ID: "seed-1"}, nil, nil
}

func (f *fakeRoom) ApplyStatus(ctx context.Context, igtMs int64, currentZone *string, deathCount int) error {
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()
	return f.applyErr
}

func (f *fakeRoom) ApplyZoneEntered(ctx context.Context, igtMs int64, toZone string) error {
	return f.applyErr
}

func (f *fakeRoom) ApplyEventFlag(ctx context.Context, igtMs int64) error {
	return f.applyErr
}

func (f *fakeRoom) ApplyFinished(ctx context.Context, igtMs int64) error {
	f.mu.Lock()
	f.finishCalls++
	f.mu.Unlock()
	return f.applyErr
}

func (f *fakeRoom) ApplyAbandon(ctx context.Context) error {
	f.mu.Lock()
	f.abandonCalls++
	f.mu.Unlock()
	return nil
}

func newHarness(t *testing.T, room *fakeRoom) *websocket.Conn {
	t.Helper()
	registry := wsconn.NewRegistry()
	server := setupServer(t, func(ws *websocket.Conn) {
		session := New("t-1", room, registry)
		conn := wsconn.NewConn("mod-conn-1", ws, session.HandleInbound, session.HandleClose, nil)
		session.Attach(conn)
		conn.Start()
	})
	modWS := dial(t, server)
	t.Cleanup(func() { modWS.Close() })
	return modWS
}

func readOne(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func TestAuthSendsAuthOkThenRaceStartImmediately(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "tok-1"})

	authOk := readOne(t, ws)
	assert.Equal(t, envelope.TypeAuthOk, authOk["type"])
	assert.Equal(t, "t-1", authOk["my_participant_id"])

	raceStart := readOne(t, ws)
	assert.Equal(t, envelope.TypeRaceStart, raceStart["type"])
}

func TestAuthInvalidTokenSendsAuthErrorAndCloses(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "bogus"})

	msg := readOne(t, ws)
	assert.Equal(t, envelope.TypeAuthError, msg["type"])
	assert.Equal(t, "invalid_token", msg["reason"])
}

func TestNoReadyFrameIsRequiredOrAccepted(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "tok-1"})
	readOne(t, ws) // auth_ok
	readOne(t, ws) // race_start

	send(t, ws, map[string]string{"type": "ready"})
	send(t, ws, map[string]any{"type": "status_update", "igt_ms": 100, "current_zone": nil, "death_count": 0})

	require.Eventually(t, func() bool {
		room.mu.Lock()
		defer room.mu.Unlock()
		return room.statusCalls == 1
	}, time.Second, 10*time.Millisecond, "status_update must reach the room without any ready handshake")
}

func TestFramesBeforeAuthAreDropped(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]any{"type": "status_update", "igt_ms": 100, "current_zone": nil, "death_count": 0})

	time.Sleep(50 * time.Millisecond)
	room.mu.Lock()
	calls := room.statusCalls
	room.mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestFinishedSetsTerminalStateAndSuppressesAbandonOnClose(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "tok-1"})
	readOne(t, ws) // auth_ok
	readOne(t, ws) // race_start

	send(t, ws, map[string]any{"type": "finished", "igt_ms": 5000})

	require.Eventually(t, func() bool {
		room.mu.Lock()
		defer room.mu.Unlock()
		return room.finishCalls == 1
	}, time.Second, 10*time.Millisecond)

	ws.Close()

	time.Sleep(50 * time.Millisecond)
	room.mu.Lock()
	abandoned := room.abandonCalls
	room.mu.Unlock()
	assert.Equal(t, 0, abandoned, "a session that already finished must not be abandoned on disconnect")
}

func TestDisconnectBeforeFinishAbandons(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1"}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "tok-1"})
	readOne(t, ws) // auth_ok
	readOne(t, ws) // race_start

	ws.Close()

	require.Eventually(t, func() bool {
		room.mu.Lock()
		defer room.mu.Unlock()
		return room.abandonCalls == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSessionNotActiveSendsErrorFrame(t *testing.T) {
	room := &fakeRoom{validToken: "tok-1", applyErr: ErrSessionNotActive}
	ws := newHarness(t, room)

	send(t, ws, map[string]string{"type": "auth", "mod_token": "tok-1"})
	readOne(t, ws) // auth_ok
	readOne(t, ws) // race_start

	send(t, ws, map[string]any{"type": "event_flag", "igt_ms": 100})

	msg := readOne(t, ws)
	assert.Equal(t, envelope.TypeError, msg["type"])
	assert.Equal(t, "session_not_active", msg["reason"])
}
