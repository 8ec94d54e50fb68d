// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package spectator

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
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

var errRoomUnavailable = errors.New("room unavailable")

// fakeRoom returns a fixed snapshot, or an error if failSnapshot is set.
type fakeRoom struct {
	failSnapshot bool
}

func (f *fakeRoom) Snapshot() (envelope.RaceInfo, envelope.SeedInfo, []envelope.ParticipantInfo, error) {
	if f.failSnapshot {
		return envelope.RaceInfo{}, envelope.SeedInfo{}, nil, errRoomUnavailable
	}
	return envelope.RaceInfo{ID: "race-1", Status: "running"}, envelope.SeedInfo{ID: "seed-1"}, nil, nil
}

// newHarness wires a spectator Session to the SERVER side of a freshly
// upgraded connection and returns the CLIENT side for the test to drive.
func newHarness(t *testing.T, room *fakeRoom) (*websocket.Conn, *wsconn.Registry) {
	t.Helper()
	registry := wsconn.NewRegistry()
	server := setupServer(t, func(ws *websocket.Conn) {
		session := New("race-1", room, registry)
		conn := wsconn.NewConn("listener-conn-1", ws, session.HandleInbound, session.HandleClose, nil)
		session.Attach(conn)
		conn.Start()
	})
	clientWS := dial(t, server)
	t.Cleanup(func() { clientWS.Close() })
	return clientWS, registry
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

func TestAttachSendsRaceStateHello(t *testing.T) {
	room := &fakeRoom{}
	clientWS, _ := newHarness(t, room)

	msg := readOne(t, clientWS)
	assert.Equal(t, envelope.TypeRaceState, msg["type"])
	race, ok := msg["race"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "race-1", race["id"])
}

func TestAttachClosesConnectionWhenRoomUnavailable(t *testing.T) {
	room := &fakeRoom{failSnapshot: true}
	clientWS, _ := newHarness(t, room)

	_ = clientWS.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := clientWS.ReadMessage()
	assert.Error(t, err, "connection must be closed when the room snapshot fails")
}

func TestInboundFramesAreDiscardedNotEchoed(t *testing.T) {
	room := &fakeRoom{}
	clientWS, _ := newHarness(t, room)
	readOne(t, clientWS) // hello

	require.NoError(t, clientWS.WriteMessage(websocket.TextMessage, []byte(`{"type":"status_update","igt_ms":1}`)))

	_ = clientWS.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := clientWS.ReadMessage()
	assert.Error(t, err, "a spectator's inbound frame must never produce a reply")
}

func TestCloseDetachesFromRegistry(t *testing.T) {
	room := &fakeRoom{}
	clientWS, registry := newHarness(t, room)
	readOne(t, clientWS) // hello

	clientWS.Close()

	require.Eventually(t, func() bool {
		return !registry.SendToMod("race-1", "nonexistent", nil, "")
	}, time.Second, 10*time.Millisecond)
}
