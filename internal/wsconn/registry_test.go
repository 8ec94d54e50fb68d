// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/seedrunner/race-server/internal/envelope"
)

func newTestConn(t *testing.T, id string) (*Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	clientWS, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)

	conn := NewConn(id, clientWS, nil, nil, nil)
	conn.Start()
	return conn, func() {
		conn.Close("test_done")
		server.Close()
	}
}

func TestAttachModEvictsPrior(t *testing.T) {
	reg := NewRegistry()

	first, closeFirst := newTestConn(t, "session-1")
	defer closeFirst()
	second, closeSecond := newTestConn(t, "session-2")
	defer closeSecond()

	reg.AttachMod("race-1", "p-1", first)
	reg.AttachMod("race-1", "p-1", second)

	time.Sleep(50 * time.Millisecond)

	sent := reg.SendToMod("race-1", "p-1", []byte(`{"type":"ping"}`), envelope.TypePing)
	require.True(t, sent)

	first.mu.Lock()
	firstClosed := first.closed
	first.mu.Unlock()
	require.True(t, firstClosed, "the prior mod session must be closed")
	reg.mu.RLock()
	current := reg.races["race-1"].mods["p-1"]
	reg.mu.RUnlock()
	require.Same(t, second, current)
}

func TestDetachModOnlyRemovesCurrentOccupant(t *testing.T) {
	reg := NewRegistry()
	conn, closeConn := newTestConn(t, "session-3")
	defer closeConn()

	reg.AttachMod("race-2", "p-1", conn)
	other, closeOther := newTestConn(t, "session-4")
	defer closeOther()

	reg.DetachMod("race-2", "p-1", other)
	require.True(t, reg.SendToMod("race-2", "p-1", []byte(`{}`), envelope.TypePing))

	reg.DetachMod("race-2", "p-1", conn)
	require.False(t, reg.SendToMod("race-2", "p-1", []byte(`{}`), envelope.TypePing))
}

func TestAttachListenerAndBroadcast(t *testing.T) {
	reg := NewRegistry()
	conn, closeConn := newTestConn(t, "listener-1")
	defer closeConn()

	reg.AttachListener("race-3", conn)
	reg.Broadcast("race-3", []byte(`{"type":"race_start"}`), envelope.TypeRaceStart, AudienceListeners)

	reg.DetachListener("race-3", conn.ID())
	require.False(t, reg.SendToMod("race-3", "nobody", []byte(`{}`), envelope.TypePing))
	reg.mu.RLock()
	_, stillAttached := reg.races["race-3"].listeners[conn.ID()]
	reg.mu.RUnlock()
	require.False(t, stillAttached, "the listener must be detached")
}

func TestSendToModNoSession(t *testing.T) {
	reg := NewRegistry()
	require.False(t, reg.SendToMod("race-unknown", "p-1", []byte(`{}`), envelope.TypePing))
}

func TestAudienceString(t *testing.T) {
	require.Equal(t, "mods", AudienceMods.String())
	require.Equal(t, "listeners", AudienceListeners.String())
	require.Equal(t, "all", AudienceAll.String())
}

func TestCloseRaceClosesAllSessions(t *testing.T) {
	reg := NewRegistry()
	mod, closeMod := newTestConn(t, "mod-1")
	defer closeMod()
	listener, closeListener := newTestConn(t, "listener-2")
	defer closeListener()

	reg.AttachMod("race-4", "p-1", mod)
	reg.AttachListener("race-4", listener)

	reg.CloseRace("race-4", "server_shutting_down")

	require.False(t, reg.SendToMod("race-4", "p-1", []byte(`{}`), envelope.TypePing))
}
