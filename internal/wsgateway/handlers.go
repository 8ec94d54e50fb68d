// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsgateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/middleware"
	"github.com/seedrunner/race-server/internal/modsession"
	"github.com/seedrunner/race-server/internal/spectator"
	"github.com/seedrunner/race-server/internal/training"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// upgrader performs the HTTP->WebSocket handshake. Origin checking is left
// to the CORS layer on the control surface; this endpoint is consumed
// directly by the game-side mod, not a browser, so there is no third-party
// page from which a disallowed origin could forge a connection. The read
// and write buffer sizes match gorilla/websocket's own defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeRaceMod upgrades a connection and attaches it as a mod session on the
// race named by the raceID URL parameter. Auth (mod token -> participant)
// happens inside modsession.Session once the first frame arrives.
func (g *Gateway) ServeRaceMod(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	room, err := g.ensureRace(r.Context(), raceID)
	if err != nil {
		writeUpgradeError(w, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Str("race_id", raceID).Msg("wsgateway: mod upgrade failed")
		return
	}

	session := modsession.New(raceID, room, g.raceStore, g.registry)
	g.startSession(ws, session, raceID, "mod")
}

// ServeRaceListen upgrades a connection and attaches it as a spectator
// (caster or anonymous listener) on the race named by the raceID URL
// parameter. There is no handshake frame for this channel: the hello frame
// is sent as soon as the room resolves.
func (g *Gateway) ServeRaceListen(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	room, err := g.ensureRace(r.Context(), raceID)
	if err != nil {
		writeUpgradeError(w, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Str("race_id", raceID).Msg("wsgateway: listener upgrade failed")
		return
	}

	session := spectator.New(raceID, room, g.registry)
	g.startSession(ws, session, raceID, "listener")
}

// ServeTrainingMod upgrades a connection and attaches it as the single mod
// session for the training session named by the sessionID URL parameter.
func (g *Gateway) ServeTrainingMod(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	room, err := g.ensureTraining(r.Context(), sessionID)
	if err != nil {
		writeUpgradeError(w, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Str("session_id", sessionID).Msg("wsgateway: training upgrade failed")
		return
	}

	session := training.New(sessionID, room, g.registry)
	g.startSession(ws, session, sessionID, "mod")
}

// wireSession is the slice of behavior common to every session type this
// gateway dispatches to: bind the upgraded connection, then react to each
// inbound frame and the eventual close.
type wireSession interface {
	Attach(conn *wsconn.Conn)
	HandleInbound(frameType string, raw []byte)
	HandleClose(reason string)
}

// startSession wraps ws in a wsconn.Conn, attaches session to it, and
// launches the connection's read/write pumps. audience labels the drop
// metrics hook ("mod" or "listener") for backpressure accounting.
func (g *Gateway) startSession(ws *websocket.Conn, session wireSession, raceOrSessionID, audience string) {
	connID := uuid.New().String()
	conn := wsconn.NewConn(connID, ws, session.HandleInbound, session.HandleClose, wsconn.NewDropMetricsHook(raceOrSessionID, audience))
	session.Attach(conn)
	conn.Start()
}

// writeUpgradeError reports a room resolution failure (unknown race/session
// id, or a store error while loading it) before any WebSocket handshake
// occurs, so the client gets a normal HTTP status instead of a frame it
// cannot parse.
func writeUpgradeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusNotFound)
}

// NewRouter assembles the websocket gateway's HTTP handler. It shares the
// request-scoped middleware used by the control surface (internal/racecontrol)
// so both surfaces log, count, and recover panics the same way; CORS and
// per-IP rate limiting are intentionally absent here since the mod/listener
// clients are not browser pages subject to CSRF-style abuse, and the fixed
// per-connection queue already bounds resource use per session.
func NewRouter(g *Gateway) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

	r.Get("/ws/races/{raceID}/mod", g.ServeRaceMod)
	r.Get("/ws/races/{raceID}/listen", g.ServeRaceListen)
	r.Get("/ws/training/{sessionID}", g.ServeTrainingMod)

	return r
}
