// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package racecontrol

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seedrunner/race-server/internal/ghost"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/middleware"
	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/raceroom"
	"github.com/seedrunner/race-server/internal/store"
)

// maxTrackedRequestMetrics bounds the in-memory sliding window the
// performance monitor keeps for percentile reporting.
const maxTrackedRequestMetrics = 1000

// writeJSON encodes data as JSON and writes it to the response. Errors are
// logged but not surfaced further: headers are already sent by the time
// encoding runs.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("racecontrol: failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorResponse{Reason: reason})
}

// mapError maps a raceroom/store error to the HTTP status and wire reason
// taxonomy used by the control-surface adapter.
func mapError(err error) (status int, reason string) {
	switch {
	case errors.Is(err, raceroom.ErrRaceNotRunning), errors.Is(err, raceroom.ErrParticipantTerminal),
		errors.Is(err, raceroom.ErrParticipantNotPlaying), errors.Is(err, raceroom.ErrRaceNotSetup),
		errors.Is(err, raceroom.ErrAlreadyReleased), errors.Is(err, raceroom.ErrSeedsNotReleased),
		errors.Is(err, raceroom.ErrCasterConflict), errors.Is(err, raceroom.ErrRaceModified):
		return http.StatusConflict, controlReason(err)
	case errors.Is(err, store.ErrSeedUnavailable):
		return http.StatusConflict, "seed_unavailable"
	case errors.Is(err, raceroom.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, reasonNotFound
	default:
		return http.StatusInternalServerError, reasonInternal
	}
}

func controlReason(err error) string {
	switch {
	case errors.Is(err, raceroom.ErrRaceNotRunning):
		return "race_not_running"
	case errors.Is(err, raceroom.ErrParticipantTerminal):
		return "participant_terminal"
	case errors.Is(err, raceroom.ErrParticipantNotPlaying):
		return "participant_not_playing"
	case errors.Is(err, raceroom.ErrRaceNotSetup):
		return "race_not_setup"
	case errors.Is(err, raceroom.ErrAlreadyReleased):
		return "already_released"
	case errors.Is(err, raceroom.ErrSeedsNotReleased):
		return "seeds_not_released"
	case errors.Is(err, raceroom.ErrCasterConflict):
		return "caster_conflict"
	case errors.Is(err, raceroom.ErrRaceModified):
		return "race_modified"
	default:
		return "error"
	}
}

// OrganizerVerifier authenticates an organizer-minted bearer token (C19).
type OrganizerVerifier interface {
	VerifyOrganizerToken(ctx context.Context, token string) (organizerID string, err error)
}

// Authorizer checks whether subject may perform action on a race (C17).
type Authorizer interface {
	Allow(ctx context.Context, subject, raceID, action string) (bool, error)
}

// ParticipantStore resolves a participant's own credential, for self-service
// routes (self-abandon) that don't require organizer privilege.
type ParticipantStore interface {
	LoadParticipantByModToken(ctx context.Context, raceID, modToken string) (*models.Participant, error)
}

// GhostProvider answers the ghost-replay query (C12).
type GhostProvider interface {
	Ghosts(ctx context.Context, sessionID string) ([]ghost.Entry, error)
}

// Handlers implements the control-surface HTTP routes.
type Handlers struct {
	rooms        RoomLookup
	verifier     OrganizerVerifier
	authz        Authorizer
	participants ParticipantStore
	ghosts       GhostProvider
	validate     *validator.Validate
	perf         *middleware.PerformanceMonitor
}

// New constructs the control-surface handlers.
func New(rooms RoomLookup, verifier OrganizerVerifier, authz Authorizer, participants ParticipantStore, ghosts GhostProvider) *Handlers {
	return &Handlers{
		rooms:        rooms,
		verifier:     verifier,
		authz:        authz,
		participants: participants,
		ghosts:       ghosts,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		perf:         middleware.NewPerformanceMonitor(maxTrackedRequestMetrics),
	}
}

// Performance reports rolling request latency statistics gathered by the
// performance-monitoring middleware.
func (h *Handlers) Performance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.perf.GetStats())
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// requireOrganizer verifies the bearer token and checks the authz policy for
// action on raceID. Writes the error response itself on failure.
func (h *Handlers) requireOrganizer(w http.ResponseWriter, r *http.Request, raceID, action string) (organizerID string, ok bool) {
	token, present := bearerToken(r)
	if !present {
		writeError(w, http.StatusUnauthorized, reasonInvalidToken)
		return "", false
	}
	organizerID, err := h.verifier.VerifyOrganizerToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, reasonInvalidToken)
		return "", false
	}
	allowed, err := h.authz.Allow(r.Context(), organizerID, raceID, action)
	if err != nil {
		logging.Warn().Err(err).Str("race_id", raceID).Str("action", action).Msg("racecontrol: authz check failed")
		writeError(w, http.StatusInternalServerError, reasonInternal)
		return "", false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, reasonForbidden)
		return "", false
	}
	return organizerID, true
}

func (h *Handlers) room(w http.ResponseWriter, raceID string) (Room, bool) {
	room, ok := h.rooms.Get(raceID)
	if !ok {
		writeError(w, http.StatusNotFound, reasonNotFound)
		return nil, false
	}
	return room, true
}

// ReleaseSeeds handles POST /races/{raceID}/seeds/release.
func (h *Handlers) ReleaseSeeds(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	if _, ok := h.requireOrganizer(w, r, raceID, "release_seeds"); !ok {
		return
	}
	room, ok := h.room(w, raceID)
	if !ok {
		return
	}
	if err := room.ReleaseSeeds(r.Context()); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// StartRace handles POST /races/{raceID}/start.
func (h *Handlers) StartRace(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	if _, ok := h.requireOrganizer(w, r, raceID, "start_race"); !ok {
		return
	}
	room, ok := h.room(w, raceID)
	if !ok {
		return
	}
	if err := room.StartRace(r.Context()); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// RerollSeed handles POST /races/{raceID}/seed/reroll.
func (h *Handlers) RerollSeed(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	if _, ok := h.requireOrganizer(w, r, raceID, "reroll_seed"); !ok {
		return
	}
	var req rerollSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidBody)
		return
	}
	room, ok := h.room(w, raceID)
	if !ok {
		return
	}
	if err := room.RerollSeed(r.Context(), req.PoolName); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Abandon handles POST /races/{raceID}/participants/{participantID}/abandon,
// accepting either an organizer bearer token (force-abandon, any non-terminal
// state) or the participant's own mod token (self-abandon, requires RUNNING
// and self PLAYING).
func (h *Handlers) Abandon(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	participantID := chi.URLParam(r, "participantID")

	token, present := bearerToken(r)
	if !present {
		writeError(w, http.StatusUnauthorized, reasonInvalidToken)
		return
	}

	room, ok := h.room(w, raceID)
	if !ok {
		return
	}

	if organizerID, err := h.verifier.VerifyOrganizerToken(r.Context(), token); err == nil {
		allowed, authErr := h.authz.Allow(r.Context(), organizerID, raceID, "abandon")
		if authErr != nil {
			writeError(w, http.StatusInternalServerError, reasonInternal)
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, reasonForbidden)
			return
		}
		if err := room.ApplyAbandon(r.Context(), participantID); err != nil {
			status, reason := mapError(err)
			writeError(w, status, reason)
			return
		}
		writeJSON(w, http.StatusOK, nil)
		return
	}

	participant, err := h.participants.LoadParticipantByModToken(r.Context(), raceID, token)
	if err != nil || participant.ID != participantID {
		writeError(w, http.StatusUnauthorized, reasonInvalidToken)
		return
	}
	if err := room.SelfAbandon(r.Context(), participantID); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// AddCaster handles POST /races/{raceID}/casters.
func (h *Handlers) AddCaster(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	if _, ok := h.requireOrganizer(w, r, raceID, "manage_casters"); !ok {
		return
	}
	var req casterJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidBody)
		return
	}
	room, ok := h.room(w, raceID)
	if !ok {
		return
	}
	if err := room.AddCaster(r.Context(), req.UserID); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// RemoveCaster handles DELETE /races/{raceID}/casters/{userID}.
func (h *Handlers) RemoveCaster(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")
	if _, ok := h.requireOrganizer(w, r, raceID, "manage_casters"); !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	room, ok := h.room(w, raceID)
	if !ok {
		return
	}
	if err := room.RemoveCaster(r.Context(), userID); err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Ghosts handles GET /training/{sessionID}/ghosts.
func (h *Handlers) Ghosts(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	entries, err := h.ghosts.Ghosts(r.Context(), sessionID)
	if err != nil {
		status, reason := mapError(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
