package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
	"github.com/adrianmirek/darterassistant-sub002/internal/middleware"
	"github.com/adrianmirek/darterassistant-sub002/internal/service"
)

type MatchAPI interface {
	Create(ctx context.Context, req service.CreateMatchRequest) (*domain.Match, error)
	Get(ctx context.Context, id uuid.UUID, include service.MatchInclude) (*domain.Match, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Match, error)
	Update(ctx context.Context, id uuid.UUID, sessionID string, req service.UpdateMatchRequest) (*domain.Match, error)
}

type LockAPI interface {
	Acquire(ctx context.Context, matchID uuid.UUID, sessionID string, req service.AcquireLockRequest) (*domain.MatchLock, error)
	Extend(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error)
	Release(ctx context.Context, matchID uuid.UUID, sessionID string) error
	Status(ctx context.Context, matchID uuid.UUID, sessionID string) (*service.LockStatus, error)
}

type ThrowAPI interface {
	Record(ctx context.Context, matchID uuid.UUID, sessionID string, req service.RecordThrowRequest) (*domain.Throw, error)
	RecordBatch(ctx context.Context, matchID uuid.UUID, sessionID string, reqs []service.RecordThrowRequest) ([]domain.Throw, error)
	Correct(ctx context.Context, matchID uuid.UUID, sessionID, throwID string, req service.UpdateThrowRequest) (*domain.Throw, error)
	Undo(ctx context.Context, matchID uuid.UUID, sessionID, throwID string) error
}

type StatsAPI interface {
	ForMatchID(ctx context.Context, matchID uuid.UUID, playerNumber *int) ([]domain.PlayerStats, error)
}

type ImportAPI interface {
	ImportTournament(ctx context.Context, tournamentID string) (*service.ImportResult, error)
}

type Handler struct {
	matches MatchAPI
	locks   LockAPI
	throws  ThrowAPI
	stats   StatsAPI
	imports ImportAPI
}

func NewHandler(matches MatchAPI, locks LockAPI, throws ThrowAPI, stats StatsAPI, imports ImportAPI) *Handler {
	return &Handler{matches: matches, locks: locks, throws: throws, stats: stats, imports: imports}
}

// POST /matches
func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	m, err := h.matches.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GET /matches
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := h.matches.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GET /matches/{id}?include=stats,lock
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var include service.MatchInclude
	for _, part := range strings.Split(r.URL.Query().Get("include"), ",") {
		switch strings.TrimSpace(part) {
		case "stats":
			include.Stats = true
		case "lock":
			include.Lock = true
		}
	}

	m, err := h.matches.Get(r.Context(), id, include)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PATCH /matches/{id}
func (h *Handler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var req service.UpdateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	m, err := h.matches.Update(r.Context(), id, middleware.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// POST /matches/{id}/lock
func (h *Handler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	// The body is optional, and chunked requests carry no
	// Content-Length, so decode whatever is there and treat an empty
	// body as the zero request.
	var req service.AcquireLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	lock, err := h.locks.Acquire(r.Context(), id, middleware.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lock)
}

type extendLockRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

// PUT /matches/{id}/lock
func (h *Handler) ExtendLock(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var req extendLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	lock, err := h.locks.Extend(r.Context(), id, middleware.GetSessionID(r.Context()), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}

// DELETE /matches/{id}/lock
func (h *Handler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	if err := h.locks.Release(r.Context(), id, middleware.GetSessionID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /matches/{id}/lock
func (h *Handler) LockStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	status, err := h.locks.Status(r.Context(), id, middleware.GetSessionID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// POST /matches/{id}/legs/throws
func (h *Handler) RecordThrow(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var req service.RecordThrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	t, err := h.throws.Record(r.Context(), id, middleware.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type batchThrowsRequest struct {
	Throws []service.RecordThrowRequest `json:"throws"`
}

// POST /matches/{id}/legs/throws/batch
func (h *Handler) RecordThrowBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var req batchThrowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	throws, err := h.throws.RecordBatch(r.Context(), id, middleware.GetSessionID(r.Context()), req.Throws)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, throws)
}

// PATCH /matches/{id}/legs/throws/{throwID}
func (h *Handler) CorrectThrow(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var req service.UpdateThrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}

	t, err := h.throws.Correct(r.Context(), id, middleware.GetSessionID(r.Context()), chi.URLParam(r, "throwID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DELETE /matches/{id}/legs/throws/{throwID}
func (h *Handler) UndoThrow(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	if err := h.throws.Undo(r.Context(), id, middleware.GetSessionID(r.Context()), chi.URLParam(r, "throwID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /matches/{id}/stats?player_number=
func (h *Handler) MatchStats(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(w, r)
	if !ok {
		return
	}

	var playerNumber *int
	if raw := r.URL.Query().Get("player_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, CodeValidation, "player_number must be a number", nil)
			return
		}
		playerNumber = &n
	}

	stats, err := h.stats.ForMatchID(r.Context(), id, playerNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// POST /import/nakka/{tournamentID}
func (h *Handler) ImportNakkaTournament(w http.ResponseWriter, r *http.Request) {
	result, err := h.imports.ImportTournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func matchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid match id", nil)
		return uuid.Nil, false
	}
	return id, true
}
