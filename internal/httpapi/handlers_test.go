package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
	"github.com/adrianmirek/darterassistant-sub002/internal/middleware"
	"github.com/adrianmirek/darterassistant-sub002/internal/service"
)

type fakeMatchAPI struct {
	createFn func(ctx context.Context, req service.CreateMatchRequest) (*domain.Match, error)
	getFn    func(ctx context.Context, id uuid.UUID, include service.MatchInclude) (*domain.Match, error)
	listFn   func(ctx context.Context, limit int) ([]domain.Match, error)
	updateFn func(ctx context.Context, id uuid.UUID, sessionID string, req service.UpdateMatchRequest) (*domain.Match, error)
}

func (f *fakeMatchAPI) Create(ctx context.Context, req service.CreateMatchRequest) (*domain.Match, error) {
	return f.createFn(ctx, req)
}

func (f *fakeMatchAPI) Get(ctx context.Context, id uuid.UUID, include service.MatchInclude) (*domain.Match, error) {
	return f.getFn(ctx, id, include)
}

func (f *fakeMatchAPI) ListRecent(ctx context.Context, limit int) ([]domain.Match, error) {
	return f.listFn(ctx, limit)
}

func (f *fakeMatchAPI) Update(ctx context.Context, id uuid.UUID, sessionID string, req service.UpdateMatchRequest) (*domain.Match, error) {
	return f.updateFn(ctx, id, sessionID, req)
}

type fakeLockAPI struct {
	acquireFn func(ctx context.Context, matchID uuid.UUID, sessionID string, req service.AcquireLockRequest) (*domain.MatchLock, error)
	extendFn  func(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error)
	releaseFn func(ctx context.Context, matchID uuid.UUID, sessionID string) error
	statusFn  func(ctx context.Context, matchID uuid.UUID, sessionID string) (*service.LockStatus, error)
}

func (f *fakeLockAPI) Acquire(ctx context.Context, matchID uuid.UUID, sessionID string, req service.AcquireLockRequest) (*domain.MatchLock, error) {
	return f.acquireFn(ctx, matchID, sessionID, req)
}

func (f *fakeLockAPI) Extend(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error) {
	return f.extendFn(ctx, matchID, sessionID, d)
}

func (f *fakeLockAPI) Release(ctx context.Context, matchID uuid.UUID, sessionID string) error {
	return f.releaseFn(ctx, matchID, sessionID)
}

func (f *fakeLockAPI) Status(ctx context.Context, matchID uuid.UUID, sessionID string) (*service.LockStatus, error) {
	return f.statusFn(ctx, matchID, sessionID)
}

type fakeThrowAPI struct {
	recordFn  func(ctx context.Context, matchID uuid.UUID, sessionID string, req service.RecordThrowRequest) (*domain.Throw, error)
	batchFn   func(ctx context.Context, matchID uuid.UUID, sessionID string, reqs []service.RecordThrowRequest) ([]domain.Throw, error)
	correctFn func(ctx context.Context, matchID uuid.UUID, sessionID, throwID string, req service.UpdateThrowRequest) (*domain.Throw, error)
	undoFn    func(ctx context.Context, matchID uuid.UUID, sessionID, throwID string) error
}

func (f *fakeThrowAPI) Record(ctx context.Context, matchID uuid.UUID, sessionID string, req service.RecordThrowRequest) (*domain.Throw, error) {
	return f.recordFn(ctx, matchID, sessionID, req)
}

func (f *fakeThrowAPI) RecordBatch(ctx context.Context, matchID uuid.UUID, sessionID string, reqs []service.RecordThrowRequest) ([]domain.Throw, error) {
	return f.batchFn(ctx, matchID, sessionID, reqs)
}

func (f *fakeThrowAPI) Correct(ctx context.Context, matchID uuid.UUID, sessionID, throwID string, req service.UpdateThrowRequest) (*domain.Throw, error) {
	return f.correctFn(ctx, matchID, sessionID, throwID, req)
}

func (f *fakeThrowAPI) Undo(ctx context.Context, matchID uuid.UUID, sessionID, throwID string) error {
	return f.undoFn(ctx, matchID, sessionID, throwID)
}

type fakeStatsAPI struct {
	forMatchFn func(ctx context.Context, matchID uuid.UUID, playerNumber *int) ([]domain.PlayerStats, error)
}

func (f *fakeStatsAPI) ForMatchID(ctx context.Context, matchID uuid.UUID, playerNumber *int) ([]domain.PlayerStats, error) {
	return f.forMatchFn(ctx, matchID, playerNumber)
}

type fakeImportAPI struct {
	importFn func(ctx context.Context, tournamentID string) (*service.ImportResult, error)
}

func (f *fakeImportAPI) ImportTournament(ctx context.Context, tournamentID string) (*service.ImportResult, error) {
	return f.importFn(ctx, tournamentID)
}

type apiFakes struct {
	matches *fakeMatchAPI
	locks   *fakeLockAPI
	throws  *fakeThrowAPI
	stats   *fakeStatsAPI
	imports *fakeImportAPI
}

func newTestRouter() (http.Handler, *apiFakes) {
	fakes := &apiFakes{
		matches: &fakeMatchAPI{},
		locks:   &fakeLockAPI{},
		throws:  &fakeThrowAPI{},
		stats:   &fakeStatsAPI{},
		imports: &fakeImportAPI{},
	}
	h := NewHandler(fakes.matches, fakes.locks, fakes.throws, fakes.stats, fakes.imports)
	return NewRouter(h, zerolog.Nop()), fakes
}

func doRequest(t *testing.T, router http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestMissingSessionIsUnauthorized(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/matches/"+uuid.NewString(), "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)
}

func TestHealthzNeedsNoSession(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidMatchIDRejected(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/matches/not-a-uuid", "session-a", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestAcquireLockCreated(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	var gotSession string
	fakes.locks.acquireFn = func(_ context.Context, id uuid.UUID, sessionID string, req service.AcquireLockRequest) (*domain.MatchLock, error) {
		gotSession = sessionID
		return &domain.MatchLock{
			MatchID:    id,
			SessionID:  sessionID,
			DeviceName: req.DeviceName,
			ExpiresAt:  time.Now().Add(5 * time.Minute),
		}, nil
	}

	rec := doRequest(t, router, http.MethodPost, "/matches/"+matchID.String()+"/lock", "session-a", `{"device_name":"kitchen tablet"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "session-a", gotSession)

	var lock domain.MatchLock
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lock))
	assert.Equal(t, matchID, lock.MatchID)
	assert.Equal(t, "kitchen tablet", lock.DeviceName)
}

func TestAcquireLockChunkedBodyKeepsDeviceMetadata(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	var gotReq service.AcquireLockRequest
	fakes.locks.acquireFn = func(_ context.Context, id uuid.UUID, sessionID string, req service.AcquireLockRequest) (*domain.MatchLock, error) {
		gotReq = req
		return &domain.MatchLock{MatchID: id, SessionID: sessionID}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/matches/"+matchID.String()+"/lock", strings.NewReader(`{"device_name":"kitchen tablet","auto_extend":true}`))
	req.Header.Set(middleware.SessionHeader, "session-a")
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "kitchen tablet", gotReq.DeviceName)
	assert.True(t, gotReq.AutoExtend)
}

func TestAcquireLockMalformedBodyRejected(t *testing.T) {
	router, _ := newTestRouter()
	matchID := uuid.New()

	rec := doRequest(t, router, http.MethodPost, "/matches/"+matchID.String()+"/lock", "session-a", `{"device_name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestAcquireLockConflictCarriesHolder(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	fakes.locks.acquireFn = func(_ context.Context, id uuid.UUID, _ string, _ service.AcquireLockRequest) (*domain.MatchLock, error) {
		return nil, &domain.LockConflictError{Holder: &domain.MatchLock{
			MatchID:    id,
			SessionID:  "session-b",
			DeviceName: "living room tv",
		}}
	}

	rec := doRequest(t, router, http.MethodPost, "/matches/"+matchID.String()+"/lock", "session-a", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeLockConflict, env.Error.Code)

	holder, ok := env.Error.Details.(map[string]any)
	require.True(t, ok, "details should carry the competing lock")
	assert.Equal(t, "session-b", holder["session_id"])
	assert.Equal(t, "living room tv", holder["device_name"])
}

func TestReleaseLockNoContent(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	fakes.locks.releaseFn = func(_ context.Context, _ uuid.UUID, _ string) error { return nil }

	rec := doRequest(t, router, http.MethodDelete, "/matches/"+matchID.String()+"/lock", "session-a", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestExtendLockPassesDuration(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	var gotDuration time.Duration
	fakes.locks.extendFn = func(_ context.Context, id uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error) {
		gotDuration = d
		return &domain.MatchLock{MatchID: id, SessionID: sessionID}, nil
	}

	rec := doRequest(t, router, http.MethodPut, "/matches/"+matchID.String()+"/lock", "session-a", `{"duration_seconds":600}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10*time.Minute, gotDuration)
}

func TestUpdateFinishedMatchConflicts(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	fakes.matches.updateFn = func(_ context.Context, _ uuid.UUID, _ string, _ service.UpdateMatchRequest) (*domain.Match, error) {
		return nil, domain.ErrMatchFinished
	}

	rec := doRequest(t, router, http.MethodPatch, "/matches/"+matchID.String(), "session-a", `{"status":"in_progress"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeMatchFinished, env.Error.Code)
}

func TestInvalidTransitionConflicts(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	fakes.matches.updateFn = func(_ context.Context, _ uuid.UUID, _ string, _ service.UpdateMatchRequest) (*domain.Match, error) {
		return nil, &domain.TransitionError{From: domain.StatusSetup, To: domain.StatusPaused}
	}

	rec := doRequest(t, router, http.MethodPatch, "/matches/"+matchID.String(), "session-a", `{"status":"paused"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeInvalidTransition, env.Error.Code)
}

func TestRecordThrowWithoutLockIsForbidden(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	fakes.throws.recordFn = func(_ context.Context, _ uuid.UUID, _ string, _ service.RecordThrowRequest) (*domain.Throw, error) {
		return nil, domain.ErrNotLockOwner
	}

	rec := doRequest(t, router, http.MethodPost, "/matches/"+matchID.String()+"/legs/throws", "session-b", `{"player_number":1,"score":60}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeNotLockOwner, env.Error.Code)
}

func TestUnknownMatchIsNotFound(t *testing.T) {
	router, fakes := newTestRouter()

	fakes.matches.getFn = func(_ context.Context, _ uuid.UUID, _ service.MatchInclude) (*domain.Match, error) {
		return nil, domain.ErrMatchNotFound
	}

	rec := doRequest(t, router, http.MethodGet, "/matches/"+uuid.NewString(), "session-a", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeErrorEnvelope(t, rec)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}

func TestGetMatchParsesIncludes(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	var gotInclude service.MatchInclude
	fakes.matches.getFn = func(_ context.Context, id uuid.UUID, include service.MatchInclude) (*domain.Match, error) {
		gotInclude = include
		return &domain.Match{ID: id, Status: domain.StatusSetup}, nil
	}

	rec := doRequest(t, router, http.MethodGet, "/matches/"+matchID.String()+"?include=stats,lock", "session-a", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotInclude.Stats)
	assert.True(t, gotInclude.Lock)
}

func TestMatchStatsRejectsBadPlayerNumber(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/matches/"+uuid.NewString()+"/stats?player_number=first", "session-a", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndoThrowNoContent(t *testing.T) {
	router, fakes := newTestRouter()
	matchID := uuid.New()

	var gotThrowID string
	fakes.throws.undoFn = func(_ context.Context, _ uuid.UUID, _ string, throwID string) error {
		gotThrowID = throwID
		return nil
	}

	rec := doRequest(t, router, http.MethodDelete, "/matches/"+matchID.String()+"/legs/throws/throw-7", "session-a", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "throw-7", gotThrowID)
}

func TestImportTournamentCreated(t *testing.T) {
	router, fakes := newTestRouter()

	fakes.imports.importFn = func(_ context.Context, tournamentID string) (*service.ImportResult, error) {
		return &service.ImportResult{Tournament: "Friday League"}, nil
	}

	rec := doRequest(t, router, http.MethodPost, "/import/nakka/t123", "session-a", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	var result service.ImportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "Friday League", result.Tournament)
}
