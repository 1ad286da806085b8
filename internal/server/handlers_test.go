package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/engine"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu          sync.Mutex
	created     []uuid.UUID
	pushes      int
	completed   int
	completeErr error
	workouts    []models.WorkoutRow
	records     []models.PersonalRecordRow
}

func (f *fakeStore) FindIncompleteWorkout(context.Context, uuid.UUID, time.Time) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

func (f *fakeStore) CreateWorkout(context.Context, uuid.UUID, string, time.Time, bool) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeStore) LinkSubject(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (f *fakeStore) DeleteWorkout(context.Context, uuid.UUID) error          { return nil }

func (f *fakeStore) MarkComplete(context.Context, uuid.UUID, string, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed++
	return nil
}

func (f *fakeStore) WorkoutMeta(context.Context, uuid.UUID) (models.WorkoutMeta, error) {
	return models.WorkoutMeta{}, nil
}

func (f *fakeStore) DeleteExercise(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeStore) ReplaceExercises(context.Context, uuid.UUID, uuid.UUID, *string, []models.ExerciseEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	return nil
}

func (f *fakeStore) BestRecords(context.Context, uuid.UUID, string, *string) ([]models.PersonalRecordRow, error) {
	return nil, nil
}

func (f *fakeStore) UpsertBestRecord(context.Context, models.PersonalRecordRow) error { return nil }

func (f *fakeStore) InsertNotification(context.Context, uuid.UUID, uuid.UUID, string, string, string) error {
	return nil
}

func (f *fakeStore) QueryWorkouts(context.Context, uuid.UUID, time.Time, time.Time) ([]models.WorkoutRow, error) {
	return f.workouts, nil
}

func (f *fakeStore) GetWorkout(context.Context, uuid.UUID) (*models.WorkoutDetail, error) {
	return &models.WorkoutDetail{}, nil
}

func (f *fakeStore) SubjectRecords(context.Context, uuid.UUID) ([]models.PersonalRecordRow, error) {
	return f.records, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memCache) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

const testKey = "test-api-key"

func testServer(store *fakeStore) *Server {
	log := slog.New(slog.DiscardHandler)
	cache := &memCache{data: make(map[string]string)}
	return New(store, cache, testKey, engine.Config{PushDebounce: 5 * time.Millisecond}, log)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, s *Server) uuid.UUID {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/sessions", createSessionRequest{
		SubjectID: uuid.New(),
		TrainerID: uuid.New(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.SessionID
}

// TestAPIKeyRequired verifies that session routes reject requests
// without the X-API-Key header.
func TestAPIKeyRequired(t *testing.T) {
	s := testServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// TestCreateSessionValidation verifies that a session without subject
// and trainer IDs is rejected.
func TestCreateSessionValidation(t *testing.T) {
	s := testServer(&fakeStore{})
	rec := doJSON(t, s, http.MethodPost, "/api/v1/sessions", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestUnknownSession verifies the 404 for operations on a session id
// this process does not own.
func TestUnknownSession(t *testing.T) {
	s := testServer(&fakeStore{})
	rec := doJSON(t, s, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// TestSessionEditFlow drives a full edit through the HTTP surface:
// create, add exercise, fill in the set, save.
func TestSessionEditFlow(t *testing.T) {
	store := &fakeStore{}
	s := testServer(store)
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id.String()

	rec := doJSON(t, s, http.MethodPost, base+"/exercises", map[string]any{
		"exercise": models.ExerciseRef{ID: "bench", Name: "Bench Press"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add exercise status = %d: %s", rec.Code, rec.Body)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want the remote record materialized", len(store.created))
	}

	for field, value := range map[string]any{"weight": 100.0, "reps": 5} {
		rec = doJSON(t, s, http.MethodPatch, base+"/exercises/0/sets/0", map[string]any{
			"field": field, "value": value,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("update %s status = %d: %s", field, rec.Code, rec.Body)
		}
	}

	rec = doJSON(t, s, http.MethodPut, base+"/notes", map[string]string{"notes": "good session"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set notes status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, base+"/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body)
	}
	var res engine.SaveResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode save result: %v", err)
	}
	if res.TotalVolume != 500 {
		t.Errorf("total volume = %v, want 500", res.TotalVolume)
	}
	if store.completed != 1 {
		t.Errorf("completed = %d, want 1", store.completed)
	}
}

// TestSaveEmptySessionConflict verifies the save guard on a session
// with no exercises.
func TestSaveEmptySessionConflict(t *testing.T) {
	s := testServer(&fakeStore{})
	id := createSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/sessions/"+id.String()+"/save", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

// TestSaveWorkoutGone maps a save against a workout record deleted out
// from under the session to 404, not a generic 500.
func TestSaveWorkoutGone(t *testing.T) {
	store := &fakeStore{completeErr: storage.ErrWorkoutNotFound}
	s := testServer(store)
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id.String()

	rec := doJSON(t, s, http.MethodPost, base+"/exercises", map[string]any{
		"exercise": models.ExerciseRef{ID: "bench", Name: "Bench Press"},
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, base+"/save", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == "" {
		t.Error("404 carried no error message")
	}
}

// TestAbandonRemovesSession verifies DELETE tears the session down and
// later operations see 404.
func TestAbandonRemovesSession(t *testing.T) {
	s := testServer(&fakeStore{})
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id.String()

	rec := doJSON(t, s, http.MethodDelete, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("abandon status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after abandon = %d, want 404", rec.Code)
	}
}

// TestUIActionToggleMinimize verifies presentation toggles flow
// through the generic ui action route.
func TestUIActionToggleMinimize(t *testing.T) {
	s := testServer(&fakeStore{})
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id.String()

	rec := doJSON(t, s, http.MethodPost, base+"/exercises", map[string]any{
		"exercise": models.ExerciseRef{ID: "squat", Name: "Back Squat"},
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var state struct {
		Session models.Session `json:"session"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	localID := state.Session.Exercises[0].LocalID

	rec = doJSON(t, s, http.MethodPost, base+"/ui/toggle-minimize", map[string]string{
		"exercise_local_id": localID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ui action status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if len(state.Session.Minimized) != 1 || state.Session.Minimized[0] != localID {
		t.Errorf("minimized = %v, want [%s]", state.Session.Minimized, localID)
	}

	rec = doJSON(t, s, http.MethodPost, base+"/ui/no-such-action", map[string]string{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown action status = %d, want 404", rec.Code)
	}
}

// TestDraftRestoreAfterCrash simulates a crash by creating a second
// session for the same subject and date, then restoring the draft the
// first session wrote.
func TestDraftRestoreAfterCrash(t *testing.T) {
	store := &fakeStore{}
	s := testServer(store)
	subject, trainer := uuid.New(), uuid.New()
	date := time.Now().Format("2006-01-02")

	create := func() uuid.UUID {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/sessions", createSessionRequest{
			SubjectID: subject, TrainerID: trainer, Date: date,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
		var resp struct {
			SessionID uuid.UUID `json:"session_id"`
			HasDraft  bool      `json:"has_draft"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		return resp.SessionID
	}

	first := create()
	base := "/api/v1/sessions/" + first.String()
	rec := doJSON(t, s, http.MethodPost, base+"/exercises", map[string]any{
		"exercise": models.ExerciseRef{ID: "deadlift", Name: "Deadlift"},
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodPost, base+"/draft", nil)
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	second := create()
	rec = doJSON(t, s, http.MethodPost, "/api/v1/sessions/"+second.String()+"/draft/restore", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d: %s", rec.Code, rec.Body)
	}
	var state struct {
		Session models.Session `json:"session"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if len(state.Session.Exercises) != 1 || state.Session.Exercises[0].Exercise.ID != "deadlift" {
		t.Errorf("restored session = %+v", state.Session.Exercises)
	}
}

// TestQueryWorkoutsRequiresSubject verifies the history read rejects a
// missing subject_id.
func TestQueryWorkoutsRequiresSubject(t *testing.T) {
	s := testServer(&fakeStore{})
	rec := doJSON(t, s, http.MethodGet, "/api/v1/workouts", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestQueryWorkouts verifies the history read returns store rows.
func TestQueryWorkouts(t *testing.T) {
	store := &fakeStore{workouts: []models.WorkoutRow{{ID: uuid.New()}}}
	s := testServer(store)
	path := fmt.Sprintf("/api/v1/workouts?subject_id=%s&start=2026-08-01&end=2026-08-31", uuid.New())
	rec := doJSON(t, s, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var rows []models.WorkoutRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}
