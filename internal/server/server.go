package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/draft"
	"github.com/claude/liftlog/internal/engine"
	"github.com/claude/liftlog/internal/models"
)

// Store is the persistence surface the server needs: everything a live
// session engine uses plus the history reads. *storage.DB satisfies it.
type Store interface {
	engine.RemoteStore
	QueryWorkouts(ctx context.Context, subjectID uuid.UUID, start, end time.Time) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutDetail, error)
	SubjectRecords(ctx context.Context, subjectID uuid.UUID) ([]models.PersonalRecordRow, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	cache    draft.Cache
	sessions *registry
	log      *slog.Logger
	apiKey   string
	engCfg   engine.Config
	router   chi.Router
}

// New creates a new Server with all routes configured. engCfg supplies
// the per-session timing knobs; per-request fields are filled in at
// session creation.
func New(db Store, cache draft.Cache, apiKey string, engCfg engine.Config, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		cache:    cache,
		sessions: newRegistry(),
		log:      log,
		apiKey:   apiKey,
		engCfg:   engCfg,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		// Live session editing
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleAbandonSession)
				r.Post("/exercises", s.handleAddExercise)
				r.Delete("/exercises/{index}", s.handleRemoveExercise)
				r.Post("/exercises/{index}/sets", s.handleAddSet)
				r.Delete("/exercises/{index}/sets/{set}", s.handleRemoveSet)
				r.Post("/exercises/{index}/sets/{set}/duplicate", s.handleDuplicateSet)
				r.Patch("/exercises/{index}/sets/{set}", s.handleUpdateSet)
				r.Put("/notes", s.handleSetNotes)
				r.Put("/date", s.handleSetDate)
				r.Post("/save", s.handleSave)
				r.Post("/autosave", s.handleAutoSave)
				r.Post("/draft", s.handleSaveDraft)
				r.Post("/draft/restore", s.handleRestoreDraft)
				r.Delete("/draft", s.handleDiscardDraft)
				r.Post("/ui/{action}", s.handleUIAction)
			})
		})

		// Saved-workout history
		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/records", s.handleSubjectRecords)
	})
}
