// package server contains the router, middleware & JSON handlers for the practice API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the practice API.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// SongStore persists songs and applies partial exercise updates.
type SongStore interface {
	Save(song *models.Song) error
	Get(id string) (*models.Song, error)
	List() ([]*models.Song, error)
	Delete(id string) error
	PatchExercise(songID, exerciseID string, patch models.ExercisePatch) (*models.Exercise, error)
	ToggleTransition(songID, a, b string, track bool) (*models.Exercise, error)
}

// DailyLogStore applies additive daily-log deltas.
type DailyLogStore interface {
	Upsert(songID string, delta models.DailyLogDelta) error
	GetRange(songID, from, to string) ([]models.DailyLog, error)
}

// StageLogStore reads stage change history.
type StageLogStore interface {
	GetAll(songID string) ([]models.StageLogEntry, error)
}

// Stores groups the persistence dependencies of the API.
type Stores struct {
	Songs     SongStore
	DailyLogs DailyLogStore
	StageLogs StageLogStore
}

// NewAPIRouter builds the router serving the practice API with logging, recovery and rate limiting applied.
//
// A non-positive rate limit disables the limiter.
func NewAPIRouter(stores Stores, cfg shared.ServerConfig, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger))
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		router.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
	}

	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	router.Handler(NewSongsHandler(stores, logger))

	return router
}

// Server runs the practice API until its context is cancelled.
type Server struct {
	httpServer      *http.Server
	logger          *log.Logger
	shutdownTimeout time.Duration
}

// New creates a Server listening on the configured address.
func New(cfg shared.ServerConfig, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: 5 * time.Second,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is done, then shuts down gracefully so in-flight saves can finish.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}
