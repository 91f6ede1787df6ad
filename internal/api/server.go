package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/auth"
	"ai-travel-planner/internal/metrics"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/travelplan"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// Service is the application surface the HTTP API exposes.
type Service interface {
	CreateNote(ctx context.Context, userID, title string, content *string) (notes.Note, error)
	GetNote(ctx context.Context, userID, noteID string) (notes.Note, error)
	ListNotes(ctx context.Context, userID string, opts notes.ListOptions) (notes.Page, error)
	UpdateNote(ctx context.Context, userID, noteID, title string, content *string) (notes.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
	ImportNote(ctx context.Context, userID, url string) (notes.Note, error)

	GeneratePlanForNote(ctx context.Context, userID, noteID string, opts *planner.Options, mode app.Mode) (app.PlanOutcome, error)
	GetPlan(ctx context.Context, userID, noteID string) (travelplan.Plan, error)

	GetProfile(ctx context.Context, userID string) (notes.Profile, error)
	SaveProfile(ctx context.Context, userID, name string, preferences []string) (notes.Profile, error)
}

// Server serves the JSON API.
type Server struct {
	svc            Service
	verifier       *auth.Verifier
	allowedOrigins []string
	healthPaths    []string
	extra          map[string]http.Handler
}

// NewServer creates a new Server. healthPaths are the directories whose size
// /health reports.
func NewServer(svc Service, verifier *auth.Verifier, allowedOrigins []string, healthPaths ...string) *Server {
	return &Server{
		svc:            svc,
		verifier:       verifier,
		allowedOrigins: allowedOrigins,
		healthPaths:    healthPaths,
		extra:          make(map[string]http.Handler),
	}
}

// Mount serves h for POST requests on path, outside of authentication. Used
// for the Telegram webhook.
func (s *Server) Mount(path string, h http.Handler) {
	s.extra[path] = h
}

// Handler builds the router and wraps it with CORS, security headers and
// request logging.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/health", s.health)

	authed := s.verifier.Authenticate
	router.GET("/api/notes", authed(s.listNotes))
	router.POST("/api/notes", authed(s.createNote))
	router.POST("/api/import", authed(s.importNote))
	router.GET("/api/notes/:noteId", authed(s.getNote))
	router.PUT("/api/notes/:noteId", authed(s.updateNote))
	router.DELETE("/api/notes/:noteId", authed(s.deleteNote))
	router.POST("/api/notes/:noteId/generate-plan", authed(s.generatePlan))
	router.GET("/api/notes/:noteId/travel-plan", authed(s.getTravelPlan))
	router.PUT("/api/notes/:noteId/travel-plan", authed(s.replaceTravelPlan))
	router.GET("/api/profiles/me", authed(s.getProfile))
	router.PUT("/api/profiles/me", authed(s.updateProfile))

	for path, h := range s.extra {
		router.Handler(http.MethodPost, path, h)
	}

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Printf("Panic serving %s %s: %v", r.Method, r.URL.Path, v)
		respondError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	return loggingMiddleware(securityHeaders(corsHandler))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"system": metrics.GetSysHealth(s.healthPaths...),
	})
}

// securityHeaders sets the headers every JSON response carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs method, path, status and duration of each request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d from %s in %v", r.Method, r.URL.Path, rec.status, r.RemoteAddr, time.Since(start))
	})
}
