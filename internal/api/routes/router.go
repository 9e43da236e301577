package routes

import (
	"net/http"
	"strings"

	"github.com/carebridge/clinconsult/internal/api/handlers"
	"github.com/carebridge/clinconsult/internal/api/middleware"
	"github.com/carebridge/clinconsult/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	authHandler        *handlers.AuthHandler
	chatHandler        *handlers.ChatHandler
	patientHandler     *handlers.PatientHandler
	promptHandler      *handlers.PromptHandler
	terminologyHandler *handlers.TerminologyHandler
	sseHandler         *handlers.SSEHandler

	verifier        middleware.TokenVerifier
	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	staticDir       string
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	patientHandler *handlers.PatientHandler,
	promptHandler *handlers.PromptHandler,
	terminologyHandler *handlers.TerminologyHandler,
	sseHandler *handlers.SSEHandler,
	verifier middleware.TokenVerifier,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	staticDir string,
) *Router {
	return &Router{
		authHandler:        authHandler,
		chatHandler:        chatHandler,
		patientHandler:     patientHandler,
		promptHandler:      promptHandler,
		terminologyHandler: terminologyHandler,
		sseHandler:         sseHandler,
		verifier:           verifier,
		cacheMiddleware:    cacheMiddleware,
		metrics:            metrics,
		staticDir:          staticDir,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Protected API routes; the auth middleware wraps this whole mux.
	api := http.NewServeMux()

	// Chat endpoints
	api.HandleFunc("POST /api/chat", r.chatHandler.SendMessage)
	api.HandleFunc("POST /api/chat/stream", r.chatHandler.StreamMessage)
	api.HandleFunc("GET /api/conversations", r.chatHandler.ListConversations)
	api.HandleFunc("GET /api/conversations/{id}", r.chatHandler.GetConversation)
	api.HandleFunc("DELETE /api/conversations/{id}", r.chatHandler.DeleteConversation)
	api.HandleFunc("GET /api/models", r.chatHandler.ListModels)

	// Patient record endpoints
	api.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	api.HandleFunc("POST /api/patients", r.patientHandler.CreatePatient)
	api.HandleFunc("GET /api/patients/search", r.patientHandler.SearchPatients)
	api.HandleFunc("POST /api/patients/fhir", r.patientHandler.ImportFHIR)
	api.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	api.HandleFunc("PUT /api/patients/{id}", r.patientHandler.UpdatePatient)
	api.HandleFunc("DELETE /api/patients/{id}", r.patientHandler.DeletePatient)
	api.HandleFunc("GET /api/patients/{id}/fhir", r.patientHandler.ExportFHIR)

	// Prompt template endpoints
	api.HandleFunc("GET /api/prompts", r.promptHandler.ListPrompts)
	api.HandleFunc("POST /api/prompts", r.promptHandler.CreatePrompt)
	api.HandleFunc("GET /api/prompts/{id}", r.promptHandler.GetPrompt)
	api.HandleFunc("PUT /api/prompts/{id}", r.promptHandler.UpdatePrompt)
	api.HandleFunc("DELETE /api/prompts/{id}", r.promptHandler.DeletePrompt)

	// Terminology endpoints
	api.HandleFunc("GET /api/terminology/lookup", r.terminologyHandler.Lookup)
	api.HandleFunc("GET /api/terminology/validate", r.terminologyHandler.Validate)
	api.HandleFunc("GET /api/terminology/expand", r.terminologyHandler.Expand)
	api.HandleFunc("GET /api/terminology/translate", r.terminologyHandler.Translate)

	// Record event monitoring stream
	if r.sseHandler != nil {
		api.HandleFunc("GET /api/stream/records", r.sseHandler.StreamRecordUpdates)
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Login is the only unauthenticated API route
	mux.HandleFunc("POST /api/auth/login", r.authHandler.Login)

	// Response caching sits inside auth so cache hits still require a token.
	var apiHandler http.Handler = api
	if r.cacheMiddleware != nil {
		apiHandler = r.cacheMiddleware.Middleware(apiHandler)
	}
	mux.Handle("/api/", middleware.AuthMiddleware(r.verifier)(apiHandler))

	// Static chat UI
	if r.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(r.staticDir)))
	}

	// Apply middleware in reverse order (last middleware wraps first).
	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)

	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}

	// Compression and ETag buffering would break SSE flushing, so event
	// streams bypass the response optimizations.
	base := handler
	optimized := middleware.ResponseOptimization(handler)
	handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isStreamPath(req.URL.Path) {
			base.ServeHTTP(w, req)
			return
		}
		optimized.ServeHTTP(w, req)
	})

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}

func isStreamPath(path string) bool {
	return path == "/api/chat/stream" || strings.HasPrefix(path, "/api/stream/")
}
