package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/bus"
	"github.com/micasa-app/micasa/internal/handler"
	"github.com/micasa-app/micasa/internal/middleware"
	"github.com/micasa-app/micasa/internal/realtime"
	"github.com/micasa-app/micasa/internal/store"
	"github.com/micasa-app/micasa/internal/webhook"
)

type Server struct {
	db          *sql.DB
	hub         *realtime.Hub
	dispatcher  *webhook.Dispatcher
	authH       *handler.AuthHandler
	webhookH    *handler.WebhookHandler
	shoppingH   *handler.ShoppingHandler
	choreH      *handler.ChoreHandler
	userStore   *store.UserStore
	jwtSecret   []byte
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, jwtSecret []byte, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	webhookStore := store.NewWebhookStore(db)
	shoppingStore := store.NewShoppingStore(db)
	choreStore := store.NewChoreStore(db)

	dispatcher := webhook.NewDispatcher(webhookStore, logger.With("component", "webhook"))
	eventBus := bus.New(hub, dispatcher, logger.With("component", "bus"))

	return &Server{
		db:          db,
		hub:         hub,
		dispatcher:  dispatcher,
		authH:       handler.NewAuthHandler(userStore, jwtSecret, logger.With("component", "auth")),
		webhookH:    handler.NewWebhookHandler(webhookStore, logger.With("component", "webhook_handler")),
		shoppingH:   handler.NewShoppingHandler(shoppingStore, eventBus, logger.With("component", "shopping")),
		choreH:      handler.NewChoreHandler(choreStore, eventBus, logger.With("component", "chore")),
		userStore:   userStore,
		jwtSecret:   jwtSecret,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Close drains in-flight webhook deliveries.
func (s *Server) Close() {
	s.dispatcher.Close()
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/health", s.healthHandler)

	// The websocket authenticates its own bearer token: browsers cannot
	// set the Authorization header on an upgrade request.
	outerMux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, func(token string) (auth.Principal, error) {
		return middleware.ResolvePrincipal(s.userStore, s.jwtSecret, token)
	}))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.userStore, s.jwtSecret)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","message":"Micasa API is running"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP,
		middleware.AuthRateLimit, middleware.AuthRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require authentication
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("PUT /api/auth/link-partner", s.authH.LinkPartner)

	// Webhook subscription API routes
	mux.HandleFunc("GET /api/webhooks", s.webhookH.List)
	mux.HandleFunc("POST /api/webhooks", s.webhookH.Create)
	mux.HandleFunc("PUT /api/webhooks/{id}", s.webhookH.Update)
	mux.HandleFunc("DELETE /api/webhooks/{id}", s.webhookH.Delete)

	// Shopping API routes
	mux.HandleFunc("GET /api/shopping", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping", s.shoppingH.Create)
	mux.HandleFunc("PUT /api/shopping/{id}", s.shoppingH.Update)
	mux.HandleFunc("DELETE /api/shopping/{id}", s.shoppingH.Delete)
	mux.HandleFunc("POST /api/shopping/{id}/purchase", s.shoppingH.SetPurchased)

	// Chore API routes
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.SetCompleted)
}
