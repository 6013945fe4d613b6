// Package router assembles the HTTP surface: public webhooks and the chat
// widget endpoints, plus the JWT-protected admin views of the call ledger.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicdesk/clinic-voice-platform/internal/http/handlers"
	httpmiddleware "github.com/clinicdesk/clinic-voice-platform/internal/http/middleware"
	"github.com/clinicdesk/clinic-voice-platform/internal/webchat"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	VoiceTurn          *handlers.VoiceTurnHandler
	Webchat            *webchat.Handler
	AdminCalls         *handlers.AdminCallsHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, widget, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.VoiceTurn != nil {
			public.Post("/webhooks/voice/turn", cfg.VoiceTurn.HandleTurn)
		}
		if cfg.Webchat != nil {
			public.Route("/chat", func(r chi.Router) {
				r.Get("/ws", cfg.Webchat.HandleWebSocket)
				r.Post("/message", cfg.Webchat.HandleMessage)
				r.Get("/history", cfg.Webchat.HandleHistory)
				r.Get("/widget.js", cfg.Webchat.HandleWidgetJS)
			})
		}
	})

	// Admin routes (protected by JWT)
	if cfg.AdminCalls != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/calls", cfg.AdminCalls.ListCalls)
			admin.Get("/calls/{sessionID}", cfg.AdminCalls.GetCall)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
