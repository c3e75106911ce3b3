package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/saglikops/checkup-tracker/internal/http/handlers"
	httpmiddleware "github.com/saglikops/checkup-tracker/internal/http/middleware"
	"github.com/saglikops/checkup-tracker/internal/webhook"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	WebhookHandler  *webhook.Handler
	AdminHandler    *handlers.AdminHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates the service router. The webhook, health check and metrics
// endpoints are public; everything under /admin sits behind the JWT
// middleware.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.WebhookHandler != nil {
			public.Post("/webhooks/twilio/whatsapp", cfg.WebhookHandler.WhatsAppWebhook)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/checkups", cfg.AdminHandler.CreateCheckup)
			admin.Get("/checkups/today", cfg.AdminHandler.TodayBoard)
			admin.Post("/checkups/{id}/notify", cfg.AdminHandler.NotifyCheckup)
			admin.Put("/checkups/{id}/reminder", cfg.AdminHandler.SetReminder)
			admin.Post("/tasks/{id}/toggle", cfg.AdminHandler.ToggleTask)
			admin.Get("/staff", cfg.AdminHandler.ListStaff)
			admin.Post("/staff", cfg.AdminHandler.CreateStaff)
			admin.Get("/messages", cfg.AdminHandler.ListMessages)
			admin.Post("/messages", cfg.AdminHandler.SendMessage)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
