package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	providers *provider.Router
	restGW    *gateway.RESTAdapter
	gw        *gateway.Gateway
	started   time.Time
	logger    *zap.Logger
}

// NewHandler creates an API handler.
func NewHandler(st *store.Store, providers *provider.Router,
	restGW *gateway.RESTAdapter, gw *gateway.Gateway, logger *zap.Logger) *Handler {
	return &Handler{
		store:     st,
		providers: providers,
		restGW:    restGW,
		gw:        gw,
		started:   time.Now(),
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)

		r.Get("/reminders", h.listReminders)
		r.Delete("/reminders", h.cancelAllReminders)
		r.Delete("/reminders/{id}", h.cancelReminder)

		r.Get("/memories", h.listMemories)
		r.Delete("/memories", h.clearMemories)

		r.Get("/updates", h.listUpdates)

		r.Get("/adapters", h.listAdapters)
		r.Mount("/gateway", h.restGW.Routes())
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":           time.Since(h.started).Round(time.Second).String(),
		"providers":        h.providers.Available(),
		"adapters":         h.gw.Adapters(),
		"active_reminders": len(h.store.Reminders.ListActive()),
	})
}

// listReminders reloads first so reminders written by a sibling process show
// up.
func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reminders.Reload(); err != nil {
		h.logger.Warn("reminders reload failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, h.store.Reminders.List())
}

func (h *Handler) cancelReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Reminders.FindByID(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
		return
	}
	if err := h.store.Reminders.Deactivate(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cancelled": id})
}

func (h *Handler) cancelAllReminders(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Reminders.DeactivateAll()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

func (h *Handler) listMemories(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Memories.Reload(); err != nil {
		h.logger.Warn("memories reload failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, h.store.Memories.List())
}

func (h *Handler) clearMemories(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Memories.Clear()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *Handler) listUpdates(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Updates.Reload(); err != nil {
		h.logger.Warn("updates reload failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, h.store.Updates.List())
}

func (h *Handler) listAdapters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.Statuses())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
