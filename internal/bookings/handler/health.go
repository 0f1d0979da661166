package handler

import (
	"context"
	"net/http"
	"time"

	httputil "remoteassist/pkg/http"
	"remoteassist/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const (
	RootMessage = "API de Assistência Técnica Remota ativa"

	maxDiagnosticCollections = 10
	maxDiagnosticErrorLength = 50
	readinessTimeout         = 2 * time.Second
)

// StoreInspector is what the health and diagnostics endpoints need from the
// document store.
type StoreInspector interface {
	Configured() bool
	Name() string
	Ping(ctx context.Context) error
	ListCollectionNames(ctx context.Context) ([]string, error)
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type RootResponse struct {
	Message string `json:"message"`
}

type DiagnosticsResponse struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

// StoreSettings reports which connection settings were supplied.
type StoreSettings struct {
	URLSet  bool
	NameSet bool
}

type HealthHandler struct {
	store    StoreInspector
	settings StoreSettings
	log      *logger.Logger
}

func NewHealthHandler(store StoreInspector, settings StoreSettings, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:    store,
		settings: settings,
		log:      log,
	}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.reply(w, "Root", http.StatusOK, RootResponse{Message: RootMessage})
}

// Health is liveness only and never touches the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.reply(w, "Health", http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready answers 503 while the store does not respond to a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("Readiness ping failed", "error", err, "database", h.store.Name())
		h.reply(w, "Ready", http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "error"})
		return
	}
	h.reply(w, "Ready", http.StatusOK, HealthResponse{Status: "ready", Database: "ok"})
}

// Diagnostics always answers 200; store problems are described in the body.
func (h *HealthHandler) Diagnostics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	h.reply(w, "Diagnostics", http.StatusOK, h.diagnose(ctx))
}

func (h *HealthHandler) reply(w http.ResponseWriter, op string, status int, body any) {
	if err := httputil.WriteJSON(w, status, body); err != nil {
		h.log.Error("Failed to write response", "handler", op, "error", err)
	}
}

func (h *HealthHandler) diagnose(ctx context.Context) DiagnosticsResponse {
	resp := DiagnosticsResponse{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
		DatabaseURL:      setMarker(h.settings.URLSet),
		DatabaseName:     setMarker(h.settings.NameSet),
	}

	if h.store == nil || !h.store.Configured() {
		resp.Database = "⚠️  Available but not initialized"
		return resp
	}

	resp.Database = "✅ Available"
	resp.ConnectionStatus = "Connected"

	names, err := h.store.ListCollectionNames(ctx)
	if err != nil {
		h.log.Warn("Diagnostics could not list collections", "database", h.store.Name(), "error", err)
		resp.Database = "⚠️  Connected but Error: " + truncate(err.Error(), maxDiagnosticErrorLength)
		return resp
	}

	if len(names) > maxDiagnosticCollections {
		names = names[:maxDiagnosticCollections]
	}
	if names != nil {
		resp.Collections = names
	}
	resp.Database = "✅ Connected & Working"
	return resp
}

func setMarker(set bool) string {
	if set {
		return "✅ Set"
	}
	return "❌ Not Set"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	for path, handle := range map[string]httprouter.Handle{
		"/":       h.Root,
		"/test":   h.Diagnostics,
		"/health": h.Health,
		"/ready":  h.Ready,
	} {
		router.GET(path, handle)
	}
}
