package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

const readinessTimeout = 5 * time.Second

// OpsHandler serves liveness, readiness and metrics for the bot process.
type OpsHandler struct {
	engine    transfer.Lister
	telemetry *telemetry.Telemetry
}

// NewOpsHandler creates the ops routes. engine may be nil, in which case
// readiness only reports that the process is up.
func NewOpsHandler(engine transfer.Lister, t *telemetry.Telemetry) *OpsHandler {
	return &OpsHandler{engine: engine, telemetry: t}
}

func (h *OpsHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(h.telemetry).Middleware)

	r.Get("/healthz", h.HandleHealth)
	r.Get("/readyz", h.HandleReady)
	r.Method(http.MethodGet, "/metrics", h.telemetry.Handler())

	return r
}

func (h *OpsHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	Status   string `json:"status"`
	Torrents int    `json:"torrents"`
	Error    string `json:"error,omitempty"`
}

// HandleReady reports whether the download engine answers a list call.
func (h *OpsHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	resp := readiness{Status: "ready"}
	status := http.StatusOK

	if h.engine != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		list, err := h.engine.List(ctx)
		if err != nil {
			logctx.LoggerFromContext(ctx).WarnContext(ctx, "download engine not ready", "err", err)

			resp = readiness{Status: "unavailable", Error: err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			resp.Torrents = len(list)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
