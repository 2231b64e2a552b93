// Package ops exposes the operational HTTP surface: liveness,
// Prometheus metrics, ledger introspection and the operator-invoked
// sweep. The listener binds to loopback by default and carries no
// authentication, so exposing it further is a deployment decision.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/gate"
	"github.com/pledgegate/pledgegate/internal/ledger"
)

type Server struct {
	cfg    config.OpsConfig
	store  *ledger.Store
	engine *gate.Engine
}

func NewServer(cfg config.OpsConfig, store *ledger.Store, engine *gate.Engine) *Server {
	return &Server{cfg: cfg, store: store, engine: engine}
}

// Router builds the HTTP routes. Split out from Run so tests can drive
// the handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/pending", s.handlePending)
		r.Get("/failures", s.handleFailures)
		r.Post("/sweep", s.handleSweep)
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("Ops server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cursor := "0"
	if v, err := s.store.GetSetting("update_cursor"); err == nil {
		cursor = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":         stats,
		"update_cursor": cursor,
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	pending, err := s.store.ListPendingJoins(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if pending == nil {
		pending = []ledger.PendingJoin{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	failures, err := s.store.ListApprovalFailures(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if failures == nil {
		failures = []ledger.ApprovalFailure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"failures": failures})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	reports, err := s.engine.Sweep(r.Context())
	if err != nil {
		slog.Error("Operator sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reports == nil {
		reports = []gate.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to encode ops response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
