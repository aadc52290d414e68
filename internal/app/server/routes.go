// Package server exposes the message router and read-only views over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cookiewarden/internal/domain"
	"cookiewarden/internal/router"
)

const shutdownTimeout = 5 * time.Second

// MessageHandler answers protocol messages.
type MessageHandler interface {
	Handle(ctx context.Context, req router.Request) router.Response
}

// StateSource returns the current state.
type StateSource interface {
	Snapshot() domain.ExtensionState
}

// RuleSource lists the installed blocking rules.
type RuleSource interface {
	DynamicRules(ctx context.Context) ([]domain.BlockRule, error)
}

type Config struct {
	Addr       string
	Messages   MessageHandler
	State      StateSource
	Rules      RuleSource
	Gatherer   prometheus.Gatherer
	AuthSecret string
}

type Server struct {
	addr    string
	handler http.Handler
}

func New(c *Config) *Server {
	s := &Server{addr: c.Addr}
	s.handler = enableCORS(routes(c))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is canceled and then shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting cookiewarden API on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

func routes(c *Config) http.Handler {
	secret := []byte(c.AuthSecret)
	h := &handlers{messages: c.Messages, state: c.State, rules: c.Rules}

	gatherer := c.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("POST /message", requireAuth(secret, http.HandlerFunc(h.message)))
	mux.Handle("GET /state", requireAuth(secret, http.HandlerFunc(h.getState)))
	mux.Handle("GET /rules", requireAuth(secret, http.HandlerFunc(h.getRules)))
	mux.Handle("GET /version", requireAuth(secret, http.HandlerFunc(getVersion)))
	mux.Handle("GET /metrics", requireAuth(secret, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	mux.HandleFunc("GET /healthz", healthz)

	log.Debug("Routes opened")
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
