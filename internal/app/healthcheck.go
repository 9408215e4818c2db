package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// healthHandler answers with the stats of the open session, or 503 when
// none is open.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	s := a.session.Load()
	if s == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	st, err := s.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// StartHealthCheckServer serves /health on addr until Close. It returns the
// bound address, which differs from addr when addr asks for port 0.
func (a *App) StartHealthCheckServer(addr string) (string, error) {
	a.logger.Debug("Configuring health check server.")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("health check listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	a.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	srv := a.httpServer
	go func() {
		a.logger.Info("Health check server starting.", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()
	return ln.Addr().String(), nil
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.logger.Debug("Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed.", "error", err)
		return err
	}
	a.httpServer = nil
	return nil
}
