// Package agent serves scan results over HTTP(S) for remote collection.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// History is the part of the scan store the agent reads
type History interface {
	LatestScan() (*db.Scan, error)
	GetLinks(scanID int64) ([]*db.Link, error)
}

// Server represents the agent server
type Server struct {
	config     Config
	scanner    *scanner.Scanner
	history    History
	httpServer *http.Server
}

// NewServer creates a new agent server. Either sc or history may be nil but
// not both.
func NewServer(config Config, sc *scanner.Scanner, history History) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if sc == nil && history == nil {
		return nil, errors.New("agent needs a scanner or a scan history")
	}

	server := &Server{
		config:  config,
		scanner: sc,
		history: history,
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if config.TLSEnabled() {
		tlsConfig, err := config.LoadTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		server.httpServer.TLSConfig = tlsConfig
	}

	return server, nil
}

// Handler returns the agent's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", loggingMiddleware(healthHandler))
	mux.HandleFunc("/sysinfo", loggingMiddleware(sysinfoHandler))
	mux.HandleFunc("/devices", loggingMiddleware(s.devicesHandler))
	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	var err error
	if s.config.TLSEnabled() {
		logger.Info("Starting agent server on %s with TLS (client verification: %v)",
			s.httpServer.Addr, s.config.CAFile != "")
		// Certificates are already loaded in the TLS config
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		logger.Info("Starting agent server on %s", s.httpServer.Addr)
		err = s.httpServer.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down agent server...")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests
func loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientCert := "none"
		if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
			clientCert = r.TLS.PeerCertificates[0].Subject.CommonName
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)

		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"remote":   r.RemoteAddr,
			"client":   clientCert,
			"duration": time.Since(start),
		}).Info("request")
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
