// Package api exposes the dry-run simulator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"automationsim/internal/clock"
	"automationsim/internal/ha"
	"automationsim/internal/scenario"
	"automationsim/internal/simulate"
)

// SnapshotProvider supplies the entity snapshot a dry run evaluates
// against when the request does not carry its own states.
type SnapshotProvider interface {
	GetAllStates() ([]ha.State, error)
}

// Server provides the HTTP API for the simulator
type Server struct {
	simulator *simulate.Simulator
	provider  SnapshotProvider
	clock     clock.Clock
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a new API server. provider may be nil when every
// request is expected to carry its own states.
func NewServer(simulator *simulate.Simulator, provider SnapshotProvider, clk clock.Clock, logger *zap.Logger, port int) *Server {
	s := &Server{
		simulator: simulator,
		provider:  provider,
		clock:     clk,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SimulateRequest is the dry-run request body. The automation is given
// either as a decoded document or as raw YAML text; States, when present,
// replaces the live snapshot.
type SimulateRequest struct {
	Automation interface{}            `json:"automation,omitempty"`
	YAML       string                 `json:"yaml,omitempty"`
	States     []ha.State             `json:"states,omitempty"`
	Overrides  map[string]string      `json:"overrides,omitempty"`
	Time       string                 `json:"time,omitempty"`
	TriggerID  string                 `json:"trigger_id,omitempty"`
	Trigger    map[string]interface{} `json:"trigger,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var doc *simulate.Document
	var err error
	switch {
	case req.Automation != nil:
		doc, err = simulate.ParseDocument(req.Automation)
	case req.YAML != "":
		doc, err = scenario.ParseDocumentYAML([]byte(req.YAML))
	default:
		http.Error(w, "Missing automation", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	states := req.States
	if states == nil {
		if s.provider == nil {
			http.Error(w, "No snapshot source configured", http.StatusPreconditionFailed)
			return
		}
		states, err = s.provider.GetAllStates()
		if err != nil {
			s.logger.Error("Failed to fetch state snapshot", zap.Error(err))
			http.Error(w, "Failed to fetch state snapshot", http.StatusBadGateway)
			return
		}
	}

	ctx := simulate.NewContext(states, req.Overrides, req.Time, req.TriggerID, req.Trigger, s.clock)
	result, err := s.simulator.Run(doc, ctx)
	if err != nil {
		var structErr *simulate.StructuralError
		if errors.As(err, &structErr) {
			http.Error(w, structErr.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("Simulation failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		return
	}

	s.logger.Debug("Simulate request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("conditions_passed", result.ConditionsPassed))
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
