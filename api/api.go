// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultListenAddress = ":8080"
	shutdownTimeout      = 30 * time.Second
)

type Config struct {
	ListenAddress string
	// Version is reported by GET /
	Version string
}

// Server is the governance REST API server.
type Server struct {
	config     Config
	logger     *slog.Logger
	node       Node
	httpServer *http.Server
	addr       net.Addr
	done       chan struct{}
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg Config,
	node Node,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config: cfg,
		logger: logger,
		node:   node,
	}
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v0/height", s.handleHeight)
	mux.HandleFunc("GET /api/v0/proposals", s.handleListProposals)
	mux.HandleFunc("POST /api/v0/proposals", s.handlePropose)
	mux.HandleFunc("GET /api/v0/proposals/{id}", s.handleGetProposal)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/votes",
		s.handleCastVote,
	)
	mux.HandleFunc(
		"GET /api/v0/proposals/{id}/votes/{account}",
		s.handleGetReceipt,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/queue",
		s.handleQueue,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/execute",
		s.handleExecute,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/cancel",
		s.handleCancel,
	)
	mux.HandleFunc(
		"GET /api/v0/timelock/operations/{id}",
		s.handleGetOperation,
	)
	mux.HandleFunc(
		"GET /api/v0/accounts/{account}/power",
		s.handleVotingPower,
	)
	return mux
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	done := make(chan struct{})
	s.httpServer = server
	s.done = done
	s.mu.Unlock()

	// Bind first so port conflicts are reported to the caller
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.done = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()

	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := s.shutdown(shutdownCtx, server); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Addr returns the bound listen address while the server is running
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return s.shutdown(ctx, srv)
}

func (s *Server) shutdown(ctx context.Context, srv *http.Server) error {
	s.mu.Lock()
	if s.httpServer != srv {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = nil
	s.addr = nil
	close(s.done)
	s.done = nil
	s.mu.Unlock()
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
