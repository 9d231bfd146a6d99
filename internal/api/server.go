// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api serves handler reports over a local HTTP endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shayne/vpstui/internal/handlers"
	"github.com/shayne/vpstui/internal/report"
)

const shutdownTimeout = 5 * time.Second

// Server exposes a registry as JSON.
type Server struct {
	reg    *handlers.Registry
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router. The engine runs in release mode unless gin's mode
// was already set, which tests do.
func New(reg *handlers.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{reg: reg, logger: logger, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes(s.engine)
	return s
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/healthz", s.healthHandler)
	router.GET("/api/items", s.listItemsHandler)
	router.GET("/api/items/:key", s.itemHandler)
}

// Handler returns the HTTP handler for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("api: empty listen address")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api stopped")
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listItemsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.reg.Items()})
}

func (s *Server) itemHandler(c *gin.Context) {
	key := c.Param("key")
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	switch format {
	case "json", "text", "yaml", "yml":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", c.Query("format"))})
		return
	}
	rep, err := s.reg.InvokeReport(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, handlers.ErrUnknownSelection):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	switch format {
	case "json":
		c.JSON(http.StatusOK, rep)
	case "text":
		c.String(http.StatusOK, report.Render(rep))
	case "yaml", "yml":
		out, err := report.ToYAML(rep)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", []byte(out))
	}
}
