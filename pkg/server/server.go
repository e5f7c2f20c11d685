// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the kernel over HTTP: envelope ingress, agent and
// skill discovery, run journals, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/agents"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/journal"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
)

// MaxEnvelopeBytes bounds a request body on the envelope endpoint.
const MaxEnvelopeBytes = 1 << 20

// SkillLister is the slice of the skill registry the server reads.
type SkillLister interface {
	Descriptors() []skills.Descriptor
}

// Server holds the HTTP handlers. Dependencies left unset disable the
// routes that need them.
type Server struct {
	router    *agents.Router
	skills    SkillLister
	journal   journal.Journal
	transport messaging.Transport
	topic     string
	health    core.HealthCheckProvider
	metrics   http.Handler
	errs      *telemetry.ErrorMetrics
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSkills lists skills on GET /v1/skills.
func WithSkills(s SkillLister) Option { return func(srv *Server) { srv.skills = s } }

// WithJournal serves run events from j.
func WithJournal(j journal.Journal) Option { return func(srv *Server) { srv.journal = j } }

// WithTransport publishes asynchronous envelopes on topic; empty means
// messaging.TopicRequests.
func WithTransport(t messaging.Transport, topic string) Option {
	return func(srv *Server) {
		srv.transport = t
		if topic != "" {
			srv.topic = topic
		}
	}
}

// WithHealth reports component health on /healthz.
func WithHealth(h core.HealthCheckProvider) Option { return func(srv *Server) { srv.health = h } }

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option { return func(srv *Server) { srv.metrics = h } }

// WithErrorMetrics counts handler failures.
func WithErrorMetrics(m *telemetry.ErrorMetrics) Option { return func(srv *Server) { srv.errs = m } }

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// New creates a server dispatching through router.
func New(router *agents.Router, opts ...Option) *Server {
	s := &Server{
		router: router,
		topic:  messaging.TopicRequests,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/envelopes", s.handleEnvelope)
		r.Get("/agents", s.handleAgents)
		r.Get("/skills", s.handleSkills)
		r.Get("/runs/{correlationId}/events", s.handleEvents)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.listen", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.New(errors.CodeTransportError, "http server failed", err).WithContext("addr", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New(errors.CodeTransportError, "http shutdown failed", err)
	}
	return nil
}

type accepted struct {
	CorrelationID string   `json:"correlationId"`
	Mode          string   `json:"mode,omitempty"`
	Agents        []string `json:"agents,omitempty"`
}

// handleEnvelope publishes the envelope on the requests topic, or routes it
// in-process when sync=true. A synchronous dispatch that produced a
// response returns it with 200; anything else is 202.
func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxEnvelopeBytes))
	if err != nil {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "read request body", err))
		return
	}
	env, err := messaging.Decode(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sync, _ := strconv.ParseBool(r.URL.Query().Get("sync"))
	if !sync {
		if s.transport == nil {
			s.writeError(w, r, errors.New(errors.CodeTransportError, "no transport configured", nil))
			return
		}
		if err := messaging.PublishEnvelope(r.Context(), s.transport, s.topic, env); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, accepted{CorrelationID: env.CorrelationID})
		return
	}

	d, err := s.router.Route(r.Context(), env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if d.Response != nil {
		writeJSON(w, http.StatusOK, d.Response)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted{
		CorrelationID: env.CorrelationID,
		Mode:          string(d.Mode),
		Agents:        d.Agents,
	})
}

type agentView struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Capabilities  []string `json:"capabilities,omitempty"`
	MaxIterations int      `json:"maxIterations,omitempty"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	names := s.router.Agents()
	out := make([]agentView, 0, len(names))
	for _, name := range names {
		view := agentView{Name: name}
		if a, ok := s.router.Get(name); ok {
			if p, ok := a.(interface{ Profile() agents.Profile }); ok {
				profile := p.Profile()
				view.Description = profile.Description
				view.MaxIterations = profile.Loop.MaxIterations
				for _, c := range profile.Capabilities {
					view.Capabilities = append(view.Capabilities, c.String())
				}
			}
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	if s.skills == nil {
		writeJSON(w, http.StatusOK, map[string]any{"skills": []skills.Descriptor{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": s.skills.Descriptors()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, r, errors.New(errors.CodeNotFound, "journal is disabled", nil))
		return
	}
	q := r.URL.Query()
	filter := journal.Filter{
		CorrelationID: chi.URLParam(r, "correlationId"),
		Agent:         q.Get("agent"),
		Type:          core.EventType(q.Get("type")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.Newf(errors.CodeInvalidInput, "invalid limit %q", raw))
			return
		}
		filter.Limit = n
	}
	events, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []core.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": core.HealthHealthy})
		return
	}
	results, status := s.health.CheckAll(r.Context())
	code := http.StatusOK
	if status == core.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "components": results})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.NotFound(w, r)
		return
	}
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ke := errors.AsKernelError(err)
	status := ke.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "http.request.failed",
			slog.String("path", r.URL.Path),
			slog.String("code", string(ke.Code)),
			slog.String("error", ke.Error()),
		)
	}
	s.errs.RecordError(r.Context(), ke, "http")
	writeJSON(w, status, ke)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
