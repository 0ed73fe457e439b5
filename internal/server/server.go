// Package server exposes the monitor over HTTP: a small JSON API for
// status and interface selection, a WebSocket stream of throughput
// events and a Prometheus endpoint. It is the headless counterpart of
// the tray UI.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shini4i/netgauge/internal/monitor"
	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/sampler"
	"github.com/shini4i/netgauge/internal/stats"
)

// Engine is the monitor surface the server needs. Declared here so
// tests can stub it.
type Engine interface {
	State() sampler.State
	Active() (netiface.Descriptor, bool)
	Totals() sampler.Totals
	Candidates() []netiface.Descriptor
	LastSnapshot() (stats.Snapshot, bool)
	Refresh() error
	Select(key string) error
}

var _ Engine = (*monitor.Monitor)(nil)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	State     sampler.State        `json:"state"`
	Interface *netiface.Descriptor `json:"interface,omitempty"`
	Totals    sampler.Totals       `json:"totals"`
	Snapshot  *stats.Snapshot      `json:"snapshot,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// InterfacesResponse is the body of GET /api/v1/interfaces.
type InterfacesResponse struct {
	Interfaces []netiface.Descriptor `json:"interfaces"`
	ActiveKey  string                `json:"active_key,omitempty"`
}

// SelectRequest is the body of POST /api/v1/interfaces/select.
type SelectRequest struct {
	Key string `json:"key" binding:"required"`
}

// CandidatesPayload carries the eligible interface list over the
// WebSocket stream.
type CandidatesPayload struct {
	Interfaces []netiface.Descriptor `json:"interfaces"`
}

// UnavailablePayload carries the reason a tick produced no measurement.
type UnavailablePayload struct {
	Reason monitor.Reason `json:"reason"`
}

// Server wires the engine to its HTTP surfaces.
type Server struct {
	engine  Engine
	hub     *Hub
	metrics *Metrics
	auth    *Authenticator
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithAuthSecret enables JWT authentication on the API and WebSocket
// endpoints. An empty secret leaves them open, intended for
// loopback-only deployments.
func WithAuthSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.auth = NewAuthenticator(secret)
		}
	}
}

// New builds a Server around the given engine and starts the hub loop.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		metrics: NewMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.hub = NewHub(s.metrics.SetClients)
	go s.hub.Run()

	s.router = s.buildRouter()

	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api/v1")
	if s.auth != nil {
		api.Use(s.auth.Middleware())
	}
	api.GET("/status", s.handleStatus)
	api.GET("/interfaces", s.handleInterfaces)
	api.POST("/interfaces/select", s.handleSelect)
	api.POST("/refresh", s.handleRefresh)

	return r
}

// Handler returns the HTTP handler, for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the hub and disconnects all WebSocket clients.
func (s *Server) Close() {
	s.hub.Stop()
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		State:     s.engine.State(),
		Totals:    s.engine.Totals(),
		Timestamp: time.Now(),
	}
	if active, ok := s.engine.Active(); ok {
		resp.Interface = &active
	}
	if snap, ok := s.engine.LastSnapshot(); ok {
		resp.Snapshot = &snap
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInterfaces(c *gin.Context) {
	resp := InterfacesResponse{Interfaces: s.engine.Candidates()}
	if active, ok := s.engine.Active(); ok {
		resp.ActiveKey = active.Key()
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	if err := s.engine.Select(req.Key); err != nil {
		switch {
		case errors.Is(err, monitor.ErrUnknownInterface):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, monitor.ErrStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "key": req.Key})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.engine.Refresh(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PublishUpdate fans a throughput snapshot out to metrics and clients.
func (s *Server) PublishUpdate(snap stats.Snapshot) {
	s.metrics.ObserveUpdate(snap)
	s.hub.Broadcast(Message{
		Type:      MessageUpdate,
		Timestamp: snap.Timestamp,
		Data:      snap,
	})
}

// PublishNoData tells clients a tick produced a baseline, not a rate.
func (s *Server) PublishNoData() {
	s.hub.Broadcast(Message{
		Type:      MessageNoData,
		Timestamp: time.Now(),
	})
}

// PublishUnavailable tells clients and metrics no measurement is
// possible right now.
func (s *Server) PublishUnavailable(reason monitor.Reason) {
	s.metrics.ObserveUnavailable()
	s.hub.Broadcast(Message{
		Type:      MessageUnavailable,
		Timestamp: time.Now(),
		Data:      UnavailablePayload{Reason: reason},
	})
}

// PublishCandidates fans the refreshed interface list out to clients.
func (s *Server) PublishCandidates(candidates []netiface.Descriptor) {
	s.metrics.SetCandidates(len(candidates))
	s.hub.Broadcast(Message{
		Type:      MessageCandidates,
		Timestamp: time.Now(),
		Data:      CandidatesPayload{Interfaces: candidates},
	})
}

// PublishSelectionChange tells clients the monitored interface changed.
func (s *Server) PublishSelectionChange(d netiface.Descriptor) {
	s.metrics.ObserveSelection(d)
	s.hub.Broadcast(Message{
		Type:      MessageSelection,
		Timestamp: time.Now(),
		Data:      d,
	})
}
