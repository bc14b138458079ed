// Package server exposes the keyword network over HTTP: the current frame
// as JSON or SVG, the interaction controls, a WebSocket frame stream and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/ingest"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/metrics"
	"github.com/TFMV/topicweb/models"
	"github.com/TFMV/topicweb/render"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the lifecycle state of the widget
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrNotReady is returned while no graph is available
var ErrNotReady = errors.New("graph not ready")

// Config for the server
type Config struct {
	Interact       interact.Options
	Render         *render.Options
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LoadTimeout    time.Duration
	StreamBuffer   int
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		Interact:     interact.DefaultOptions(),
		Render:       render.NewDefaultOptions("svg"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		LoadTimeout:  30 * time.Second,
		StreamBuffer: 16,
	}
}

// Server owns the widget state, its controller and the stream hub
type Server struct {
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Registry
	hub      *Hub
	upgrader websocket.Upgrader
	handler  http.Handler

	mu    sync.RWMutex
	state State
	err   error
	ctrl  *interact.Controller
}

// New creates a server in the loading state
func New(config Config, logger *zap.Logger, reg *metrics.Registry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if config.Render == nil {
		config.Render = render.NewDefaultOptions("svg")
	}
	if config.StreamBuffer <= 0 {
		config.StreamBuffer = 16
	}
	config.Render.Width = config.Interact.Physics.Width
	config.Render.Height = config.Interact.Physics.Height

	s := &Server{
		config:  config,
		logger:  logger,
		metrics: reg,
		hub:     NewHub(logger.Named("hub"), reg),
		state:   StateLoading,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler of the service
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the frame stream hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// State returns the widget state and the load error, if any
func (s *Server) State() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.err
}

// Controller returns the running controller, or ErrNotReady
func (s *Server) Controller() (*interact.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil, ErrNotReady
	}
	return s.ctrl, nil
}

func (s *Server) fetch(ctx context.Context, loader *ingest.Loader) (*models.Dataset, error) {
	if s.config.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LoadTimeout)
		defer cancel()
	}
	ds, err := loader.Load(ctx)
	s.metrics.RecordLoad(err)
	return ds, err
}

// Load fetches the dataset and starts the layout, which runs until ctx is
// cancelled. The server moves from loading to ready on success and to
// error on failure; a failed load never exposes a partial graph.
func (s *Server) Load(ctx context.Context, loader *ingest.Loader) error {
	s.setState(StateLoading, nil, nil)

	ds, err := s.fetch(ctx, loader)
	if err != nil {
		s.setState(StateError, err, nil)
		return err
	}

	opts := s.config.Interact
	opts.OnTick = s.onTick
	opts.OnRebuild = s.onRebuild

	ctrl := interact.NewController(ds, opts, s.logger.Named("controller"))
	if err := ctrl.Start(ctx); err != nil {
		s.setState(StateError, err, nil)
		return fmt.Errorf("starting layout: %w", err)
	}

	s.setState(StateReady, nil, ctrl)
	s.broadcastState()
	return nil
}

// Reload replaces the dataset of a ready server. When the new document
// cannot be loaded the current graph stays up.
func (s *Server) Reload(ctx context.Context, loader *ingest.Loader) error {
	ctrl, err := s.Controller()
	if err != nil {
		return s.Load(ctx, loader)
	}

	ds, err := s.fetch(ctx, loader)
	if err != nil {
		s.logger.Warn("Reload failed, keeping current graph", zap.Error(err))
		return err
	}
	return ctrl.ReplaceDataset(ds)
}

func (s *Server) setState(state State, err error, ctrl *interact.Controller) {
	s.mu.Lock()
	old := s.ctrl
	s.state, s.err, s.ctrl = state, err, ctrl
	s.mu.Unlock()

	if old != nil && old != ctrl {
		old.Close()
	}
	if err != nil {
		s.logger.Error("Widget failed", zap.String("state", string(state)), zap.Error(err))
	} else {
		s.logger.Info("Widget state changed", zap.String("state", string(state)))
	}
}

// Run serves HTTP on addr and runs the stream hub until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops the layout
func (s *Server) Close() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}
}

func (s *Server) onTick(_ string, alpha float64, elapsed time.Duration) {
	s.metrics.RecordTick(alpha, elapsed)
	if s.hub.ClientCount() == 0 {
		return
	}
	s.broadcastFrame()
}

func (s *Server) onRebuild(snap *graph.Snapshot) {
	s.metrics.RecordRebuild(len(snap.Nodes), len(snap.Edges))
	s.broadcastState()
}

// broadcastFrame sends the current frame to every stream client. It is
// called from the simulation goroutine, so it must not block.
func (s *Server) broadcastFrame() {
	ctrl, err := s.Controller()
	if err != nil {
		return
	}
	view, err := ctrl.View()
	if err != nil {
		return
	}
	msg, err := encodeMessage(MessageFrame, render.BuildFrame(view))
	if err != nil {
		s.logger.Error("Encoding frame failed", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}

func (s *Server) broadcastState() {
	msg, err := encodeMessage(MessageState, s.status())
	if err != nil {
		s.logger.Error("Encoding state failed", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
