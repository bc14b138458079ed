package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/physics"
	"github.com/TFMV/topicweb/render"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Status describes the widget for clients
type Status struct {
	State        State           `json:"state"`
	Error        string          `json:"error,omitempty"`
	Generation   string          `json:"generation,omitempty"`
	Threshold    float64         `json:"threshold"`
	ThresholdMin float64         `json:"thresholdMin"`
	ThresholdMax float64         `json:"thresholdMax"`
	Selected     string          `json:"selected,omitempty"`
	Alpha        float64         `json:"alpha"`
	Stable       bool            `json:"stable"`
	Clients      int             `json:"clients"`
	Summary      *render.Summary `json:"summary,omitempty"`
}

type thresholdRequest struct {
	MinEdgeWeight *float64 `json:"minEdgeWeight"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type selectResponse struct {
	Selected  string   `json:"selected"`
	Highlight []string `json:"highlight"`
}

type dragRequest struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Screen bool    `json:"screen"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type zoomRequest struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(s.logger.Named("http")))
	router.Use(Instrument(s.metrics))

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.handleHealth)
	router.Handle("/metrics", s.metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleGraphImage("svg"))
		r.Get("/graph.png", s.handleGraphImage("png"))
		r.Post("/threshold", s.handleThreshold)
		r.Post("/select", s.handleSelect)
		r.Delete("/select", s.handleClearSelection)
		r.Post("/drag/start", s.handleDrag(dragStart))
		r.Post("/drag/move", s.handleDrag(dragMove))
		r.Post("/drag/end", s.handleDrag(dragEnd))
		r.Post("/view/pan", s.handlePan)
		r.Post("/view/zoom", s.handleZoom)
		r.Post("/view/reset", s.handleReset)
		r.Get("/stream", s.handleStream)
	})

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status() Status {
	state, err := s.State()
	lo, hi := s.config.Interact.ThresholdMin, s.config.Interact.ThresholdMax
	st := Status{
		State:        state,
		Threshold:    s.config.Interact.Filter.MinEdgeWeight,
		ThresholdMin: lo,
		ThresholdMax: hi,
		Clients:      s.hub.ClientCount(),
	}
	if err != nil {
		st.Error = err.Error()
	}

	ctrl, cerr := s.Controller()
	if cerr != nil {
		return st
	}
	view, verr := ctrl.View()
	if verr != nil {
		return st
	}
	st.ThresholdMin, st.ThresholdMax = ctrl.ThresholdRange()
	st.Generation = view.Generation
	st.Threshold = view.Threshold
	st.Selected = view.Selected
	st.Alpha = view.Alpha
	st.Stable = view.Stable
	summary := render.BuildFrame(view).Summary
	st.Summary = &summary
	return st
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// ready returns the controller or answers 503 with the widget status
func (s *Server) ready(w http.ResponseWriter) (*interact.Controller, bool) {
	ctrl, err := s.Controller()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, s.status())
		return nil, false
	}
	return ctrl, true
}

func (s *Server) currentView(w http.ResponseWriter) (interact.View, bool) {
	ctrl, ok := s.ready(w)
	if !ok {
		return interact.View{}, false
	}
	view, err := ctrl.View()
	if err != nil {
		s.writeError(w, err)
		return interact.View{}, false
	}
	return view, true
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	view, ok := s.currentView(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, render.BuildFrame(view))
}

// handleGraphImage draws the current frame; ?labels and ?legend toggle
// those layers
func (s *Server) handleGraphImage(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := s.currentView(w)
		if !ok {
			return
		}

		opts := *s.config.Render
		opts.Format = format
		if v := r.URL.Query().Get("labels"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				opts.ShowLabels = b
			}
		}
		if v := r.URL.Query().Get("legend"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				opts.ShowLegend = b
			}
		}

		renderer, err := render.GetRenderer(format)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out, err := renderer.Render(render.BuildFrame(view), &opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", renderer.ContentType())
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	}
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	var req thresholdRequest
	if !decode(w, r, &req) {
		return
	}
	if req.MinEdgeWeight == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("minEdgeWeight is required"))
		return
	}
	if err := ctrl.SetThreshold(*req.MinEdgeWeight); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	set, err := ctrl.Select(req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.broadcastFrame()
	writeJSON(w, http.StatusOK, selectResponse{Selected: req.ID, Highlight: ids})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	ctrl.ClearSelection()
	s.broadcastFrame()
	w.WriteHeader(http.StatusNoContent)
}

type dragPhase int

const (
	dragStart dragPhase = iota
	dragMove
	dragEnd
)

func (s *Server) handleDrag(phase dragPhase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := s.ready(w)
		if !ok {
			return
		}
		var req dragRequest
		if !decode(w, r, &req) {
			return
		}

		var (
			pos physics.Point
			err error
		)
		switch phase {
		case dragStart:
			pos, err = ctrl.DragStart(req.ID)
		case dragMove:
			pos = physics.Point{X: req.X, Y: req.Y}
			if req.Screen {
				pos = ctrl.ScreenToWorld(pos)
			}
			err = ctrl.DragMove(req.ID, pos)
		case dragEnd:
			pos, err = ctrl.DragEnd(req.ID)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "position": pos})
	}
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	var req panRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Pan(req.DX, req.DY))
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	var req zoomRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Factor <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("factor must be positive"))
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Zoom(req.Factor, physics.Point{X: req.X, Y: req.Y}))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.ready(w)
	if !ok {
		return
	}
	if err := ctrl.ResetView(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interact.Identity())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(s.hub, conn, s.config.StreamBuffer, s.logger.Named("stream"))

	greeting := make([][]byte, 0, 3)
	if msg, err := encodeMessage(MessageHello, map[string]string{"connectionId": client.ID()}); err == nil {
		greeting = append(greeting, msg)
	}
	if msg, err := encodeMessage(MessageState, s.status()); err == nil {
		greeting = append(greeting, msg)
	}
	if ctrl, err := s.Controller(); err == nil {
		if view, err := ctrl.View(); err == nil {
			if msg, err := encodeMessage(MessageFrame, render.BuildFrame(view)); err == nil {
				greeting = append(greeting, msg)
			}
		}
	}
	client.Start(greeting...)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interact.ErrUnknownNode):
		status = http.StatusNotFound
	case errors.Is(err, interact.ErrNotDragging):
		status = http.StatusConflict
	case errors.Is(err, interact.ErrThresholdOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, interact.ErrClosed), errors.Is(err, interact.ErrNotStarted), errors.Is(err, ErrNotReady):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
