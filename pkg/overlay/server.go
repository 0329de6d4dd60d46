package overlay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Endpoint paths.
const (
	CanvasPath  = "/canvas.png"
	SourcePath  = "/source.json"
	MetricsPath = "/metrics"
)

const shutdownTimeout = 5 * time.Second

// SourceDescriptor is the map style "canvas" source served to consumers.
type SourceDescriptor struct {
	Type        string          `json:"type"`
	URL         string          `json:"url"`
	Coordinates [4][2]float64   `json:"coordinates"`
	Dimensions  [4]int          `json:"dimensions"`
	Animate     bool            `json:"animate"`
	Opacity     float64         `json:"raster-opacity"`
	Viewport    config.Viewport `json:"viewport"`
	Frame       uint64          `json:"frame"`
}

// Server serves the canvas source over HTTP.
type Server struct {
	store    *FrameStore
	source   config.CanvasSource
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer creates a server. gatherer and logger may be nil; without a
// gatherer /metrics is not mounted.
func NewServer(store *FrameStore, source config.CanvasSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    store,
		source:   source,
		gatherer: gatherer,
		logger:   logger.Named("Overlay"),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CanvasPath, s.handleCanvas)
	mux.HandleFunc("GET "+SourcePath, s.handleSource)
	if s.gatherer != nil {
		mux.Handle("GET "+MetricsPath, metrics.Handler(s.gatherer))
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("overlay server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down overlay server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	frame, err := s.store.Latest()
	if err != nil {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}

	body := frame.PNG
	etag := frame.ETag()
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 || size > MaxScaledSize {
			http.Error(w, fmt.Sprintf("size must be an integer in 1..%d", MaxScaledSize), http.StatusBadRequest)
			return
		}
		etag = `"` + strconv.FormatUint(frame.Seq, 10) + "-" + raw + `"`
		if !notModified(r, etag) {
			body, err = s.store.Scale(frame, size)
			if err != nil {
				s.logger.Error("scale frame", zap.Error(err))
				http.Error(w, "failed to scale frame", http.StatusInternalServerError)
				return
			}
		}
	}

	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-store")
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write canvas response", zap.Error(err))
	}
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	desc := s.Descriptor()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(desc); err != nil {
		s.logger.Error("encode source descriptor", zap.Error(err))
	}
}

// Descriptor returns the canvas source as served on SourcePath.
func (s *Server) Descriptor() SourceDescriptor {
	desc := SourceDescriptor{
		Type:        config.CanvasSourceType,
		URL:         CanvasPath,
		Coordinates: s.source.Coordinates,
		Dimensions:  s.source.Dimensions,
		Animate:     s.source.Animate,
		Opacity:     s.source.Opacity,
		Viewport:    s.source.Viewport,
	}
	if f, err := s.store.Latest(); err == nil {
		desc.Frame = f.Seq
	}
	return desc
}

func notModified(r *http.Request, etag string) bool {
	return r.Header.Get("If-None-Match") == etag
}
