package overlay

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewx/mapcanvas/internal/valuerange"
	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/metrics"
	"github.com/gonewx/mapcanvas/pkg/particle"
	"github.com/gonewx/mapcanvas/pkg/surface"
)

// quadrants returns a 4x4 image: red top-left 2x2, transparent elsewhere.
func quadrants() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 0xff, A: 0xff})
		}
	}
	return img
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestFrameStore_NoFrame(t *testing.T) {
	store := NewFrameStore(image.Rect(0, 0, 4, 4))
	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestFrameStore_PublishCrops(t *testing.T) {
	store := NewFrameStore(image.Rect(1, 1, 3, 3))

	f, err := store.Publish(quadrants())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, `"1"`, f.ETag())

	img := decodePNG(t, f.PNG)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	// (1,1) of the canvas is red, (2,2) is transparent.
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	_, _, _, a = img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0), a)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Same(t, f, latest)
}

func TestFrameStore_SequenceIncreases(t *testing.T) {
	store := NewFrameStore(image.Rect(0, 0, 4, 4))
	for i := 1; i <= 3; i++ {
		f, err := store.Publish(quadrants())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), f.Seq)
	}
}

func TestFrameStore_PublishOutsideCanvas(t *testing.T) {
	store := NewFrameStore(image.Rect(0, 0, 8, 8))
	_, err := store.Publish(quadrants())
	assert.Error(t, err)
}

func TestFrameStore_Scale(t *testing.T) {
	store := NewFrameStore(image.Rect(0, 0, 4, 2))
	f, err := store.Publish(quadrants())
	require.NoError(t, err)

	data, err := store.Scale(f, 8)
	require.NoError(t, err)
	img := decodePNG(t, data)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	_, err = store.Scale(f, 0)
	assert.Error(t, err)
	_, err = store.Scale(f, MaxScaledSize+1)
	assert.Error(t, err)
}

func newTestServer(t *testing.T) (*Server, *FrameStore, *prometheus.Registry) {
	t.Helper()
	src := config.DefaultCanvasSource()
	src.Dimensions = [4]int{0, 0, 4, 4}
	store := NewFrameStore(src.Rect())
	reg := prometheus.NewRegistry()
	return NewServer(store, src, reg, nil), store, reg
}

func TestServer_CanvasBeforeFirstFrame(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CanvasPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Canvas(t *testing.T) {
	srv, store, _ := newTestServer(t)
	f, err := store.Publish(quadrants())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CanvasPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, f.ETag(), rec.Header().Get("ETag"))
	assert.Equal(t, f.PNG, rec.Body.Bytes())
}

func TestServer_CanvasNotModified(t *testing.T) {
	srv, store, _ := newTestServer(t)
	f, err := store.Publish(quadrants())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, CanvasPath, nil)
	req.Header.Set("If-None-Match", f.ETag())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	// A newer frame invalidates the tag.
	_, err = store.Publish(quadrants())
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CanvasScaled(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, err := store.Publish(quadrants())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"scaled", "?size=16", http.StatusOK},
		{"not a number", "?size=big", http.StatusBadRequest},
		{"zero", "?size=0", http.StatusBadRequest},
		{"too large", "?size=99999", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CanvasPath+tt.query, nil))
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				img := decodePNG(t, rec.Body.Bytes())
				assert.Equal(t, 16, img.Bounds().Dx())
				assert.Equal(t, `"1-16"`, rec.Header().Get("ETag"))
			}
		})
	}
}

func TestServer_Source(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, err := store.Publish(quadrants())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SourcePath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var desc SourceDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, "canvas", desc.Type)
	assert.Equal(t, CanvasPath, desc.URL)
	assert.Equal(t, [2]float64{-81.490, 46.437}, desc.Coordinates[0])
	assert.Equal(t, [4]int{0, 0, 4, 4}, desc.Dimensions)
	assert.Equal(t, 0.85, desc.Opacity)
	assert.Equal(t, uint64(1), desc.Frame)
	assert.Contains(t, rec.Body.String(), `"raster-opacity":0.85`)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, SourcePath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_MetricsMounted(t *testing.T) {
	srv, _, reg := newTestServer(t)
	_, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mapcanvas_ticks_total")

	bare := NewServer(NewFrameStore(image.Rect(0, 0, 1, 1)), config.DefaultCanvasSource(), nil, nil)
	rec = httptest.NewRecorder()
	bare.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, err := store.Publish(quadrants())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + SourcePath)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRenderer_TickPublishesFrames(t *testing.T) {
	opts := particle.DefaultOptions()
	opts.VelocityX = valuerange.Fixed(0)
	opts.VelocityY = valuerange.Fixed(-5)
	opts.Radius = valuerange.Fixed(4)
	sim, err := particle.NewSimulator(opts, 40, 40, particle.WithSeed(1))
	require.NoError(t, err)

	canvas := surface.NewCanvasSurface(40, 40)
	defer canvas.Close()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	store := NewFrameStore(image.Rect(0, 0, 40, 40))
	r := NewRenderer(sim, canvas, store, collector, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Tick())
	}

	f, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.Seq)
	assert.Equal(t, 3, sim.Size())

	// Three particles straight above the emitter at (20, 40).
	_, _, _, a := f.Image.At(20, 35).RGBA()
	assert.NotZero(t, a, "expected a painted particle above the emitter")

	assert.Equal(t, 3.0, gaugeValue(t, reg, "mapcanvas_pool_size"))
}

func TestRenderer_TickErrorCounted(t *testing.T) {
	sim, err := particle.NewSimulator(particle.DefaultOptions(), 10, 10, particle.WithSeed(1))
	require.NoError(t, err)

	rec := &failingCanvas{Recorder: surface.NewRecorder()}
	rec.FillErr = assert.AnError

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	r := NewRenderer(sim, rec, NewFrameStore(image.Rect(0, 0, 10, 10)), collector, nil)
	assert.ErrorIs(t, r.Tick(), assert.AnError)

	n, err := testutil.GatherAndCount(reg, "mapcanvas_tick_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, counterValue(t, reg, "mapcanvas_tick_errors_total"))
}

func TestRenderer_PublishErrorCounted(t *testing.T) {
	sim, err := particle.NewSimulator(particle.DefaultOptions(), 10, 10, particle.WithSeed(1))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	// 裁剪矩形超出 10x10 画布，发布失败
	canvas := &failingCanvas{Recorder: surface.NewRecorder()}
	r := NewRenderer(sim, canvas, NewFrameStore(image.Rect(0, 0, 20, 20)), collector, nil)
	assert.Error(t, r.Tick())

	assert.Equal(t, 1.0, counterValue(t, reg, "mapcanvas_tick_errors_total"))
	assert.Equal(t, 0.0, counterValue(t, reg, "mapcanvas_ticks_total"))
}

type failingCanvas struct {
	*surface.Recorder
}

func (failingCanvas) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

// counterValue reads a registered counter through the gatherer.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

// gaugeValue reads a registered gauge through the gatherer.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
