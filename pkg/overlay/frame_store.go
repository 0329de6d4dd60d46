// Package overlay publishes the rendered canvas to map consumers.
//
// The render loop publishes every finished frame into a FrameStore; HTTP
// handlers read the latest snapshot on the consumer's own schedule. Snapshots
// are immutable, so readers never observe a half-drawn canvas.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
)

// MaxScaledSize bounds the longest side of a scaled frame.
const MaxScaledSize = 4096

// ErrNoFrame is returned before the first frame has been published.
var ErrNoFrame = errors.New("overlay: no frame published yet")

// Frame is an immutable snapshot of the canvas source rectangle.
type Frame struct {
	Seq       uint64 // publish sequence, starts at 1
	Image     *image.RGBA
	PNG       []byte
	Published time.Time
}

// ETag returns a strong entity tag identifying the frame.
func (f *Frame) ETag() string {
	return `"` + strconv.FormatUint(f.Seq, 10) + `"`
}

// FrameStore keeps the latest published frame.
type FrameStore struct {
	rect    image.Rectangle
	encoder png.Encoder

	mu     sync.RWMutex
	latest *Frame
	seq    uint64
}

// NewFrameStore creates a store that crops published images to rect.
func NewFrameStore(rect image.Rectangle) *FrameStore {
	return &FrameStore{
		rect:    rect,
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Rect returns the crop rectangle in canvas pixels.
func (s *FrameStore) Rect() image.Rectangle {
	return s.rect
}

// Publish crops img to the store rectangle, encodes it and makes it the
// latest frame. Called from the render goroutine only.
func (s *FrameStore) Publish(img image.Image) (*Frame, error) {
	if !s.rect.In(img.Bounds()) {
		return nil, fmt.Errorf("overlay: crop %v outside canvas %v", s.rect, img.Bounds())
	}

	cropped := image.NewRGBA(image.Rect(0, 0, s.rect.Dx(), s.rect.Dy()))
	xdraw.Draw(cropped, cropped.Bounds(), img, s.rect.Min, xdraw.Src)

	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("overlay: encode frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f := &Frame{
		Seq:       s.seq,
		Image:     cropped,
		PNG:       buf.Bytes(),
		Published: time.Now(),
	}
	s.latest = f
	return f, nil
}

// Latest returns the most recent frame or ErrNoFrame.
func (s *FrameStore) Latest() (*Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoFrame
	}
	return s.latest, nil
}

// Scale resizes the frame so that its longest side is size pixels, keeping
// the aspect ratio, and encodes it as PNG.
func (s *FrameStore) Scale(f *Frame, size int) ([]byte, error) {
	if size <= 0 || size > MaxScaledSize {
		return nil, fmt.Errorf("overlay: size %d out of range 1..%d", size, MaxScaledSize)
	}

	w, h := f.Image.Bounds().Dx(), f.Image.Bounds().Dy()
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), f.Image, f.Image.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("overlay: encode scaled frame: %w", err)
	}
	return buf.Bytes(), nil
}
