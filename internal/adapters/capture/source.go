package capture

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easyshift/presence/internal/domain/model"
)

// Source abstracts the platform camera backend. A real deployment plugs in
// a platform-specific implementation; the in-memory sources below back tests
// and the scan-sim harness.
type Source interface {
	// Acquire requests a hardware stream satisfying c. Failures must be one
	// of this package's sentinel kinds (possibly wrapped).
	Acquire(ctx context.Context, c Constraints) (FrameSource, error)
}

// FrameSource is a live hardware stream handle.
type FrameSource interface {
	// Frame returns the latest frame. There is no queue: a caller always
	// observes the newest frame, never a backlog.
	Frame(ctx context.Context) (model.Frame, error)

	// Release frees the hardware handle. Idempotent.
	Release() error
}

// Stream is an open camera stream owned by a Device.
type Stream struct {
	src         FrameSource
	constraints Constraints
	live        atomic.Bool
}

func newStream(src FrameSource, c Constraints) *Stream {
	s := &Stream{src: src, constraints: c}
	s.live.Store(true)
	return s
}

// Frame pulls the latest frame from the underlying source.
func (s *Stream) Frame(ctx context.Context) (model.Frame, error) {
	if !s.live.Load() {
		return model.Frame{}, ErrStreamClosed
	}
	return s.src.Frame(ctx)
}

// Live reports whether the stream still holds its hardware handle.
func (s *Stream) Live() bool { return s.live.Load() }

// Facing reports the facing mode the stream was negotiated with.
func (s *Stream) Facing() model.Facing { return s.constraints.Facing }

func (s *Stream) close() error {
	if !s.live.CompareAndSwap(true, false) {
		return nil
	}
	return s.src.Release()
}

// StillSource is a Source whose stream repeats a single fixed image. Useful
// for tests and simulations that need a decodable (or undecodable) feed.
type StillSource struct {
	img image.Image
}

// NewStillSource creates a source that serves img on every frame pull.
func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

// Acquire implements Source. All constraints are accepted.
func (s *StillSource) Acquire(_ context.Context, _ Constraints) (FrameSource, error) {
	return &stillStream{img: s.img}, nil
}

type stillStream struct {
	img      image.Image
	released atomic.Bool
}

func (s *stillStream) Frame(_ context.Context) (model.Frame, error) {
	if s.released.Load() {
		return model.Frame{}, ErrStreamClosed
	}
	b := s.img.Bounds()
	return model.Frame{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Image:      s.img,
		CapturedAt: time.Now(),
	}, nil
}

func (s *stillStream) Release() error {
	s.released.Store(true)
	return nil
}

// ScriptedSource serves a fixed sequence of images, then repeats the last
// one. A nil entry yields a blank gray frame.
type ScriptedSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
}

// NewScriptedSource creates a source that plays frames in order.
func NewScriptedSource(frames ...image.Image) *ScriptedSource {
	return &ScriptedSource{frames: frames}
}

// Acquire implements Source.
func (s *ScriptedSource) Acquire(_ context.Context, _ Constraints) (FrameSource, error) {
	return &scriptedStream{src: s}, nil
}

func (s *ScriptedSource) frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return blankFrame()
	}
	img := s.frames[s.next]
	if s.next < len(s.frames)-1 {
		s.next++
	}
	if img == nil {
		return blankFrame()
	}
	return img
}

type scriptedStream struct {
	src      *ScriptedSource
	released atomic.Bool
}

func (s *scriptedStream) Frame(_ context.Context) (model.Frame, error) {
	if s.released.Load() {
		return model.Frame{}, ErrStreamClosed
	}
	img := s.src.frame()
	b := img.Bounds()
	return model.Frame{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Image:      img,
		CapturedAt: time.Now(),
	}, nil
}

func (s *scriptedStream) Release() error {
	s.released.Store(true)
	return nil
}

// FailingSource is a Source that always fails with a fixed error. Used to
// exercise the access-error taxonomy.
type FailingSource struct {
	Err error
}

// Acquire implements Source.
func (s *FailingSource) Acquire(_ context.Context, _ Constraints) (FrameSource, error) {
	return nil, s.Err
}

func blankFrame() image.Image {
	return image.NewGray(image.Rect(0, 0, 320, 240))
}
