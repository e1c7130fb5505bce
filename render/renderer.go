package render

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/zeu5/langlearn-rl/learnenv"
)

const (
	Width  = 800
	Height = 600

	Title = "Kinyarwanda Language Learning"
)

var (
	ErrWindowUnavailable = errors.New("window renderer unavailable in this build; rebuild with -tags window")
	ErrUnknownMode       = errors.New("unknown render mode")
)

// Renderer turns a scene into a frame. Renderers that do not produce pixels return a
// nil image.
type Renderer interface {
	Render(learnenv.Scene) (image.Image, error)
	Close() error
}

type Mode string

const (
	ModeNone     Mode = "none"
	ModeRGBArray Mode = "rgb_array"
	ModeHuman    Mode = "human"
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none", "headless":
		return ModeNone, nil
	case "rgb_array", "canvas":
		return ModeRGBArray, nil
	case "human", "window":
		return ModeHuman, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func NewRenderer(mode Mode) (Renderer, error) {
	switch mode {
	case ModeNone:
		return Headless{}, nil
	case ModeRGBArray:
		return NewCanvas(Width, Height), nil
	case ModeHuman:
		w, err := NewWindow(Title)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// FrameSink consumes rendered frames, see GIFRecorder.
type FrameSink interface {
	AddFrame(image.Image) error
}

// FrameViewer adapts a Renderer to learnenv.Viewer. It keeps the last frame and
// forwards every frame to its sinks.
type FrameViewer struct {
	renderer Renderer
	sinks    []FrameSink

	mu     sync.Mutex
	last   image.Image
	frames int
	err    error
}

var _ learnenv.Viewer = &FrameViewer{}

func Viewer(r Renderer, sinks ...FrameSink) *FrameViewer {
	return &FrameViewer{
		renderer: r,
		sinks:    sinks,
	}
}

func (v *FrameViewer) View(scene learnenv.Scene) error {
	img, err := v.renderer.Render(scene)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.frames++
	if err != nil {
		v.err = err
		return err
	}
	v.last = img
	if img == nil {
		return nil
	}
	for _, s := range v.sinks {
		if err := s.AddFrame(img); err != nil {
			v.err = err
			return err
		}
	}
	return nil
}

// Last is the most recent frame, nil for renderers without pixels.
func (v *FrameViewer) Last() image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

func (v *FrameViewer) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// Err is the last rendering error. The simulator ignores viewer errors so callers
// check here.
func (v *FrameViewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

type Headless struct{}

func (Headless) Render(learnenv.Scene) (image.Image, error) {
	return nil, nil
}

func (Headless) Close() error {
	return nil
}
