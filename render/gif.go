package render

import (
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeu5/langlearn-rl/util"
)

var ErrNoFrames = errors.New("no frames recorded")

// GIFRecorder keeps every Nth frame, downscaled, and writes them as an animated gif.
type GIFRecorder struct {
	every int
	scale int
	// Delay between frames in 100ths of a second
	Delay int

	mu     sync.Mutex
	seen   int
	frames []*image.Paletted
}

var _ FrameSink = &GIFRecorder{}

func NewGIFRecorder(every, scale int) *GIFRecorder {
	if every < 1 {
		every = 1
	}
	if scale < 1 {
		scale = 1
	}
	return &GIFRecorder{
		every:  every,
		scale:  scale,
		Delay:  4,
		frames: make([]*image.Paletted, 0),
	}
}

func (g *GIFRecorder) AddFrame(img image.Image) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen++
	if (g.seen-1)%g.every != 0 {
		return nil
	}
	b := img.Bounds()
	rect := image.Rect(0, 0, b.Dx()/g.scale, b.Dy()/g.scale)
	frame := image.NewPaletted(rect, palette.Plan9)
	if g.scale == 1 {
		draw.Draw(frame, rect, img, b.Min, draw.Src)
	} else {
		for y := 0; y < rect.Dy(); y++ {
			for x := 0; x < rect.Dx(); x++ {
				frame.Set(x, y, img.At(b.Min.X+x*g.scale, b.Min.Y+y*g.scale))
			}
		}
	}
	g.frames = append(g.frames, frame)
	return nil
}

func (g *GIFRecorder) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.frames)
}

// Save writes the recorded frames to path, creating parent directories.
func (g *GIFRecorder) Save(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.frames) == 0 {
		return ErrNoFrames
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	delays := make([]int, len(g.frames))
	for i := range delays {
		delays[i] = g.Delay
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &gif.GIF{
		Image: g.frames,
		Delay: delays,
	})
}
