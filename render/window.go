//go:build window

package render

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/zeu5/langlearn-rl/learnenv"
)

// Window shows frames in a desktop window. Render only records the frame, the
// window is driven by Run which must be called from the main goroutine.
type Window struct {
	title  string
	canvas *Canvas

	mu     sync.Mutex
	frame  *image.RGBA
	scene  learnenv.Scene
	closed bool

	screen *ebiten.Image
	step   func() error
}

var _ Renderer = &Window{}

func NewWindow(title string) (*Window, error) {
	return &Window{
		title:  title,
		canvas: NewCanvas(Width, Height),
	}, nil
}

func (w *Window) Render(scene learnenv.Scene) (image.Image, error) {
	img, err := w.canvas.Render(scene)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame = img.(*image.RGBA)
	w.scene = scene
	return img, nil
}

func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Run opens the window and calls step once per tick until step fails, the window is
// closed or Close is called.
func (w *Window) Run(step func() error) error {
	w.step = step
	ebiten.SetWindowSize(Width, Height)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetTPS(30)
	err := ebiten.RunGame(w)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (w *Window) Update() error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ebiten.Termination
	}
	if w.step != nil {
		if err := w.step(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	frame, scene := w.frame, w.scene
	w.mu.Unlock()
	if frame == nil {
		return
	}
	if w.screen == nil {
		w.screen = ebiten.NewImage(Width, Height)
	}
	w.screen.WritePixels(frame.Pix)
	screen.DrawImage(w.screen, nil)
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s\nLevel: %s\nLesson: %s\nPerformance: %.1f  Engagement: %.1f  Reward: %.1f",
		w.title,
		learnenv.LevelName(scene.Level),
		learnenv.Lesson(scene.Level, scene.LastAction),
		scene.Performance, scene.Engagement, scene.CumulativeReward,
	))
}

func (w *Window) Layout(_, _ int) (int, int) {
	return Width, Height
}
