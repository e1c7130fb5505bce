//go:build !window

package render

import (
	"image"

	"github.com/zeu5/langlearn-rl/learnenv"
)

// Window is only available when built with the window tag.
type Window struct{}

var _ Renderer = &Window{}

func NewWindow(string) (*Window, error) {
	return nil, ErrWindowUnavailable
}

func (w *Window) Render(learnenv.Scene) (image.Image, error) {
	return nil, ErrWindowUnavailable
}

func (w *Window) Close() error {
	return nil
}

func (w *Window) Run(func() error) error {
	return ErrWindowUnavailable
}
