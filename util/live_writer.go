package util

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/gosuri/uilive"
	"github.com/mattn/go-isatty"
)

// LiveWriter is a multi-line writer whose lines are rewritten in place.
type LiveWriter interface {
	io.Writer
	Newline() io.Writer
	Start()
	Stop()
}

// NewLiveWriter returns a uilive writer when out is a terminal. Otherwise the lines are
// buffered and only their final contents are written when the writer stops.
func NewLiveWriter(out io.Writer) LiveWriter {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w := uilive.New()
		w.Out = out
		return w
	}
	return newPlainWriter(out)
}

type plainWriter struct {
	mu    *sync.Mutex
	out   io.Writer
	lines []*plainLine
}

type plainLine struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func newPlainWriter(out io.Writer) *plainWriter {
	p := &plainWriter{
		mu:    new(sync.Mutex),
		out:   out,
		lines: make([]*plainLine, 0),
	}
	p.Newline()
	return p
}

func (p *plainWriter) Write(b []byte) (int, error) {
	return p.lines[0].Write(b)
}

func (p *plainWriter) Newline() io.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := &plainLine{mu: p.mu, buf: new(bytes.Buffer)}
	p.lines = append(p.lines, l)
	return l
}

func (p *plainWriter) Start() {}

func (p *plainWriter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.lines {
		if l.buf.Len() > 0 {
			p.out.Write(l.buf.Bytes())
		}
	}
}

// Write keeps only the latest contents of the line
func (l *plainLine) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Reset()
	return l.buf.Write(b)
}
