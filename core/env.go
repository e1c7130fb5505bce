package core

import (
	"context"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

type Environment interface {
	Reset(*EpisodeContext) (State, error)
	Step(Action, *StepContext) (*Transition, error)
}

type State interface {
	Hash() string
	Actions() []Action
}

type Action interface {
	Hash() string
}

// Transition is the outcome of a single environment step.
type Transition struct {
	State      State
	Reward     float64
	Terminated bool
	Truncated  bool

	Info *orderedmap.OrderedMap[string, any]
}

func (t *Transition) Done() bool {
	return t.Terminated || t.Truncated
}

type EpisodeContext struct {
	Context       context.Context
	Episode       int
	Horizon       int
	Run           int
	StartTimeStep int

	Trace *Trace

	mtx     *sync.Mutex
	done    bool
	err     error
	timeout bool
	doneCh  chan struct{}
}

func NewEpisodeContext(ctx context.Context) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		Trace:   NewTrace(),
		mtx:     new(sync.Mutex),
		doneCh:  make(chan struct{}),
	}
}

// Error, Timeout and Finish end the episode. Only the first one counts.
func (e *EpisodeContext) Error(err error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.done {
		return
	}
	e.err = err
	e.Trace.SetError(err)
	e.close()
}

func (e *EpisodeContext) Timeout() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.done {
		return
	}
	e.timeout = true
	e.close()
}

func (e *EpisodeContext) Finish() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.done {
		return
	}
	e.close()
}

func (e *EpisodeContext) close() {
	e.done = true
	close(e.doneCh)
}

func (e *EpisodeContext) IsError() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.err != nil
}

func (e *EpisodeContext) Err() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.err
}

func (e *EpisodeContext) IsTimeout() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.timeout
}

func (e *EpisodeContext) Done() <-chan struct{} {
	return e.doneCh
}

type StepContext struct {
	Step int
	*EpisodeContext
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment with the given instance number.
	NewEnvironment(int) Environment
}
