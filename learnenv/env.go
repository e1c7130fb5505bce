package learnenv

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrEpisodeOver = errors.New("episode is over, reset before stepping")

type Status int

const (
	Running Status = iota
	Terminated
	Truncated
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	case Truncated:
		return "truncated"
	}
	return "unknown"
}

// Scene is what a visualization needs to draw the current frame.
type Scene struct {
	Level            int
	Position         mgl32.Vec3
	Performance      float64
	Engagement       float64
	CumulativeReward float64
	LastAction       Action
}

// Viewer receives a scene after every reset and step. The simulator does not depend on
// it succeeding.
type Viewer interface {
	View(Scene) error
}

// Env is the language learning simulator. An Env is owned by a single caller.
type Env struct {
	state  EpisodeState
	status Status
	rand   RandSource
	viewer Viewer
}

type Option func(*Env)

func WithSeed(seed uint64) Option {
	return func(e *Env) {
		e.rand = NewRandSource(seed)
	}
}

// WithRandSource replaces the draws used to resolve success, mostly for tests.
func WithRandSource(r RandSource) Option {
	return func(e *Env) {
		e.rand = r
	}
}

func WithViewer(v Viewer) Option {
	return func(e *Env) {
		e.viewer = v
	}
}

func New(opts ...Option) *Env {
	e := &Env{
		state: initialState(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.rand == nil {
		e.rand = defaultRandSource()
	}
	return e
}

type resetConfig struct {
	seed   uint64
	seeded bool
}

type ResetOption func(*resetConfig)

// Seed reseeds the randomness source on reset. Sources that cannot be seeded, such
// as a SequenceSource, are kept as they are. It never changes the initial state.
func Seed(seed uint64) ResetOption {
	return func(c *resetConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// Reset starts a new episode and returns the initial observation with empty metadata.
func (e *Env) Reset(opts ...ResetOption) (Observation, Metadata) {
	cfg := &resetConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if s, ok := e.rand.(seedable); ok && cfg.seeded {
		s.Seed(cfg.seed)
	}

	e.state = initialState()
	e.status = Running
	e.view()
	return e.state.Observation(), emptyMetadata()
}

// Step advances the episode by one action.
func (e *Env) Step(a Action) (StepResult, error) {
	if !a.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}
	if e.status != Running {
		return StepResult{}, ErrEpisodeOver
	}
	s := &e.state

	s.TotalSteps++
	s.TimeSpent++

	s.moveTowards(a.Target())

	p := SuccessProbability(a, s.Level, s.Performance, s.Engagement)
	success := e.rand.Float64() < p
	reward := s.practice(a, success)

	if r, ok := s.levelUp(); ok {
		reward += r
	}
	reward += s.periodicBonus()

	s.CumulativeReward += reward

	terminated, truncated := false, false
	if s.goalReached() {
		terminated = true
		reward += goalReward
	}
	if s.givenUp() {
		truncated = true
	}
	switch {
	case terminated:
		e.status = Terminated
	case truncated:
		e.status = Truncated
	}

	s.LastAction = a
	e.view()

	return StepResult{
		Observation: s.Observation(),
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Info: Info{
			Success:          success,
			Level:            s.Level,
			Position:         s.Position,
			Performance:      s.Performance,
			Engagement:       s.Engagement,
			CumulativeReward: s.CumulativeReward,
			Action:           a,
		},
	}, nil
}

// State returns a copy of the current episode state.
func (e *Env) State() EpisodeState {
	return e.state
}

func (e *Env) Status() Status {
	return e.status
}

func (e *Env) view() {
	if e.viewer == nil {
		return
	}
	_ = e.viewer.View(e.state.Scene())
}
