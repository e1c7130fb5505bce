package learnenv

import (
	"fmt"

	"github.com/zeu5/langlearn-rl/core"
)

// State wraps an observation as a core.State, hashed through a painter.
type State struct {
	Observation Observation
	color       core.Color
}

var _ core.State = &State{}

func (s *State) Hash() string {
	return s.color.Hash()
}

func (s *State) Color() core.Color {
	return s.color
}

func (s *State) Actions() []core.Action {
	out := make([]core.Action, 0, NumActions)
	for _, a := range Actions() {
		out = append(out, a)
	}
	return out
}

// CoreEnvironment exposes an Env through the core.Environment interface.
type CoreEnvironment struct {
	env     *Env
	painter core.Painter
}

var _ core.Environment = &CoreEnvironment{}

func NewCoreEnvironment(env *Env, painter core.Painter) *CoreEnvironment {
	if painter == nil {
		painter = DefaultPainter()
	}
	return &CoreEnvironment{
		env:     env,
		painter: painter,
	}
}

func (c *CoreEnvironment) Env() *Env {
	return c.env
}

func (c *CoreEnvironment) Reset(_ *core.EpisodeContext) (core.State, error) {
	obs, _ := c.env.Reset()
	return c.state(obs), nil
}

func (c *CoreEnvironment) Step(a core.Action, _ *core.StepContext) (*core.Transition, error) {
	action, ok := a.(Action)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidAction, a)
	}
	res, err := c.env.Step(action)
	if err != nil {
		return nil, err
	}
	return &core.Transition{
		State:      c.state(res.Observation),
		Reward:     res.Reward,
		Terminated: res.Terminated,
		Truncated:  res.Truncated,
		Info:       res.Info.Metadata(),
	}, nil
}

func (c *CoreEnvironment) state(obs Observation) *State {
	return &State{
		Observation: obs,
		color:       c.painter(obs),
	}
}

// EnvironmentConstructor builds one simulator per run, seeded with Seed+run.
type EnvironmentConstructor struct {
	Seed    uint64
	Painter core.Painter
	// Viewer optionally builds the viewer attached to the simulator of a run
	Viewer func(run int) Viewer
}

var _ core.EnvironmentConstructor = &EnvironmentConstructor{}

func (c *EnvironmentConstructor) NewEnvironment(instance int) core.Environment {
	opts := []Option{WithSeed(c.Seed + uint64(instance))}
	if c.Viewer != nil {
		if v := c.Viewer(instance); v != nil {
			opts = append(opts, WithViewer(v))
		}
	}
	return NewCoreEnvironment(New(opts...), c.Painter)
}
