package langlearn

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/learnenv"
)

// ErrSimulationDone is returned by Simulation.Step once every frame was played.
var ErrSimulationDone = errors.New("simulation done")

// Simulation plays a trained policy greedily for a fixed number of frames, resetting the
// simulator whenever an episode ends.
type Simulation struct {
	ctx    context.Context
	env    *learnenv.CoreEnvironment
	policy core.Policy
	frames int

	frame   int
	state   core.State
	eCtx    *core.EpisodeContext
	step    int
	returns []float64
	current float64
}

func NewSimulation(ctx context.Context, env *learnenv.CoreEnvironment, policy core.Policy, frames int) *Simulation {
	if g, ok := policy.(core.GreedyPolicy); ok {
		g.SetGreedy(true)
	}
	return &Simulation{
		ctx:     ctx,
		env:     env,
		policy:  policy,
		frames:  frames,
		returns: make([]float64, 0),
	}
}

func (s *Simulation) reset() error {
	s.eCtx = core.NewEpisodeContext(s.ctx)
	s.eCtx.Episode = len(s.returns)
	state, err := s.env.Reset(s.eCtx)
	if err != nil {
		return err
	}
	s.policy.ResetEpisode(s.eCtx)
	s.state = state
	s.step = 0
	s.current = 0
	return nil
}

// Step plays one frame.
func (s *Simulation) Step() error {
	if s.frame >= s.frames {
		return ErrSimulationDone
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.state == nil {
		if err := s.reset(); err != nil {
			return err
		}
	}
	sCtx := &core.StepContext{Step: s.step, EpisodeContext: s.eCtx}
	action := s.policy.PickAction(sCtx, s.state, s.state.Actions())
	if action == nil {
		return core.ErrNoAction
	}
	tr, err := s.env.Step(action, sCtx)
	if err != nil {
		return fmt.Errorf("frame %d: %w", s.frame, err)
	}
	s.frame++
	s.step++
	s.current += tr.Reward
	s.state = tr.State
	if tr.Done() {
		s.returns = append(s.returns, s.current)
		s.state = nil
	}
	return nil
}

// Run plays the remaining frames.
func (s *Simulation) Run() error {
	for {
		err := s.Step()
		if errors.Is(err, ErrSimulationDone) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Simulation) Frame() int {
	return s.frame
}

// Returns lists the returns of the episodes finished so far.
func (s *Simulation) Returns() []float64 {
	return append([]float64{}, s.returns...)
}

// Status is a one line summary of the simulator for live output.
func (s *Simulation) Status() string {
	st := s.env.Env().State()
	return fmt.Sprintf(
		"Frame %d/%d, Episode %d, Level: %s, Performance: %.1f, Engagement: %.1f, Reward: %.1f",
		s.frame, s.frames, len(s.returns), learnenv.LevelName(st.Level), st.Performance, st.Engagement, st.CumulativeReward,
	)
}

// NewSimulationEnvironment builds the simulator of run 0 with viewer attached.
func NewSimulationEnvironment(seed uint64, viewer learnenv.Viewer) *learnenv.CoreEnvironment {
	c := &learnenv.EnvironmentConstructor{
		Seed:    seed,
		Painter: learnenv.DefaultPainter(),
	}
	if viewer != nil {
		c.Viewer = func(int) learnenv.Viewer { return viewer }
	}
	return c.NewEnvironment(0).(*learnenv.CoreEnvironment)
}
