package policies

import (
	"math/rand/v2"

	"github.com/zeu5/langlearn-rl/core"
)

type RandomPolicy struct {
	params Params
	rand   *rand.Rand
}

var _ core.Policy = &RandomPolicy{}

func NewRandomPolicy(params Params) *RandomPolicy {
	return &RandomPolicy{
		params: params,
		rand:   newRand(params.Seed),
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	i := r.rand.IntN(len(actions))
	return actions[i]
}

func (r *RandomPolicy) UpdateStep(_ *core.StepContext, _ core.State, _ core.Action, _ *core.Transition) {}

func (r *RandomPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) Snapshot() *Snapshot {
	return &Snapshot{
		Kind:   KindRandom,
		Params: r.params,
	}
}
