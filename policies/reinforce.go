package policies

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/langlearn-rl/core"
)

type reinforceStep struct {
	state   string
	action  string
	actions []string
	reward  float64
}

// ReinforcePolicy is a tabular softmax policy trained with REINFORCE. The return of
// every step is compared against a running mean baseline.
type ReinforcePolicy struct {
	prefs  *QTable
	params Params
	rand   *rand.Rand
	greedy bool

	episode  []reinforceStep
	baseline float64
	samples  int
	episodes int
}

var _ core.GreedyPolicy = &ReinforcePolicy{}

func NewReinforcePolicy(params Params) *ReinforcePolicy {
	rng := newRand(params.Seed)
	return &ReinforcePolicy{
		prefs:   NewQTable(rng),
		params:  params,
		rand:    rng,
		episode: make([]reinforceStep, 0),
	}
}

func (r *ReinforcePolicy) Reset() {
	r.prefs = NewQTable(r.rand)
	r.episode = make([]reinforceStep, 0)
	r.baseline = 0
	r.samples = 0
	r.episodes = 0
}

func (r *ReinforcePolicy) SetGreedy(greedy bool) {
	r.greedy = greedy
}

func (r *ReinforcePolicy) ResetEpisode(_ *core.EpisodeContext) {
	r.episode = r.episode[:0]
}

func (r *ReinforcePolicy) distribution(state string, actions []string) []float64 {
	vals := make([]float64, len(actions))
	for i, a := range actions {
		vals[i] = r.prefs.Get(state, a, 0)
	}
	return softmax(vals, r.params.Temperature)
}

func (r *ReinforcePolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	stateHash := state.Hash()
	available, actionsMap := hashes(actions)
	if r.greedy {
		best, _ := r.prefs.MaxAmong(stateHash, available, 0)
		return actionsMap[best]
	}
	i, ok := sampleuv.NewWeighted(r.distribution(stateHash, available), r.rand).Take()
	if !ok {
		return nil
	}
	return actions[i]
}

func (r *ReinforcePolicy) UpdateStep(_ *core.StepContext, state core.State, action core.Action, tr *core.Transition) {
	available, _ := hashes(state.Actions())
	r.episode = append(r.episode, reinforceStep{
		state:   state.Hash(),
		action:  action.Hash(),
		actions: available,
		reward:  tr.Reward,
	})
}

// UpdateEpisode walks the episode backwards accumulating discounted returns and
// moves the preferences along the policy gradient.
func (r *ReinforcePolicy) UpdateEpisode(_ *core.EpisodeContext) {
	r.episodes++
	if len(r.episode) == 0 {
		return
	}
	returns := make([]float64, len(r.episode))
	g := 0.0
	for t := len(r.episode) - 1; t >= 0; t-- {
		g = r.episode[t].reward + r.params.Gamma*g
		returns[t] = g
	}
	for t, s := range r.episode {
		r.samples++
		r.baseline += (returns[t] - r.baseline) / float64(r.samples)
		advantage := returns[t] - r.baseline

		probs := r.distribution(s.state, s.actions)
		for i, a := range s.actions {
			grad := -probs[i]
			if a == s.action {
				grad += 1
			}
			cur := r.prefs.Get(s.state, a, 0)
			r.prefs.Set(s.state, a, cur+r.params.LearningRate*advantage*grad)
		}
	}
	r.episode = r.episode[:0]
}

func (r *ReinforcePolicy) Snapshot() *Snapshot {
	return &Snapshot{
		Kind:     KindReinforce,
		Params:   r.params,
		Episodes: r.episodes,
		Tables:   map[string]map[string]map[string]float64{"preferences": r.prefs.Export()},
		Stats: map[string]float64{
			"baseline": r.baseline,
			"samples":  float64(r.samples),
		},
	}
}

func (r *ReinforcePolicy) restore(s *Snapshot) {
	r.episodes = s.Episodes
	r.prefs.Import(s.Tables["preferences"])
	r.baseline = s.Stats["baseline"]
	r.samples = int(s.Stats["samples"])
}
