package policies

import (
	"math/rand/v2"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/langlearn-rl/core"
)

// SoftMaxPolicy learns Q values like QLearningPolicy but picks actions from the
// Boltzmann distribution over them with a temperature
type SoftMaxPolicy struct {
	qTable *QTable
	params Params
	rand   *rand.Rand
	greedy bool

	episodes int
}

var _ core.GreedyPolicy = &SoftMaxPolicy{}

func NewSoftMaxPolicy(params Params) *SoftMaxPolicy {
	rng := newRand(params.Seed)
	return &SoftMaxPolicy{
		qTable: NewQTable(rng),
		params: params,
		rand:   rng,
	}
}

func (s *SoftMaxPolicy) Reset() {
	s.qTable = NewQTable(s.rand)
	s.episodes = 0
}

func (s *SoftMaxPolicy) SetGreedy(greedy bool) {
	s.greedy = greedy
}

func (s *SoftMaxPolicy) ResetEpisode(_ *core.EpisodeContext) {
}

func (s *SoftMaxPolicy) UpdateEpisode(_ *core.EpisodeContext) {
	s.episodes++
}

func (s *SoftMaxPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	stateHash := state.Hash()
	availableActions, actionsMap := hashes(actions)
	if s.greedy {
		maxAction, _ := s.qTable.MaxAmong(stateHash, availableActions, 0)
		return actionsMap[maxAction]
	}

	vals := make([]float64, len(actions))
	for i, a := range availableActions {
		vals[i] = s.qTable.Get(stateHash, a, 0)
	}
	// using the sampleuv library to sample based on the weights
	i, ok := sampleuv.NewWeighted(softmax(vals, s.params.Temperature), s.rand).Take()
	if !ok {
		return nil
	}
	return actions[i]
}

func (s *SoftMaxPolicy) UpdateStep(sCtx *core.StepContext, state core.State, action core.Action, tr *core.Transition) {
	stateHash := state.Hash()
	actionKey := action.Hash()

	target := tr.Reward
	if !tr.Terminated {
		next, _ := hashes(tr.State.Actions())
		target += s.params.Gamma * s.qTable.MaxValue(tr.State.Hash(), next, 0)
	}
	curVal := s.qTable.Get(stateHash, actionKey, 0)
	s.qTable.Set(stateHash, actionKey, (1-s.params.Alpha)*curVal+s.params.Alpha*target)
}

func (s *SoftMaxPolicy) Snapshot() *Snapshot {
	return &Snapshot{
		Kind:     KindSoftMax,
		Params:   s.params,
		Episodes: s.episodes,
		Tables:   map[string]map[string]map[string]float64{"q": s.qTable.Export()},
	}
}

func (s *SoftMaxPolicy) restore(snap *Snapshot) {
	s.episodes = snap.Episodes
	s.qTable.Import(snap.Tables["q"])
}
