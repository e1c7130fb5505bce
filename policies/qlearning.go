package policies

import (
	"math/rand/v2"

	"github.com/zeu5/langlearn-rl/core"
)

// QLearningPolicy is tabular Q-learning with a linearly decaying epsilon-greedy
// exploration schedule.
type QLearningPolicy struct {
	qTable   *QTable
	params   Params
	rand     *rand.Rand
	episodes int
	greedy   bool
}

var _ core.GreedyPolicy = &QLearningPolicy{}

func NewQLearningPolicy(params Params) *QLearningPolicy {
	rng := newRand(params.Seed)
	return &QLearningPolicy{
		qTable: NewQTable(rng),
		params: params,
		rand:   rng,
	}
}

func (q *QLearningPolicy) Reset() {
	q.qTable = NewQTable(q.rand)
	q.episodes = 0
}

func (q *QLearningPolicy) SetGreedy(greedy bool) {
	q.greedy = greedy
}

// Epsilon is the exploration rate for the next episode.
func (q *QLearningPolicy) Epsilon() float64 {
	p := q.params
	horizon := p.ExplorationFraction * float64(p.Episodes)
	if horizon <= 0 {
		return p.EpsilonFinal
	}
	progress := float64(q.episodes) / horizon
	if progress >= 1 {
		return p.EpsilonFinal
	}
	return p.EpsilonStart + progress*(p.EpsilonFinal-p.EpsilonStart)
}

func (q *QLearningPolicy) ResetEpisode(_ *core.EpisodeContext) {
}

func (q *QLearningPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	if !q.greedy && q.rand.Float64() < q.Epsilon() {
		i := q.rand.IntN(len(actions))
		return actions[i]
	}

	availableActions, actionsMap := hashes(actions)
	maxAction, _ := q.qTable.MaxAmong(state.Hash(), availableActions, 0)
	if maxAction == "" {
		return nil
	}
	return actionsMap[maxAction]
}

func (q *QLearningPolicy) UpdateStep(sCtx *core.StepContext, state core.State, action core.Action, tr *core.Transition) {
	stateHash := state.Hash()
	actionHash := action.Hash()

	target := tr.Reward
	if !tr.Terminated {
		next, _ := hashes(tr.State.Actions())
		target += q.params.Gamma * q.qTable.MaxValue(tr.State.Hash(), next, 0)
	}
	curVal := q.qTable.Get(stateHash, actionHash, 0)
	q.qTable.Set(stateHash, actionHash, curVal+q.params.Alpha*(target-curVal))
}

func (q *QLearningPolicy) UpdateEpisode(_ *core.EpisodeContext) {
	q.episodes++
}

func (q *QLearningPolicy) QTable() *QTable {
	return q.qTable
}

func (q *QLearningPolicy) Snapshot() *Snapshot {
	return &Snapshot{
		Kind:     KindQLearning,
		Params:   q.params,
		Episodes: q.episodes,
		Tables:   map[string]map[string]map[string]float64{"q": q.qTable.Export()},
	}
}

func (q *QLearningPolicy) restore(s *Snapshot) {
	q.episodes = s.Episodes
	q.qTable.Import(s.Tables["q"])
}
