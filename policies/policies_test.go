package policies

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/learnenv"
)

type testAction string

func (a testAction) Hash() string { return string(a) }

type testState struct {
	name    string
	actions []core.Action
}

func (s *testState) Hash() string           { return s.name }
func (s *testState) Actions() []core.Action { return s.actions }

func bandit() *testState {
	return &testState{name: "s", actions: []core.Action{testAction("bad"), testAction("good")}}
}

// trainBandit plays one step episodes where "good" pays 1 and "bad" pays -1.
func trainBandit(t *testing.T, p core.Policy, episodes int) {
	t.Helper()
	s := bandit()
	for i := 0; i < episodes; i++ {
		eCtx := core.NewEpisodeContext(context.Background())
		p.ResetEpisode(eCtx)
		sCtx := &core.StepContext{Step: 0, EpisodeContext: eCtx}
		a := p.PickAction(sCtx, s, s.Actions())
		if a == nil {
			t.Fatal("policy picked no action")
		}
		reward := -1.0
		if a.Hash() == "good" {
			reward = 1
		}
		p.UpdateStep(sCtx, s, a, &core.Transition{State: s, Reward: reward, Terminated: true})
		p.UpdateEpisode(eCtx)
	}
}

func greedyPick(p core.GreedyPolicy) string {
	p.SetGreedy(true)
	defer p.SetGreedy(false)
	s := bandit()
	return p.PickAction(&core.StepContext{}, s, s.Actions()).Hash()
}

func TestQTableMax(t *testing.T) {
	q := NewQTable(newRand(1))
	q.Set("s", "a", 1)
	q.Set("s", "b", 3)
	if v := q.MaxValue("s", []string{"a", "b", "c"}, 0); v != 3 {
		t.Fatalf("expected max 3, got %v", v)
	}
	if v := q.MaxValue("unknown", []string{"a"}, 2); v != 2 {
		t.Fatalf("expected the default for unseen states, got %v", v)
	}
	if q.HasState("unknown") {
		t.Fatal("MaxValue must not create entries")
	}
	a, v := q.MaxAmong("s", []string{"a", "b"}, 0)
	if a != "b" || v != 3 {
		t.Fatalf("expected b=3, got %s=%v", a, v)
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		a, _ := q.MaxAmong("tie", []string{"x", "y"}, 0)
		seen[a] = true
	}
	if !seen["x"] || !seen["y"] {
		t.Fatalf("expected ties to be broken at random, saw %v", seen)
	}
}

func TestQTableExportIsDeep(t *testing.T) {
	q := NewQTable(newRand(1))
	q.Set("s", "a", 1)
	out := q.Export()
	out["s"]["a"] = 5
	if q.Get("s", "a", 0) != 1 {
		t.Fatal("export should not alias the table")
	}
	q2 := NewQTable(newRand(1))
	q2.Import(q.Export())
	if diff := cmp.Diff(q.Export(), q2.Export()); diff != "" {
		t.Fatalf("import mismatch (-want +got):\n%s", diff)
	}
}

func TestEpsilonSchedule(t *testing.T) {
	params := DefaultParams()
	params.Episodes = 100
	params.Seed = 1
	q := NewQLearningPolicy(params)
	if q.Epsilon() != 1.0 {
		t.Fatalf("expected to start fully exploring, got %v", q.Epsilon())
	}
	for i := 0; i < 10; i++ {
		q.UpdateEpisode(nil)
	}
	if math.Abs(q.Epsilon()-0.51) > 1e-9 {
		t.Fatalf("expected epsilon 0.51 halfway, got %v", q.Epsilon())
	}
	for i := 0; i < 50; i++ {
		q.UpdateEpisode(nil)
	}
	if q.Epsilon() != 0.02 {
		t.Fatalf("expected final epsilon, got %v", q.Epsilon())
	}
	q.Reset()
	if q.Epsilon() != 1.0 {
		t.Fatal("reset should restart the schedule")
	}
}

func TestQLearningUpdate(t *testing.T) {
	params := DefaultParams()
	params.Seed = 1
	q := NewQLearningPolicy(params)
	s := bandit()
	next := &testState{name: "next", actions: s.actions}
	q.QTable().Set("next", "good", 10)

	q.UpdateStep(nil, s, testAction("good"), &core.Transition{State: next, Reward: 1})
	want := params.Alpha * (1 + params.Gamma*10)
	if got := q.QTable().Get("s", "good", 0); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected bootstrapped value %v, got %v", want, got)
	}

	q.UpdateStep(nil, s, testAction("bad"), &core.Transition{State: next, Reward: 1, Terminated: true})
	if got := q.QTable().Get("s", "bad", 0); math.Abs(got-params.Alpha) > 1e-9 {
		t.Fatalf("terminated steps should not bootstrap, got %v", got)
	}
}

func TestPoliciesLearnBandit(t *testing.T) {
	params := DefaultParams()
	params.Seed = 3
	params.Episodes = 100
	params.ExplorationFraction = 0.5
	params.LearningRate = 0.1

	for _, kind := range []string{KindQLearning, KindSoftMax, KindReinforce} {
		t.Run(kind, func(t *testing.T) {
			p, err := New(kind, params)
			if err != nil {
				t.Fatalf("new policy: %v", err)
			}
			trainBandit(t, p, 500)
			if got := greedyPick(p.(core.GreedyPolicy)); got != "good" {
				t.Fatalf("expected the greedy choice to be good, got %s", got)
			}
		})
	}
}

func TestSnapshotRestore(t *testing.T) {
	params := DefaultParams()
	params.Seed = 5
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			p, err := New(kind, params)
			if err != nil {
				t.Fatalf("new policy: %v", err)
			}
			trainBandit(t, p, 50)
			snap := p.Snapshot()
			if snap.Kind != kind {
				t.Fatalf("expected kind %s, got %s", kind, snap.Kind)
			}
			restored, err := NewPolicy(snap)
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
				t.Fatalf("snapshot mismatch after restore (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnknownKind(t *testing.T) {
	if _, err := New("dqn", DefaultParams()); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := NewConstructor("dqn", DefaultParams()); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestTrainOnSimulator(t *testing.T) {
	params := DefaultParams()
	params.Seed = 2
	params.Episodes = 20
	c, err := NewConstructor(KindQLearning, params)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}
	comparison := core.NewComparison()
	comparison.AddExperiment(&core.Experiment{
		Name:        "qlearning",
		Environment: (&learnenv.EnvironmentConstructor{Seed: 1}).NewEnvironment(0),
		Policy:      c.NewPolicy(),
	})
	results := comparison.Run(context.Background(), 1, &core.RunConfig{
		Episodes:                     20,
		Horizon:                      200,
		ThresholdConsecutiveErrors:   3,
		ThresholdConsecutiveTimeouts: 3,
	})
	if len(results) != 1 {
		t.Fatalf("expected one run, got %d", len(results))
	}
	res := results[0]["qlearning"]
	if res.IsError() || res.CompletedEpisodes != 20 {
		t.Fatalf("unexpected result: %+v", res)
	}
	q := res.Policy.(*QLearningPolicy)
	if q.QTable().Size() == 0 {
		t.Fatal("expected the q table to be populated")
	}
	if q.Snapshot().Episodes != 20 {
		t.Fatalf("expected 20 trained episodes, got %d", q.Snapshot().Episodes)
	}
}
