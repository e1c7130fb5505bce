package learnenv

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// cycleSource repeats its draws forever.
type cycleSource struct {
	draws []float64
	next  int
}

func (c *cycleSource) Float64() float64 {
	d := c.draws[c.next%len(c.draws)]
	c.next++
	return d
}

type recordingViewer struct {
	scenes []Scene
}

func (r *recordingViewer) View(s Scene) error {
	r.scenes = append(r.scenes, s)
	return errors.New("viewer errors are ignored")
}

func TestResetObservation(t *testing.T) {
	env := New(WithSeed(1))
	obs, md := env.Reset()
	want := Observation{0, -4, 0, 0.5, 50, 70, 0}
	if diff := cmp.Diff(want, obs); diff != "" {
		t.Fatalf("reset observation mismatch (-want +got):\n%s", diff)
	}
	if md.Len() != 0 {
		t.Fatalf("expected empty metadata, got %d keys", md.Len())
	}
	if env.Status() != Running {
		t.Fatalf("expected running, got %s", env.Status())
	}
}

func TestConversationSuccess(t *testing.T) {
	env := New(WithRandSource(ConstantSource(0)))
	env.Reset()
	res, err := env.Step(Conversation)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Terminated || res.Truncated {
		t.Fatalf("expected episode to continue, got %+v", res)
	}
	if !res.Info.Success {
		t.Fatal("expected success with a zero draw")
	}
	if res.Reward != 12 {
		t.Fatalf("expected reward 12, got %v", res.Reward)
	}
	if res.Observation.Performance() != 58 || res.Observation.Engagement() != 75 {
		t.Fatalf("unexpected performance/engagement: %s", res.Observation)
	}
	moved := res.Observation.Position().Sub(initialState().Observation().Position()).Len()
	if math.Abs(float64(moved)-0.1) > 1e-5 {
		t.Fatalf("expected to move 0.1 units, moved %v", moved)
	}
	before := Conversation.Target().Sub(initialState().Observation().Position()).Len()
	after := Conversation.Target().Sub(res.Observation.Position()).Len()
	if after >= before {
		t.Fatalf("expected to get closer to the target: %v -> %v", before, after)
	}
	if res.Info.CumulativeReward != 12 {
		t.Fatalf("expected cumulative reward 12, got %v", res.Info.CumulativeReward)
	}
}

func TestConsecutiveFailuresTruncate(t *testing.T) {
	env := New(WithRandSource(ConstantSource(1)))
	env.Reset()
	var res StepResult
	var err error
	for i := 0; i < MaxErrorCount; i++ {
		if res.Done() {
			t.Fatalf("episode ended early at step %d", i)
		}
		res, err = env.Step(Vocabulary)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Reward != -7 {
			t.Fatalf("expected reward -7 on failure, got %v", res.Reward)
		}
	}
	if !res.Truncated || res.Terminated {
		t.Fatalf("expected truncation after %d failures, got %+v", MaxErrorCount, res)
	}
	state := env.State()
	if state.Performance != 30 || state.Engagement != 50 || state.CumulativeReward != -28 {
		t.Fatalf("unexpected final state: %+v", state)
	}
	if env.Status() != Truncated {
		t.Fatalf("expected truncated status, got %s", env.Status())
	}
	if _, err := env.Step(Vocabulary); !errors.Is(err, ErrEpisodeOver) {
		t.Fatalf("expected ErrEpisodeOver, got %v", err)
	}
}

func TestErrorCountResetsOnSuccess(t *testing.T) {
	env := New(WithRandSource(NewSequenceSource(1, 1, 1, 0)))
	env.Reset()
	for i, want := range []int{1, 2, 3, 0} {
		res, err := env.Step(Vocabulary)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := env.State().ErrorCount; got != want {
			t.Fatalf("step %d: expected error count %d, got %d", i, want, got)
		}
		if res.Done() || env.Status() != Running {
			t.Fatalf("step %d: expected the episode to keep running, got %s", i, env.Status())
		}
	}
}

func TestLevelUpAndBonus(t *testing.T) {
	env := New(WithRandSource(ConstantSource(0)))
	env.Reset()
	total := 0.0
	var res StepResult
	for i := 1; i <= 10; i++ {
		var err error
		res, err = env.Step(Conversation)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		total += res.Reward
		if i == 5 && res.Reward != 12+bonusReward {
			t.Fatalf("expected periodic bonus at step 5, got %v", res.Reward)
		}
	}
	if res.Reward != 12+levelUpReward+bonusReward {
		t.Fatalf("expected level up and bonus at step 10, got %v", res.Reward)
	}
	state := env.State()
	if state.Level != 1 {
		t.Fatalf("expected level 1, got %d", state.Level)
	}
	if state.Performance != 85 {
		t.Fatalf("expected performance 85 after level up, got %v", state.Performance)
	}
	if state.Position[0] != -2 {
		t.Fatalf("expected x=-2 after level up, got %v", state.Position[0])
	}
	if state.Engagement != 100 {
		t.Fatalf("expected engagement to saturate at 100, got %v", state.Engagement)
	}
	if total != 170 || state.CumulativeReward != 170 {
		t.Fatalf("expected cumulative reward 170, got %v/%v", total, state.CumulativeReward)
	}
}

func TestGoalTerminates(t *testing.T) {
	env := New(WithRandSource(ConstantSource(0)))
	env.Reset()
	var res StepResult
	steps := 0
	for !res.Done() {
		var err error
		res, err = env.Step(Conversation)
		if err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
		steps++
	}
	if steps != 41 {
		t.Fatalf("expected the goal at step 41, got %d", steps)
	}
	if !res.Terminated || res.Truncated {
		t.Fatalf("expected termination, got %+v", res)
	}
	if res.Reward != 12+goalReward {
		t.Fatalf("expected goal bonus in the step reward, got %v", res.Reward)
	}
	if res.Info.CumulativeReward != 692 {
		t.Fatalf("expected the goal bonus to stay out of the cumulative reward, got %v", res.Info.CumulativeReward)
	}
	if res.Observation.Level() != MaxLevel {
		t.Fatalf("expected max level, got %d", res.Observation.Level())
	}
}

func TestTimeTruncates(t *testing.T) {
	env := New(WithRandSource(&cycleSource{draws: []float64{0.99, 0.99, 0.99, 0}}))
	env.Reset()
	var res StepResult
	steps := 0
	for !res.Done() {
		var err error
		res, err = env.Step(Grammar)
		if err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
		steps++
	}
	if steps != int(MaxTime) {
		t.Fatalf("expected truncation at step %d, got %d", int(MaxTime), steps)
	}
	if !res.Truncated || res.Terminated {
		t.Fatalf("expected truncation, got %+v", res)
	}
	if res.Observation.NormalizedTime() != 1 {
		t.Fatalf("expected normalized time 1, got %v", res.Observation.NormalizedTime())
	}
}

func TestGoalAndTimeOnSameStep(t *testing.T) {
	env := New(WithRandSource(ConstantSource(0)))
	env.Reset()
	env.state.Level = MaxLevel
	env.state.Performance = 95
	env.state.TotalSteps = int(MaxTime) - 1
	env.state.TimeSpent = MaxTime - 1

	res, err := env.Step(Culture)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Terminated || !res.Truncated {
		t.Fatalf("expected both terminated and truncated, got %+v", res)
	}
	if want := 9 + bonusReward + goalReward; res.Reward != want {
		t.Fatalf("expected reward %v, got %v", want, res.Reward)
	}
	if res.Info.CumulativeReward != 9+bonusReward {
		t.Fatalf("expected the goal bonus to stay out of the cumulative reward, got %v", res.Info.CumulativeReward)
	}
	if env.Status() != Terminated {
		t.Fatalf("expected terminated status, got %s", env.Status())
	}
}

func TestInvalidAction(t *testing.T) {
	env := New(WithSeed(1))
	env.Reset()
	for _, a := range []Action{NoAction, Action(NumActions), Action(42)} {
		if _, err := env.Step(a); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("expected ErrInvalidAction for %d, got %v", a, err)
		}
	}
	if env.State().TotalSteps != 0 {
		t.Fatal("invalid actions must not advance the episode")
	}
}

func TestSeededDeterminism(t *testing.T) {
	play := func(env *Env) []StepResult {
		out := make([]StepResult, 0)
		for i := 0; i < 60; i++ {
			res, err := env.Step(Actions()[i%NumActions])
			if err != nil {
				break
			}
			out = append(out, res)
		}
		return out
	}

	a := New(WithSeed(7))
	a.Reset()
	b := New(WithSeed(7))
	b.Reset()
	first := play(a)
	if diff := cmp.Diff(first, play(b)); diff != "" {
		t.Fatalf("same seed diverged (-a +b):\n%s", diff)
	}

	a.Reset(Seed(7))
	if diff := cmp.Diff(first, play(a)); diff != "" {
		t.Fatalf("reseeded reset diverged (-first +again):\n%s", diff)
	}
}

func TestSeedKeepsUnseedableSource(t *testing.T) {
	env := New(WithRandSource(NewSequenceSource(1, 0)))
	env.Reset(Seed(1))
	first, _ := env.Step(Culture)
	second, _ := env.Step(Culture)
	if first.Info.Success || !second.Info.Success {
		t.Fatalf("expected the injected draws to survive a seeded reset, got %v then %v",
			first.Info.Success, second.Info.Success)
	}
}

func TestObservationStaysInBounds(t *testing.T) {
	env := New(WithSeed(3))
	rng := NewRandSource(11)
	for episode := 0; episode < 20; episode++ {
		obs, _ := env.Reset()
		if !obs.Within() {
			t.Fatalf("reset observation out of bounds: %s", obs)
		}
		for {
			a := Actions()[int(rng.Float64()*NumActions)]
			res, err := env.Step(a)
			if err != nil {
				t.Fatalf("step: %v", err)
			}
			if !res.Observation.Within() {
				t.Fatalf("observation out of bounds: %s", res.Observation)
			}
			if res.Done() {
				break
			}
		}
	}
}

func TestMetadataKeys(t *testing.T) {
	env := New(WithRandSource(ConstantSource(0)))
	env.Reset()
	res, err := env.Step(Culture)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	md := res.Info.Metadata()
	want := []string{"success", "current_state", "position", "performance", "engagement", "cumulative_reward", "last_action"}
	if diff := cmp.Diff(want, md.Keys()); diff != "" {
		t.Fatalf("metadata keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := md.Get("last_action"); v != Culture {
		t.Fatalf("expected last_action culture, got %v", v)
	}
}

func TestViewerSeesEveryFrame(t *testing.T) {
	v := &recordingViewer{}
	env := New(WithRandSource(ConstantSource(0)), WithViewer(v))
	env.Reset()
	for i := 0; i < 3; i++ {
		if _, err := env.Step(Vocabulary); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if len(v.scenes) != 4 {
		t.Fatalf("expected 4 scenes, got %d", len(v.scenes))
	}
	if v.scenes[0].LastAction != NoAction || v.scenes[3].LastAction != Vocabulary {
		t.Fatalf("unexpected last actions: %v %v", v.scenes[0].LastAction, v.scenes[3].LastAction)
	}
}

func TestSuccessProbabilityCeilings(t *testing.T) {
	cases := []struct {
		action Action
		level  int
		perf   float64
		eng    float64
		want   float64
	}{
		{Vocabulary, 0, 50, 100, 0.9},
		{Vocabulary, 4, 50, 0, 0.1},
		{Conversation, 0, 50, 70, 0.65},
		{Conversation, 4, 100, 70, 0.85},
		{Grammar, 0, 0, 70, 0.3},
		{Grammar, 0, 100, 70, 0.8},
		{Culture, 0, 50, 100, 0.9},
	}
	for _, c := range cases {
		got := SuccessProbability(c.action, c.level, c.perf, c.eng)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%s(level=%d perf=%v eng=%v) = %v, want %v", c.action, c.level, c.perf, c.eng, got, c.want)
		}
	}
}
