package langlearn

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeu5/langlearn-rl/experiments/common"
	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/policies"
	"github.com/zeu5/langlearn-rl/store"
)

func testFlags(t *testing.T) *common.Flags {
	flags := common.DefaultFlags()
	flags.SavePath = t.TempDir()
	flags.Episodes = 30
	flags.Seed = 3
	flags.Parallelism = 2
	return flags
}

func TestTrainComparison(t *testing.T) {
	flags := testFlags(t)
	cmp, err := PrepareTrainComparison(flags, []string{policies.KindQLearning, policies.KindRandom}, []string{"dqn", "random"})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	cmp.Out = io.Discard
	results := cmp.Run(context.Background(), 1, flags.RunConfig(flags.Episodes, false), flags.Parallelism)
	if len(results) != 1 {
		t.Fatalf("expected one run, got %d", len(results))
	}
	for _, name := range []string{"dqn", "random"} {
		r := results[0][name]
		if r == nil || r.IsError() {
			t.Fatalf("experiment %s failed: %+v", name, r)
		}
		if r.CompletedEpisodes != flags.Episodes {
			t.Fatalf("expected %d episodes for %s, got %d", flags.Episodes, name, r.CompletedEpisodes)
		}
		if got := len(Returns(results[0], name)); got != flags.Episodes {
			t.Fatalf("expected %d returns for %s, got %d", flags.Episodes, name, got)
		}
	}

	snapshots := TrainedSnapshots(results[0])
	if snapshots["dqn"] == nil || snapshots["dqn"].Kind != policies.KindQLearning {
		t.Fatalf("expected a q-learning snapshot, got %+v", snapshots["dqn"])
	}
	if len(snapshots["dqn"].Tables["q"]) == 0 {
		t.Fatal("expected the trained q table in the snapshot")
	}

	for _, file := range []string{"rewards.json", "outcomes.json", "coverage.json", "milestones.json", "cumulative_rewards.html"} {
		if _, err := os.Stat(filepath.Join(flags.SavePath, "train", "0", file)); err != nil {
			t.Fatalf("expected %s to be written: %v", file, err)
		}
	}
}

func TestTrainComparisonErrors(t *testing.T) {
	flags := testFlags(t)
	if _, err := PrepareTrainComparison(flags, nil, nil); !errors.Is(err, ErrNoPolicies) {
		t.Fatalf("expected ErrNoPolicies, got %v", err)
	}
	if _, err := PrepareTrainComparison(flags, []string{"dqn-v2"}, []string{"x"}); !errors.Is(err, policies.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := PrepareTrainComparison(flags, []string{policies.KindRandom, policies.KindRandom}, []string{"r", "r"}); err == nil {
		t.Fatal("expected an error for duplicate names")
	}
	if _, err := PrepareTrainComparison(flags, []string{policies.KindRandom}, []string{"a", "b"}); err == nil {
		t.Fatal("expected an error for mismatched names")
	}
}

func TestEvaluateComparison(t *testing.T) {
	flags := testFlags(t)
	records := []store.PolicyRecord{
		store.NewPolicyRecord("dqn", "run", policies.NewQLearningPolicy(flags.PolicyParams()).Snapshot()),
		store.NewPolicyRecord("pg", "run", policies.NewReinforcePolicy(flags.PolicyParams()).Snapshot()),
	}
	out := new(bytes.Buffer)
	cmp, err := PrepareEvaluateComparison(flags, records, out)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	cmp.Out = io.Discard
	results := cmp.Run(context.Background(), 1, flags.RunConfig(flags.EvalEpisodes, true), flags.Parallelism)
	if got := len(Returns(results[0], "pg")); got != flags.EvalEpisodes {
		t.Fatalf("expected %d evaluation episodes, got %d", flags.EvalEpisodes, got)
	}
	text := out.String()
	if !strings.Contains(text, "dqn: Mean reward") || !strings.Contains(text, "Difference (pg - dqn)") {
		t.Fatalf("unexpected summary:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(flags.SavePath, "evaluate", "0", "summary.json")); err != nil {
		t.Fatalf("expected the summary to be written: %v", err)
	}
}

func TestPlotComparison(t *testing.T) {
	flags := testFlags(t)
	records := []store.PolicyRecord{
		store.NewPolicyRecord("dqn", "run", policies.NewQLearningPolicy(flags.PolicyParams()).Snapshot()),
		store.NewPolicyRecord("dqn", "run", policies.NewQLearningPolicy(flags.PolicyParams()).Snapshot()),
	}
	cmp, err := PreparePlotComparison(flags, records)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	cmp.Out = io.Discard
	results := cmp.Run(context.Background(), 1, flags.RunConfig(flags.PlotEpisodes, true), flags.Parallelism)
	if _, ok := results[0]["dqn#2"]; !ok {
		t.Fatalf("expected the repeated policy to be renamed, got %v", results[0])
	}
	if _, err := os.Stat(filepath.Join(flags.SavePath, "plot", "cumulative_rewards.html")); err != nil {
		t.Fatalf("expected the chart to be written: %v", err)
	}

	if _, err := PreparePlotComparison(flags, nil); !errors.Is(err, ErrNoPolicies) {
		t.Fatalf("expected ErrNoPolicies, got %v", err)
	}
}

type countingViewer struct {
	views int
}

func (c *countingViewer) View(learnenv.Scene) error {
	c.views++
	return nil
}

func TestSimulation(t *testing.T) {
	viewer := &countingViewer{}
	env := NewSimulationEnvironment(1, viewer)
	policy := policies.NewQLearningPolicy(policies.DefaultParams())
	sim := NewSimulation(context.Background(), env, policy, 200)
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sim.Frame() != 200 {
		t.Fatalf("expected 200 frames, got %d", sim.Frame())
	}
	episodes := len(sim.Returns())
	if episodes < 2 {
		t.Fatalf("episodes last at most %v steps, expected at least 2 finished, got %d", learnenv.MaxTime, episodes)
	}
	// one scene per step and one per reset
	if viewer.views < 200+episodes {
		t.Fatalf("expected at least %d scenes, got %d", 200+episodes, viewer.views)
	}
	if err := sim.Step(); !errors.Is(err, ErrSimulationDone) {
		t.Fatalf("expected ErrSimulationDone, got %v", err)
	}
	if !strings.HasPrefix(sim.Status(), "Frame 200/200") {
		t.Fatalf("unexpected status %q", sim.Status())
	}
}

func TestSimulationCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim := NewSimulation(ctx, NewSimulationEnvironment(1, nil), policies.NewRandomPolicy(policies.DefaultParams()), 10)
	if err := sim.Run(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
