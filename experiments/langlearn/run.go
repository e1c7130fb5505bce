package langlearn

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/zeu5/langlearn-rl/analysis"
	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/experiments/common"
	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/policies"
	"github.com/zeu5/langlearn-rl/store"
)

const (
	RewardsAnalysis    = "Rewards"
	OutcomesAnalysis   = "Outcomes"
	CoverageAnalysis   = "Coverage"
	MilestonesAnalysis = "Milestones"
	ErrorsAnalysis     = "Errors"
	DebugAnalysis      = "Debug"
)

var ErrNoPolicies = errors.New("no policies to compare")

func NewEnvironmentConstructor(flags *common.Flags) *learnenv.EnvironmentConstructor {
	return &learnenv.EnvironmentConstructor{
		Seed:    flags.Seed,
		Painter: learnenv.DefaultPainter(),
	}
}

// PrepareTrainComparison trains one policy per kind, the experiment of kinds[i] is
// called names[i].
func PrepareTrainComparison(flags *common.Flags, kinds, names []string) (*core.ParallelComparison, error) {
	if len(kinds) == 0 {
		return nil, ErrNoPolicies
	}
	if len(names) != len(kinds) {
		return nil, fmt.Errorf("%d names for %d policies", len(names), len(kinds))
	}
	cmp := core.NewParallelComparison()
	envConstructor := NewEnvironmentConstructor(flags)
	painter := learnenv.DefaultPainter()
	savePath := path.Join(flags.SavePath, "train")

	if flags.Debug {
		cmp.AddAnalysis(DebugAnalysis, analysis.NewPrintDebugAnalyzerConstructor(savePath, flags.Episodes-10), analysis.MultiComparatorConstructor{})
	}
	cmp.AddAnalysis(RewardsAnalysis, analysis.NewRewardAnalyzerConstructor(), analysis.MultiComparatorConstructor{
		analysis.NewJSONComparatorConstructor(savePath, "rewards.json"),
		analysis.NewRewardChartComparatorConstructor(savePath, true),
	})
	cmp.AddAnalysis(OutcomesAnalysis, analysis.NewOutcomeAnalyzerConstructor(savePath), analysis.NewJSONComparatorConstructor(savePath, "outcomes.json"))
	cmp.AddAnalysis(CoverageAnalysis, analysis.NewCoverageAnalyzerConstructor(painter), analysis.NewJSONComparatorConstructor(savePath, "coverage.json"))
	cmp.AddAnalysis(MilestonesAnalysis, analysis.NewMilestoneAnalyzerConstructor(), analysis.NewJSONComparatorConstructor(savePath, "milestones.json"))
	cmp.AddAnalysis(ErrorsAnalysis, analysis.NewErrorAnalyzerConstructor(savePath), analysis.MultiComparatorConstructor{})

	seen := make(map[string]bool)
	for i, kind := range kinds {
		if seen[names[i]] {
			return nil, fmt.Errorf("duplicate policy name %q", names[i])
		}
		seen[names[i]] = true
		policy, err := policies.NewConstructor(kind, flags.PolicyParams())
		if err != nil {
			return nil, err
		}
		cmp.AddExperiment(&core.ParallelExperiment{
			Name:        names[i],
			Environment: envConstructor,
			Policy:      policy,
		})
	}
	return cmp, nil
}

// PrepareEvaluateComparison runs the stored policies and writes a reward summary to out.
func PrepareEvaluateComparison(flags *common.Flags, records []store.PolicyRecord, out io.Writer) (*core.ParallelComparison, error) {
	savePath := path.Join(flags.SavePath, "evaluate")
	return prepareStoredComparison(flags, records, analysis.MultiComparatorConstructor{
		analysis.NewSummaryComparatorConstructor(savePath, out),
		analysis.NewJSONComparatorConstructor(savePath, "rewards.json"),
	})
}

// PreparePlotComparison runs the stored policies and charts their cumulative rewards
// into <save-path>/plot.
func PreparePlotComparison(flags *common.Flags, records []store.PolicyRecord) (*core.ParallelComparison, error) {
	return prepareStoredComparison(flags, records, analysis.NewRewardChartComparatorConstructor(path.Join(flags.SavePath, "plot"), false))
}

func prepareStoredComparison(flags *common.Flags, records []store.PolicyRecord, rewards core.ComparatorConstructor) (*core.ParallelComparison, error) {
	if len(records) == 0 {
		return nil, ErrNoPolicies
	}
	cmp := core.NewParallelComparison()
	envConstructor := NewEnvironmentConstructor(flags)
	cmp.AddAnalysis(RewardsAnalysis, analysis.NewRewardAnalyzerConstructor(), rewards)
	cmp.AddAnalysis(ErrorsAnalysis, analysis.NewErrorAnalyzerConstructor(flags.SavePath), analysis.MultiComparatorConstructor{})

	for _, name := range ExperimentNames(records) {
		cmp.AddExperiment(&core.ParallelExperiment{
			Name:        name.Experiment,
			Environment: envConstructor,
			Policy:      &policies.SnapshotConstructor{Snapshot: name.Record.Snapshot},
		})
	}
	return cmp, nil
}

type NamedRecord struct {
	Experiment string
	Record     store.PolicyRecord
}

// ExperimentNames names experiments after their policy, suffixing repeated policies.
func ExperimentNames(records []store.PolicyRecord) []NamedRecord {
	count := make(map[string]int)
	out := make([]NamedRecord, 0, len(records))
	for _, r := range records {
		count[r.Name]++
		name := r.Name
		if count[r.Name] > 1 {
			name = fmt.Sprintf("%s#%d", r.Name, count[r.Name])
		}
		out = append(out, NamedRecord{Experiment: name, Record: r})
	}
	return out
}

// TrainedSnapshots returns the snapshot of every experiment that finished training.
func TrainedSnapshots(results core.RunResults) map[string]*policies.Snapshot {
	out := make(map[string]*policies.Snapshot)
	for name, r := range results {
		if r.IsError() {
			continue
		}
		if s, ok := r.Policy.(policies.Snapshotter); ok {
			out[name] = s.Snapshot()
		}
	}
	return out
}

// Returns is the per episode return of an experiment, nil if it has none.
func Returns(results core.RunResults, experiment string) []float64 {
	r, ok := results[experiment]
	if !ok {
		return nil
	}
	d, ok := r.Datasets[RewardsAnalysis].(*analysis.RewardDataset)
	if !ok || d == nil {
		return nil
	}
	return d.Returns
}
