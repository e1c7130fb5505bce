package analysis

import (
	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

// RewardDataset records, per completed episode, the total reward collected, the
// simulator's cumulative reward and the number of steps.
type RewardDataset struct {
	Returns           []float64 `json:"returns"`
	CumulativeRewards []float64 `json:"cumulative_rewards"`
	Lengths           []int     `json:"lengths"`
}

func newRewardDataset() *RewardDataset {
	return &RewardDataset{
		Returns:           make([]float64, 0),
		CumulativeRewards: make([]float64, 0),
		Lengths:           make([]int, 0),
	}
}

func (r *RewardDataset) Copy() *RewardDataset {
	return &RewardDataset{
		Returns:           util.CopySlice(r.Returns),
		CumulativeRewards: util.CopySlice(r.CumulativeRewards),
		Lengths:           util.CopySlice(r.Lengths),
	}
}

func (r *RewardDataset) Len() int {
	return len(r.Returns)
}

type RewardAnalyzer struct {
	dataset *RewardDataset
}

var _ core.Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	return &RewardAnalyzer{
		dataset: newRewardDataset(),
	}
}

func (r *RewardAnalyzer) Analyze(_ *core.EpisodeContext, trace *core.Trace) {
	if trace.Error() != nil {
		return
	}
	ret := trace.Return()
	cumulative := ret
	if last := trace.Last(); last != nil && last.Misc != nil {
		if v, ok := last.Misc.Get("cumulative_reward"); ok {
			if f, ok := v.(float64); ok {
				cumulative = f
			}
		}
	}
	r.dataset.Returns = append(r.dataset.Returns, ret)
	r.dataset.CumulativeRewards = append(r.dataset.CumulativeRewards, cumulative)
	r.dataset.Lengths = append(r.dataset.Lengths, trace.Len())
}

func (r *RewardAnalyzer) DataSet() core.DataSet {
	return r.dataset.Copy()
}

func (r *RewardAnalyzer) Reset() {
	r.dataset = newRewardDataset()
}

type RewardAnalyzerConstructor struct{}

var _ core.AnalyzerConstructor = &RewardAnalyzerConstructor{}

func NewRewardAnalyzerConstructor() *RewardAnalyzerConstructor {
	return &RewardAnalyzerConstructor{}
}

func (*RewardAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewRewardAnalyzer()
}
