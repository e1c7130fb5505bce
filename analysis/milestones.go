package analysis

import (
	"fmt"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/util"
)

// Milestone is a checkpoint on the curriculum. Milestones are ordered: the last one
// is the final target.
type Milestone struct {
	Name  string
	Check func(learnenv.Observation) bool
}

func LevelMilestone(level int) Milestone {
	return Milestone{
		Name: fmt.Sprintf("level_%d", level),
		Check: func(o learnenv.Observation) bool {
			return o.Level() >= level
		},
	}
}

// Proficient is the goal of the curriculum: the top level with performance of 90.
func Proficient() Milestone {
	return Milestone{
		Name: "proficient",
		Check: func(o learnenv.Observation) bool {
			return o.Level() == learnenv.MaxLevel && o.Performance() >= 90
		},
	}
}

func DefaultMilestones() []Milestone {
	out := make([]Milestone, 0, learnenv.MaxLevel+1)
	for level := 1; level <= learnenv.MaxLevel; level++ {
		out = append(out, LevelMilestone(level))
	}
	return append(out, Proficient())
}

type MilestoneDataset struct {
	// FirstTimeStep and FirstEpisode are -1 until the milestone is first reached
	FirstTimeStep map[string]int `json:"first_timestep"`
	FirstEpisode  map[string]int `json:"first_episode"`
	// Episodes counts the episodes in which the milestone was reached
	Episodes map[string]int `json:"episodes"`
	// Progress is the number of milestones reached in each episode
	Progress []int `json:"progress"`
}

func (m *MilestoneDataset) Copy() *MilestoneDataset {
	return &MilestoneDataset{
		FirstTimeStep: util.CopyMap(m.FirstTimeStep),
		FirstEpisode:  util.CopyMap(m.FirstEpisode),
		Episodes:      util.CopyMap(m.Episodes),
		Progress:      util.CopySlice(m.Progress),
	}
}

type MilestoneAnalyzer struct {
	milestones   []Milestone
	dataset      *MilestoneDataset
	lastTimeStep int
}

var _ core.Analyzer = &MilestoneAnalyzer{}

func NewMilestoneAnalyzer(milestones ...Milestone) *MilestoneAnalyzer {
	if len(milestones) == 0 {
		milestones = DefaultMilestones()
	}
	m := &MilestoneAnalyzer{milestones: milestones}
	m.Reset()
	return m
}

func (m *MilestoneAnalyzer) Reset() {
	m.dataset = &MilestoneDataset{
		FirstTimeStep: make(map[string]int),
		FirstEpisode:  make(map[string]int),
		Episodes:      make(map[string]int),
		Progress:      make([]int, 0),
	}
	for _, ms := range m.milestones {
		m.dataset.FirstTimeStep[ms.Name] = -1
		m.dataset.FirstEpisode[ms.Name] = -1
		m.dataset.Episodes[ms.Name] = 0
	}
	m.lastTimeStep = 0
}

func (m *MilestoneAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	reached := make([]bool, len(m.milestones))
	for i := 0; i < trace.Len(); i++ {
		obs, ok := observationOf(trace.Step(i).NextState)
		if !ok {
			continue
		}
		for j, ms := range m.milestones {
			if reached[j] || !ms.Check(obs) {
				continue
			}
			reached[j] = true
			if m.dataset.FirstTimeStep[ms.Name] == -1 {
				m.dataset.FirstTimeStep[ms.Name] = m.lastTimeStep + i + 1
				m.dataset.FirstEpisode[ms.Name] = eCtx.Episode
			}
		}
	}
	progress := 0
	for j, ms := range m.milestones {
		if reached[j] {
			m.dataset.Episodes[ms.Name]++
			progress++
		}
	}
	m.dataset.Progress = append(m.dataset.Progress, progress)
	m.lastTimeStep += trace.Len()
}

func (m *MilestoneAnalyzer) DataSet() core.DataSet {
	return m.dataset.Copy()
}

type MilestoneAnalyzerConstructor struct {
	Milestones []Milestone
}

var _ core.AnalyzerConstructor = &MilestoneAnalyzerConstructor{}

func NewMilestoneAnalyzerConstructor(milestones ...Milestone) *MilestoneAnalyzerConstructor {
	return &MilestoneAnalyzerConstructor{Milestones: milestones}
}

func (c *MilestoneAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewMilestoneAnalyzer(c.Milestones...)
}
