package analysis

import (
	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

type CoverageDataset struct {
	Timesteps    []int `json:"timesteps"`
	UniqueStates []int `json:"unique_states"`
}

func (c *CoverageDataset) Copy() *CoverageDataset {
	return &CoverageDataset{
		Timesteps:    util.CopySlice(c.Timesteps),
		UniqueStates: util.CopySlice(c.UniqueStates),
	}
}

// CoverageAnalyzer counts the distinct painted states visited as training goes on.
// Without a painter the state's own hash is used.
type CoverageAnalyzer struct {
	painter core.Painter
	states  map[string]bool
	dataset *CoverageDataset
}

var _ core.Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer(painter core.Painter) *CoverageAnalyzer {
	c := &CoverageAnalyzer{painter: painter}
	c.Reset()
	return c
}

func (c *CoverageAnalyzer) Reset() {
	c.states = make(map[string]bool)
	c.dataset = &CoverageDataset{
		Timesteps:    make([]int, 0),
		UniqueStates: make([]int, 0),
	}
}

func (c *CoverageAnalyzer) key(s core.State) string {
	if c.painter != nil {
		if obs, ok := observationOf(s); ok {
			return c.painter(obs).Hash()
		}
	}
	return s.Hash()
}

func (c *CoverageAnalyzer) Analyze(_ *core.EpisodeContext, trace *core.Trace) {
	for i := 0; i < trace.Len(); i++ {
		step := trace.Step(i)
		c.states[c.key(step.State)] = true
		c.states[c.key(step.NextState)] = true
	}
	lastTimeStep := 0
	if len(c.dataset.Timesteps) > 0 {
		lastTimeStep = c.dataset.Timesteps[len(c.dataset.Timesteps)-1]
	}
	c.dataset.Timesteps = append(c.dataset.Timesteps, lastTimeStep+trace.Len())
	c.dataset.UniqueStates = append(c.dataset.UniqueStates, len(c.states))
}

func (c *CoverageAnalyzer) DataSet() core.DataSet {
	return c.dataset.Copy()
}

type CoverageAnalyzerConstructor struct {
	painter core.Painter
}

func NewCoverageAnalyzerConstructor(painter core.Painter) *CoverageAnalyzerConstructor {
	return &CoverageAnalyzerConstructor{
		painter: painter,
	}
}

var _ core.AnalyzerConstructor = &CoverageAnalyzerConstructor{}

func (c *CoverageAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewCoverageAnalyzer(c.painter)
}
