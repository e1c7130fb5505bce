package analysis

import (
	"fmt"
	"os"
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/util"
)

// Outcome classifies how an episode ended. When Record is set the first episode with
// the outcome is written to the outcomes directory.
type Outcome struct {
	Name   string
	Check  func(*core.Trace) bool
	Record bool
}

func lastObservation(trace *core.Trace) (learnenv.Observation, bool) {
	last := trace.Last()
	if last == nil {
		return learnenv.Observation{}, false
	}
	return observationOf(last.NextState)
}

func observationOf(s core.State) (learnenv.Observation, bool) {
	ls, ok := s.(*learnenv.State)
	if !ok {
		return learnenv.Observation{}, false
	}
	return ls.Observation, true
}

func GoalReached() Outcome {
	return Outcome{
		Name: "goal",
		Check: func(t *core.Trace) bool {
			last := t.Last()
			return last != nil && last.Terminated
		},
	}
}

// ErrorStreak matches episodes cut short by consecutive failed attempts.
func ErrorStreak() Outcome {
	return Outcome{
		Name: "error_streak",
		Check: func(t *core.Trace) bool {
			last := t.Last()
			if last == nil || !last.Truncated || t.Len() < learnenv.MaxErrorCount {
				return false
			}
			for i := t.Len() - learnenv.MaxErrorCount; i < t.Len(); i++ {
				misc := t.Step(i).Misc
				if misc == nil {
					return false
				}
				if success, _ := misc.Get("success"); success != false {
					return false
				}
			}
			return true
		},
	}
}

func OutOfTime() Outcome {
	return Outcome{
		Name: "out_of_time",
		Check: func(t *core.Trace) bool {
			last := t.Last()
			if last == nil || !last.Truncated {
				return false
			}
			obs, ok := lastObservation(t)
			return ok && obs.NormalizedTime() >= 1
		},
	}
}

// HorizonReached matches episodes the runner stopped before the simulator ended them.
func HorizonReached() Outcome {
	return Outcome{
		Name: "horizon",
		Check: func(t *core.Trace) bool {
			last := t.Last()
			return last != nil && !last.Terminated && !last.Truncated
		},
	}
}

func MaxLevelReached() Outcome {
	return Outcome{
		Name: "max_level",
		Check: func(t *core.Trace) bool {
			obs, ok := lastObservation(t)
			return ok && obs.Level() == learnenv.MaxLevel
		},
	}
}

func DefaultOutcomes() []Outcome {
	return []Outcome{GoalReached(), ErrorStreak(), OutOfTime(), HorizonReached(), MaxLevelReached()}
}

type OutcomeDataset struct {
	Episodes int            `json:"episodes"`
	Counts   map[string]int `json:"counts"`
	// FirstEpisode is the first episode with each outcome, -1 when never seen
	FirstEpisode map[string]int `json:"first_episode"`
}

func (o *OutcomeDataset) Copy() *OutcomeDataset {
	return &OutcomeDataset{
		Episodes:     o.Episodes,
		Counts:       util.CopyMap(o.Counts),
		FirstEpisode: util.CopyMap(o.FirstEpisode),
	}
}

// Rate is the fraction of episodes that ended with the named outcome.
func (o *OutcomeDataset) Rate(name string) float64 {
	if o.Episodes == 0 {
		return 0
	}
	return float64(o.Counts[name]) / float64(o.Episodes)
}

type OutcomeAnalyzer struct {
	outcomes []Outcome
	savePath string
	exp      string
	dataset  *OutcomeDataset
}

var _ core.Analyzer = &OutcomeAnalyzer{}

// NewOutcomeAnalyzer records traces under savePath/outcomes, savePath may be empty when
// no outcome is recorded.
func NewOutcomeAnalyzer(savePath, exp string, outcomes ...Outcome) *OutcomeAnalyzer {
	a := &OutcomeAnalyzer{
		outcomes: outcomes,
		exp:      exp,
	}
	if savePath != "" {
		a.savePath = path.Join(savePath, "outcomes")
	}
	a.Reset()
	return a
}

func (a *OutcomeAnalyzer) Reset() {
	a.dataset = &OutcomeDataset{
		Counts:       make(map[string]int),
		FirstEpisode: make(map[string]int),
	}
	for _, o := range a.outcomes {
		a.dataset.Counts[o.Name] = 0
		a.dataset.FirstEpisode[o.Name] = -1
	}
}

func (a *OutcomeAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if trace.Error() != nil {
		return
	}
	a.dataset.Episodes++
	for _, o := range a.outcomes {
		if !o.Check(trace) {
			continue
		}
		a.dataset.Counts[o.Name]++
		if a.dataset.FirstEpisode[o.Name] != -1 {
			continue
		}
		a.dataset.FirstEpisode[o.Name] = eCtx.Episode
		if o.Record && a.savePath != "" {
			a.record(eCtx, o.Name, trace)
		}
	}
}

func (a *OutcomeAnalyzer) record(eCtx *core.EpisodeContext, name string, trace *core.Trace) {
	if err := util.EnsureDir(a.savePath); err != nil {
		log.WithError(err).Warn("could not create outcomes directory")
		return
	}
	fileName := path.Join(a.savePath, fmt.Sprintf("%d_%s_%d.txt", eCtx.Run, name, eCtx.Episode))
	if a.exp != "" {
		fileName = path.Join(a.savePath, fmt.Sprintf("%d_%s_%s_%d.txt", eCtx.Run, a.exp, name, eCtx.Episode))
	}
	if err := os.WriteFile(fileName, []byte(traceToString(trace)), 0644); err != nil {
		log.WithError(err).WithField("file", fileName).Warn("could not record outcome")
	}
}

func (a *OutcomeAnalyzer) DataSet() core.DataSet {
	return a.dataset.Copy()
}

type OutcomeAnalyzerConstructor struct {
	SavePath string
	Outcomes []Outcome
}

var _ core.AnalyzerConstructor = &OutcomeAnalyzerConstructor{}

func NewOutcomeAnalyzerConstructor(savePath string, outcomes ...Outcome) *OutcomeAnalyzerConstructor {
	if len(outcomes) == 0 {
		outcomes = DefaultOutcomes()
	}
	return &OutcomeAnalyzerConstructor{
		SavePath: savePath,
		Outcomes: outcomes,
	}
}

func (c *OutcomeAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	return NewOutcomeAnalyzer(c.SavePath, exp, c.Outcomes...)
}
