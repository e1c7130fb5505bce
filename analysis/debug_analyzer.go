package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"github.com/elliotchance/orderedmap/v2"
	log "github.com/sirupsen/logrus"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/util"
)

type PrintDebugAnalyzer struct {
	// savePath is the path to save the trace
	savePath string
	exp      string
	// will save the trace to the file only after the episode number exceeds this threshold
	thresholdEpisode int
}

var _ core.Analyzer = &PrintDebugAnalyzer{}

func NewPrintDebugAnalyzer(savePath string, threshold int) *PrintDebugAnalyzer {
	return &PrintDebugAnalyzer{
		savePath:         path.Join(savePath, "traces"),
		thresholdEpisode: threshold,
	}
}

func (a *PrintDebugAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	if ctx.Episode < a.thresholdEpisode {
		return
	}
	if err := util.EnsureDir(a.savePath); err != nil {
		log.WithError(err).Warn("could not create traces directory")
		return
	}
	fileName := fmt.Sprintf("%d_trace_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_trace_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	file := path.Join(a.savePath, fileName)
	if err := os.WriteFile(file, []byte(traceToString(trace)), 0644); err != nil {
		log.WithError(err).WithField("file", file).Warn("could not save trace")
	}
}

func traceToString(trace *core.Trace) string {
	buf := new(bytes.Buffer)
	for i := 0; i < trace.Len(); i++ {
		step := trace.Step(i)
		buf.WriteString(fmt.Sprintf("Step %d\n%s\n", i, stepToString(step)))
	}
	return buf.String()
}

func stepToString(step *core.Step) string {
	return fmt.Sprintf(
		"State: %s\nAction: %s\nReward: %.1f\nNext State: %s\nAdditional Info:\n%s",
		stateToString(step.State),
		actionToString(step.State, step.Action),
		step.Reward,
		stateToString(step.NextState),
		addInfoToString(step.Misc),
	)
}

func addInfoToString(addInfo *orderedmap.OrderedMap[string, any]) string {
	if addInfo == nil {
		return ""
	}
	out := ""
	for el := addInfo.Front(); el != nil; el = el.Next() {
		out += fmt.Sprintf("  %s: %v\n", el.Key, el.Value)
	}
	return out
}

func stateToString(state core.State) string {
	obs, ok := observationOf(state)
	if !ok {
		return state.Hash()
	}
	return fmt.Sprintf("%s (%s)", obs, learnenv.LevelName(obs.Level()))
}

func actionToString(state core.State, action core.Action) string {
	a, ok := action.(learnenv.Action)
	if !ok {
		return action.Hash()
	}
	obs, ok := observationOf(state)
	if !ok {
		return a.String()
	}
	return fmt.Sprintf("%s: %s", a, learnenv.Lesson(obs.Level(), a))
}

func (a *PrintDebugAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *PrintDebugAnalyzer) Reset() {
	// do nothing
}

type PrintDebugAnalyzerConstructor struct {
	SavePath         string
	ThresholdEpisode int
}

var _ core.AnalyzerConstructor = &PrintDebugAnalyzerConstructor{}

func NewPrintDebugAnalyzerConstructor(savePath string, thresholdEpisode int) *PrintDebugAnalyzerConstructor {
	return &PrintDebugAnalyzerConstructor{
		SavePath:         savePath,
		ThresholdEpisode: thresholdEpisode,
	}
}

func (c *PrintDebugAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	a := NewPrintDebugAnalyzer(c.SavePath, c.ThresholdEpisode)
	a.exp = exp
	return a
}
