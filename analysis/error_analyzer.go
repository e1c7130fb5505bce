package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

// ErrorAnalyzer dumps every episode that ended with an error.
type ErrorAnalyzer struct {
	savePath string
	exp      string
	count    int
}

var _ core.Analyzer = &ErrorAnalyzer{}

func NewErrorAnalyzer(savePath string) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		savePath: path.Join(savePath, "errors"),
	}
}

func (a *ErrorAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	err := trace.Error()
	if err == nil {
		return
	}
	a.count++
	log.WithFields(log.Fields{
		"experiment": a.exp,
		"run":        ctx.Run,
		"episode":    ctx.Episode,
	}).WithError(err).Debug("episode failed")

	buf := new(bytes.Buffer)
	buf.WriteString(fmt.Sprintf("Error: %s\n", err))
	buf.WriteString(traceToString(trace))

	if err := util.EnsureDir(a.savePath); err != nil {
		log.WithError(err).Warn("could not create errors directory")
		return
	}
	fileName := fmt.Sprintf("%d_error_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_error_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	file := path.Join(a.savePath, fileName)
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		log.WithError(err).WithField("file", file).Warn("could not save error trace")
	}
}

// DataSet is the number of failed episodes.
func (a *ErrorAnalyzer) DataSet() core.DataSet {
	return a.count
}

func (a *ErrorAnalyzer) Reset() {
	a.count = 0
}

type ErrorAnalyzerConstructor struct {
	SavePath string
}

var _ core.AnalyzerConstructor = &ErrorAnalyzerConstructor{}

func NewErrorAnalyzerConstructor(savePath string) *ErrorAnalyzerConstructor {
	return &ErrorAnalyzerConstructor{
		SavePath: savePath,
	}
}

func (e *ErrorAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	a := NewErrorAnalyzer(e.SavePath)
	a.exp = exp
	return a
}
