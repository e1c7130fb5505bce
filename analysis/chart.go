package analysis

import (
	"io"
	"os"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	log "github.com/sirupsen/logrus"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

const RewardChartFile = "cumulative_rewards.html"

// RewardChart draws the reward collected in every episode, one line per experiment.
func RewardChart(experimentNames []string, datasets []core.DataSet) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cumulative Reward per Episode"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cumulative Reward"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	longest := 0
	for _, d := range datasets {
		if rd, ok := d.(*RewardDataset); ok {
			longest = max(longest, rd.Len())
		}
	}
	episodes := make([]int, longest)
	for i := range episodes {
		episodes[i] = i + 1
	}
	line.SetXAxis(episodes)

	for i, name := range experimentNames {
		rd, ok := datasets[i].(*RewardDataset)
		if !ok {
			continue
		}
		points := make([]opts.LineData, 0, rd.Len())
		for _, r := range rd.Returns {
			points = append(points, opts.LineData{Value: r})
		}
		line.AddSeries(name, points)
	}
	return line
}

type RewardChartComparator struct {
	savePath string
}

var _ core.Comparator = &RewardChartComparator{}

func NewRewardChartComparator(savePath string) *RewardChartComparator {
	return &RewardChartComparator{
		savePath: path.Join(savePath, RewardChartFile),
	}
}

func (c *RewardChartComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	if err := renderChart(c.savePath, RewardChart(experimentNames, datasets)); err != nil {
		log.WithError(err).WithField("path", c.savePath).Warn("could not save reward chart")
	}
}

type RewardChartComparatorConstructor struct {
	savePath string
	perRun   bool
}

var _ core.ComparatorConstructor = &RewardChartComparatorConstructor{}

// NewRewardChartComparatorConstructor writes the chart under savePath, in a directory
// per run when perRun is set.
func NewRewardChartComparatorConstructor(savePath string, perRun bool) *RewardChartComparatorConstructor {
	return &RewardChartComparatorConstructor{
		savePath: savePath,
		perRun:   perRun,
	}
}

func (c *RewardChartComparatorConstructor) NewComparator(run int) core.Comparator {
	if !c.perRun {
		return NewRewardChartComparator(c.savePath)
	}
	return NewRewardChartComparator(path.Join(c.savePath, strconv.Itoa(run)))
}

type renderer interface {
	Render(w io.Writer) error
}

func renderChart(file string, chart renderer) error {
	if err := util.EnsureDir(path.Dir(file)); err != nil {
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return chart.Render(f)
}
