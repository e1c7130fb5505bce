package analysis

import (
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

// Summary is the mean and population standard deviation of the episode rewards of one
// experiment.
type Summary struct {
	Name       string  `json:"name"`
	Episodes   int     `json:"episodes"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	MeanLength float64 `json:"mean_length"`
}

func Summarize(name string, d *RewardDataset) Summary {
	s := Summary{Name: name, Episodes: d.Len()}
	if d.Len() == 0 {
		return s
	}
	s.Mean, s.Std = stat.PopMeanStdDev(d.Returns, nil)
	s.Min = floats.Min(d.Returns)
	s.Max = floats.Max(d.Returns)
	lengths := make([]float64, len(d.Lengths))
	for i, l := range d.Lengths {
		lengths[i] = float64(l)
	}
	s.MeanLength = stat.Mean(lengths, nil)
	return s
}

// SummaryReport compares experiments. Difference is the mean of the second experiment
// minus the mean of the first.
type SummaryReport struct {
	Summaries     []Summary `json:"summaries"`
	Difference    float64   `json:"difference"`
	HasDifference bool      `json:"has_difference"`
}

func NewSummaryReport(experimentNames []string, datasets []core.DataSet) *SummaryReport {
	r := &SummaryReport{Summaries: make([]Summary, 0, len(experimentNames))}
	for i, name := range experimentNames {
		rd, ok := datasets[i].(*RewardDataset)
		if !ok {
			continue
		}
		r.Summaries = append(r.Summaries, Summarize(name, rd))
	}
	if len(r.Summaries) >= 2 {
		r.Difference = r.Summaries[1].Mean - r.Summaries[0].Mean
		r.HasDifference = true
	}
	return r
}

func (r *SummaryReport) Write(w io.Writer) {
	for _, s := range r.Summaries {
		fmt.Fprintf(w, "%s: Mean reward = %.2f +/- %.2f over %d episodes\n", s.Name, s.Mean, s.Std, s.Episodes)
	}
	if r.HasDifference {
		fmt.Fprintf(w, "Difference (%s - %s): %.2f\n", r.Summaries[1].Name, r.Summaries[0].Name, r.Difference)
	}
}

func (r *SummaryReport) Chart() *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mean Reward"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Reward"}),
	)
	names := make([]string, 0, len(r.Summaries))
	means := make([]opts.BarData, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		names = append(names, s.Name)
		means = append(means, opts.BarData{Value: s.Mean})
	}
	bar.SetXAxis(names).AddSeries("mean", means)
	return bar
}

type SummaryComparator struct {
	savePath string
	out      io.Writer
}

var _ core.Comparator = &SummaryComparator{}

func NewSummaryComparator(savePath string, out io.Writer) *SummaryComparator {
	return &SummaryComparator{
		savePath: savePath,
		out:      out,
	}
}

func (c *SummaryComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	report := NewSummaryReport(experimentNames, datasets)
	if c.out != nil {
		report.Write(c.out)
	}
	if err := util.SaveJson(path.Join(c.savePath, "summary.json"), report); err != nil {
		log.WithError(err).Warn("could not save summary")
	}
	if err := renderChart(path.Join(c.savePath, "summary.html"), report.Chart()); err != nil {
		log.WithError(err).Warn("could not save summary chart")
	}
}

type SummaryComparatorConstructor struct {
	savePath string
	out      io.Writer
}

var _ core.ComparatorConstructor = &SummaryComparatorConstructor{}

func NewSummaryComparatorConstructor(savePath string, out io.Writer) *SummaryComparatorConstructor {
	return &SummaryComparatorConstructor{
		savePath: savePath,
		out:      out,
	}
}

func (c *SummaryComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewSummaryComparator(path.Join(c.savePath, strconv.Itoa(run)), c.out)
}
