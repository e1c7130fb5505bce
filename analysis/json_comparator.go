package analysis

import (
	"path"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/util"
)

// JSONComparator writes the datasets of every experiment to one file keyed by
// experiment name. Failed experiments are left out.
type JSONComparator struct {
	savePath string
}

var _ core.Comparator = &JSONComparator{}

func NewJSONComparator(savePath, fileName string) *JSONComparator {
	return &JSONComparator{
		savePath: path.Join(savePath, fileName),
	}
}

func (c *JSONComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]core.DataSet)
	for i, name := range experimentNames {
		if datasets[i] == nil {
			continue
		}
		out[name] = datasets[i]
	}

	if err := util.SaveJson(c.savePath, out); err != nil {
		log.WithError(err).WithField("path", c.savePath).Warn("could not save datasets")
	}
}

type JSONComparatorConstructor struct {
	savePath string
	fileName string
}

var _ core.ComparatorConstructor = &JSONComparatorConstructor{}

// NewJSONComparatorConstructor writes to <savePath>/<run>/<fileName>.
func NewJSONComparatorConstructor(savePath, fileName string) *JSONComparatorConstructor {
	return &JSONComparatorConstructor{
		savePath: savePath,
		fileName: fileName,
	}
}

func (c *JSONComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewJSONComparator(path.Join(c.savePath, strconv.Itoa(run)), c.fileName)
}

// MultiComparator hands the same datasets to several comparators.
type MultiComparator []core.Comparator

func (m MultiComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	for _, c := range m {
		c.Compare(experimentNames, datasets)
	}
}

type MultiComparatorConstructor []core.ComparatorConstructor

var _ core.ComparatorConstructor = MultiComparatorConstructor{}

func (m MultiComparatorConstructor) NewComparator(run int) core.Comparator {
	out := make(MultiComparator, 0, len(m))
	for _, c := range m {
		out = append(out, c.NewComparator(run))
	}
	return out
}
