package policies

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zeu5/langlearn-rl/core"
)

const (
	KindRandom    = "random"
	KindQLearning = "qlearning"
	KindSoftMax   = "softmax"
	KindReinforce = "reinforce"
)

var ErrUnknownKind = errors.New("unknown policy kind")

// Params holds the hyper parameters of every policy kind. Each kind reads the
// fields it needs.
type Params struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Gamma float64 `json:"gamma" yaml:"gamma"`

	EpsilonStart        float64 `json:"epsilon_start" yaml:"epsilon_start"`
	EpsilonFinal        float64 `json:"epsilon_final" yaml:"epsilon_final"`
	ExplorationFraction float64 `json:"exploration_fraction" yaml:"exploration_fraction"`

	Temperature  float64 `json:"temperature" yaml:"temperature"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// Episodes is the planned training length, the exploration schedule is relative to it
	Episodes int    `json:"episodes" yaml:"episodes"`
	Seed     uint64 `json:"seed" yaml:"seed"`
}

func DefaultParams() Params {
	return Params{
		Alpha:               0.1,
		Gamma:               0.99,
		EpsilonStart:        1.0,
		EpsilonFinal:        0.02,
		ExplorationFraction: 0.2,
		Temperature:         1.0,
		LearningRate:        0.001,
		Episodes:            1000,
	}
}

// Snapshot is the serializable form of a trained policy.
type Snapshot struct {
	Kind     string `json:"kind"`
	Params   Params `json:"params"`
	Episodes int    `json:"episodes"`

	Tables map[string]map[string]map[string]float64 `json:"tables,omitempty"`
	Stats  map[string]float64                       `json:"stats,omitempty"`
}

// Snapshotter is implemented by every policy in this package.
type Snapshotter interface {
	core.Policy
	Snapshot() *Snapshot
}

type restorer interface {
	restore(*Snapshot)
}

func Kinds() []string {
	kinds := []string{KindRandom, KindQLearning, KindSoftMax, KindReinforce}
	sort.Strings(kinds)
	return kinds
}

// New creates an untrained policy of the given kind.
func New(kind string, params Params) (Snapshotter, error) {
	switch kind {
	case KindRandom:
		return NewRandomPolicy(params), nil
	case KindQLearning:
		return NewQLearningPolicy(params), nil
	case KindSoftMax:
		return NewSoftMaxPolicy(params), nil
	case KindReinforce:
		return NewReinforcePolicy(params), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// NewPolicy restores a trained policy from its snapshot.
func NewPolicy(s *Snapshot) (Snapshotter, error) {
	p, err := New(s.Kind, s.Params)
	if err != nil {
		return nil, err
	}
	if r, ok := p.(restorer); ok {
		r.restore(s)
	}
	return p, nil
}

// Constructor builds fresh policies of one kind for the parallel runner.
type Constructor struct {
	kind   string
	params Params
}

var _ core.PolicyConstructor = &Constructor{}

func NewConstructor(kind string, params Params) (*Constructor, error) {
	if _, err := New(kind, params); err != nil {
		return nil, err
	}
	return &Constructor{kind: kind, params: params}, nil
}

func (c *Constructor) NewPolicy() core.Policy {
	p, _ := New(c.kind, c.params)
	return p
}

// SnapshotConstructor restores the same trained policy for every run.
type SnapshotConstructor struct {
	Snapshot *Snapshot
}

var _ core.PolicyConstructor = &SnapshotConstructor{}

func (c *SnapshotConstructor) NewPolicy() core.Policy {
	p, _ := NewPolicy(c.Snapshot)
	return p
}
