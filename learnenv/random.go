package learnenv

import (
	"math/rand/v2"
	"time"
)

// RandSource supplies the uniform draws in [0,1) that decide whether an action succeeds.
type RandSource interface {
	Float64() float64
}

type seedable interface {
	Seed(uint64)
}

type pcgSource struct {
	pcg *rand.PCG
	*rand.Rand
}

// NewRandSource returns a reproducible source for the given seed. It can be reseeded
// on reset.
func NewRandSource(seed uint64) RandSource {
	pcg := rand.NewPCG(seed, seed)
	return &pcgSource{pcg: pcg, Rand: rand.New(pcg)}
}

func (p *pcgSource) Seed(seed uint64) {
	p.pcg.Seed(seed, seed)
}

func defaultRandSource() RandSource {
	return NewRandSource(uint64(time.Now().UnixNano()))
}

// SequenceSource replays fixed draws in order and repeats the last one once exhausted.
type SequenceSource struct {
	draws []float64
	next  int
}

func NewSequenceSource(draws ...float64) *SequenceSource {
	return &SequenceSource{draws: draws}
}

func (s *SequenceSource) Float64() float64 {
	if len(s.draws) == 0 {
		return 0
	}
	if s.next >= len(s.draws) {
		return s.draws[len(s.draws)-1]
	}
	d := s.draws[s.next]
	s.next++
	return d
}

// ConstantSource always returns the same draw: 0 succeeds whenever the probability is
// positive and 1 never succeeds.
type ConstantSource float64

func (c ConstantSource) Float64() float64 {
	return float64(c)
}
