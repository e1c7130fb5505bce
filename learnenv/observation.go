package learnenv

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// Observation is [level, x, y, z, performance, engagement, time_spent/90].
type Observation [7]float32

var (
	ObservationLow  = Observation{0, -5, -5, -5, 0, 0, 0}
	ObservationHigh = Observation{4, 5, 5, 5, 100, 100, 1}
)

func (o Observation) Level() int {
	return int(o[0])
}

func (o Observation) Position() mgl32.Vec3 {
	return mgl32.Vec3{o[1], o[2], o[3]}
}

func (o Observation) Performance() float32 {
	return o[4]
}

func (o Observation) Engagement() float32 {
	return o[5]
}

func (o Observation) NormalizedTime() float32 {
	return o[6]
}

// Within reports whether every component lies inside the observation box.
func (o Observation) Within() bool {
	for i := range o {
		if o[i] < ObservationLow[i] || o[i] > ObservationHigh[i] {
			return false
		}
	}
	return true
}

func (o Observation) String() string {
	return fmt.Sprintf("[%d %.2f %.2f %.2f %.1f %.1f %.3f]", o.Level(), o[1], o[2], o[3], o[4], o[5], o[6])
}

// Metadata is the ordered side-information record returned next to an observation.
type Metadata = *orderedmap.OrderedMap[string, any]

func emptyMetadata() Metadata {
	return orderedmap.NewOrderedMap[string, any]()
}

// Info is the typed form of the metadata a step produces.
type Info struct {
	Success          bool
	Level            int
	Position         mgl32.Vec3
	Performance      float64
	Engagement       float64
	CumulativeReward float64
	Action           Action
}

func (i Info) Metadata() Metadata {
	md := emptyMetadata()
	md.Set("success", i.Success)
	md.Set("current_state", i.Level)
	md.Set("position", i.Position)
	md.Set("performance", i.Performance)
	md.Set("engagement", i.Engagement)
	md.Set("cumulative_reward", i.CumulativeReward)
	md.Set("last_action", i.Action)
	return md
}

type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

func (r StepResult) Done() bool {
	return r.Terminated || r.Truncated
}
