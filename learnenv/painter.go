package learnenv

import (
	"math"

	"github.com/zeu5/langlearn-rl/core"
)

// The painters below abstract an Observation for tabular policies. Each returns a
// core.KVPainter so they compose with core.NewComposedPainter.

func ColorLevel() core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		return "level", s.(Observation).Level()
	}
}

// ColorPerformance buckets performance into bins of the given width.
func ColorPerformance(width float32) core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		return "performance", int(s.(Observation).Performance() / width)
	}
}

func ColorEngagement(width float32) core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		return "engagement", int(s.(Observation).Engagement() / width)
	}
}

// ColorStepPhase exposes the step count modulo the level up interval, which decides
// when a level up and the periodic bonus can happen.
func ColorStepPhase() core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		steps := int(math.Round(float64(s.(Observation).NormalizedTime()) * MaxTime))
		return "phase", steps % levelUpInterval
	}
}

// ColorTime buckets the normalized time spent into n bins.
func ColorTime(n int) core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		return "time", int(s.(Observation).NormalizedTime() * float32(n))
	}
}

// ColorNearestTarget is the action whose target is closest to the agent, or -1 when
// none is within radius.
func ColorNearestTarget(radius float32) core.KVPainter {
	return func(s interface{}) (string, interface{}) {
		pos := s.(Observation).Position()
		nearest := NoAction
		best := radius
		for _, a := range Actions() {
			if d := a.Target().Sub(pos).Len(); d <= best {
				best = d
				nearest = a
			}
		}
		return "near", int(nearest)
	}
}

// DefaultPainter is the abstraction used by the training commands.
func DefaultPainter() core.Painter {
	return core.NewComposedPainter(
		ColorLevel(),
		ColorPerformance(10),
		ColorEngagement(25),
		ColorStepPhase(),
		ColorTime(3),
		ColorNearestTarget(1),
	).Painter()
}
