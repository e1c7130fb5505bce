package learnenv

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeu5/langlearn-rl/util"
)

const (
	MaxLevel = 4

	MaxTime       = 90.0
	MaxErrorCount = 4

	PositionBound = 5.0

	stepDistance = 0.1

	levelUpPerformance = 80.0
	levelUpInterval    = 10
	levelUpReward      = 20.0
	levelUpPenalty     = 15.0
	levelUpFloor       = 60.0

	bonusInterval   = 5
	bonusReward     = 15.0
	bonusEngagement = 10.0

	goalPerformance = 90.0
	goalReward      = 50.0
)

// EpisodeState is everything the simulator tracks during one episode.
type EpisodeState struct {
	Level            int
	Position         mgl32.Vec3
	Performance      float64
	Engagement       float64
	TimeSpent        float64
	CumulativeReward float64
	ErrorCount       int
	TotalSteps       int
	LastAction       Action
}

func initialState() EpisodeState {
	return EpisodeState{
		Level:       0,
		Position:    mgl32.Vec3{-4, 0, 0.5},
		Performance: 50,
		Engagement:  70,
		LastAction:  NoAction,
	}
}

// Observation returns the 7 element vector handed to agents.
func (s EpisodeState) Observation() Observation {
	return Observation{
		float32(s.Level),
		s.Position[0], s.Position[1], s.Position[2],
		float32(s.Performance),
		float32(s.Engagement),
		float32(s.TimeSpent / MaxTime),
	}
}

func (s EpisodeState) Scene() Scene {
	return Scene{
		Level:            s.Level,
		Position:         s.Position,
		Performance:      s.Performance,
		Engagement:       s.Engagement,
		CumulativeReward: s.CumulativeReward,
		LastAction:       s.LastAction,
	}
}

// moveTowards drifts the position at most stepDistance along the straight line to target.
func (s *EpisodeState) moveTowards(target mgl32.Vec3) {
	direction := target.Sub(s.Position)
	distance := direction.Len()
	if distance <= stepDistance {
		return
	}
	s.Position = s.Position.Add(direction.Mul(min(stepDistance, distance) / distance))
	s.clampPosition()
}

func (s *EpisodeState) clampPosition() {
	for i := range s.Position {
		s.Position[i] = mgl32.Clamp(s.Position[i], -PositionBound, PositionBound)
	}
}

// practice applies the outcome of one attempt at a and returns the reward earned.
func (s *EpisodeState) practice(a Action, success bool) float64 {
	e := effects[a]
	o := e.failure
	if success {
		o = e.success
		s.ErrorCount = 0
	} else {
		s.ErrorCount++
	}
	s.Performance = util.Clamp(s.Performance+o.performance, 0, 100)
	s.Engagement = util.Clamp(s.Engagement+o.engagement, 0, 100)
	return o.reward
}

func (s *EpisodeState) levelUp() (float64, bool) {
	if s.Performance < levelUpPerformance || s.TotalSteps%levelUpInterval != 0 || s.Level >= MaxLevel {
		return 0, false
	}
	s.Level++
	s.Performance = max(levelUpFloor, s.Performance-levelUpPenalty)
	s.Position[0] = float32(-4 + s.Level*2)
	return levelUpReward, true
}

func (s *EpisodeState) periodicBonus() float64 {
	if s.TotalSteps%bonusInterval != 0 {
		return 0
	}
	s.Engagement = min(100, s.Engagement+bonusEngagement)
	return bonusReward
}

func (s *EpisodeState) goalReached() bool {
	return s.Level == MaxLevel && s.Performance >= goalPerformance
}

func (s *EpisodeState) givenUp() bool {
	return s.ErrorCount >= MaxErrorCount || s.TimeSpent >= MaxTime
}
