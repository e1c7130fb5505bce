package learnenv

import (
	"errors"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// Action is one of the four study activities an agent can pick each step.
type Action int

const (
	Vocabulary Action = iota
	Conversation
	Grammar
	Culture

	// NoAction is the last action before the first step of an episode.
	NoAction Action = -1
)

const NumActions = 4

var ErrInvalidAction = errors.New("invalid action")

func (a Action) Valid() bool {
	return a >= Vocabulary && a <= Culture
}

func (a Action) String() string {
	switch a {
	case Vocabulary:
		return "Vocabulary"
	case Conversation:
		return "Conversation"
	case Grammar:
		return "Grammar"
	case Culture:
		return "Culture"
	case NoAction:
		return "None"
	default:
		return "Action(" + strconv.Itoa(int(a)) + ")"
	}
}

// Hash makes Action usable as a core.Action
func (a Action) Hash() string {
	return strconv.Itoa(int(a))
}

// Target is the fixed point in space the agent drifts towards while practicing a.
func (a Action) Target() mgl32.Vec3 {
	switch a {
	case Vocabulary:
		return mgl32.Vec3{-2, 2, 0}
	case Conversation:
		return mgl32.Vec3{2, 2, 0}
	case Grammar:
		return mgl32.Vec3{-2, -2, 0}
	case Culture:
		return mgl32.Vec3{2, -2, 0}
	}
	return mgl32.Vec3{}
}

// Actions lists the valid actions in index order.
func Actions() []Action {
	return []Action{Vocabulary, Conversation, Grammar, Culture}
}

type outcome struct {
	reward      float64
	performance float64
	engagement  float64
}

type effect struct {
	ceiling     float64
	successRate func(level int, performance, engagement float64) float64
	success     outcome
	failure     outcome
}

var effects = [NumActions]effect{
	Vocabulary: {
		ceiling: 0.9,
		successRate: func(level int, _, engagement float64) float64 {
			return 0.5 + engagement/200 - float64(level)*0.1
		},
		success: outcome{reward: 8, performance: 5, engagement: 3},
		failure: outcome{reward: -7, performance: -5, engagement: -5},
	},
	Conversation: {
		ceiling: 0.85,
		successRate: func(level int, performance, _ float64) float64 {
			return 0.4 + performance/200 + float64(level)*0.05
		},
		success: outcome{reward: 12, performance: 8, engagement: 5},
		failure: outcome{reward: -7, performance: -3, engagement: -2},
	},
	Grammar: {
		ceiling: 0.8,
		successRate: func(_ int, performance, _ float64) float64 {
			return 0.3 + performance/150
		},
		success: outcome{reward: 10, performance: 7, engagement: 2},
		failure: outcome{reward: -7, performance: -4, engagement: -4},
	},
	Culture: {
		ceiling: 0.9,
		successRate: func(_ int, _, engagement float64) float64 {
			return 0.6 + engagement/250
		},
		success: outcome{reward: 9, performance: 4, engagement: 8},
		failure: outcome{reward: -3, performance: -2, engagement: -1},
	},
}

// SuccessProbability is the chance that a succeeds from the given state, capped at the
// action's ceiling. There is no lower bound: a negative value always fails.
func SuccessProbability(a Action, level int, performance, engagement float64) float64 {
	e := effects[a]
	return min(e.ceiling, e.successRate(level, performance, engagement))
}
