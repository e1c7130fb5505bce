package core

type Policy interface {
	ResetEpisode(*EpisodeContext)
	UpdateEpisode(*EpisodeContext)
	PickAction(*StepContext, State, []Action) Action
	UpdateStep(*StepContext, State, Action, *Transition)
	Reset()
}

// GreedyPolicy is implemented by learning policies that can stop exploring.
type GreedyPolicy interface {
	Policy
	SetGreedy(bool)
}

type PolicyConstructor interface {
	NewPolicy() Policy
}
