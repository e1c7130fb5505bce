package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zeu5/langlearn-rl/util"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
	ErrNoAction        = errors.New("policy picked no action")
)

type experimentRunContext struct {
	run       int
	ctx       context.Context
	analyzers map[string]Analyzer

	writer io.Writer

	*RunConfig
}

type ExperimentResult struct {
	CompletedEpisodes int
	TotalEpisodes     int
	ErrorEpisodes     int
	TimeoutEpisodes   int
	TotalTimeSteps    int

	Error    error
	Datasets map[string]DataSet
	// Policy is the policy after the run, trained unless the run was an evaluation
	Policy Policy
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// RunResults maps experiment names to their result for one run
type RunResults map[string]*ExperimentResult

func (e *Experiment) run(ctx *experimentRunContext) *ExperimentResult {
	result := &ExperimentResult{
		Datasets: make(map[string]DataSet),
		Policy:   e.Policy,
	}
	if ctx.writer == nil {
		ctx.writer = io.Discard
	}
	if ctx.Evaluate {
		if g, ok := e.Policy.(GreedyPolicy); ok {
			g.SetGreedy(true)
			defer g.SetGreedy(false)
		}
	} else {
		e.Policy.Reset()
	}

	consecutiveErrors := 0
	consecutiveTimeouts := 0
EpisodeLoop:
	for episode := 0; episode < ctx.Episodes; episode++ {
		select {
		case <-ctx.ctx.Done():
			result.Error = errors.New("context cancelled")
			break EpisodeLoop
		default:
		}

		fmt.Fprintf(
			ctx.writer,
			"Experiment: %s, Run %d, Timesteps: %d, Episode %d/%d, Error: %d, Timedout: %d\n",
			e.Name, ctx.run, result.TotalTimeSteps, episode, ctx.Episodes, result.ErrorEpisodes, result.TimeoutEpisodes,
		)
		timeoutCtx, timeoutCancel := episodeContext(ctx.ctx, ctx.EpisodeTimeout)
		eCtx := NewEpisodeContext(timeoutCtx)
		eCtx.Run = ctx.run
		eCtx.Episode = episode
		eCtx.Horizon = ctx.Horizon
		eCtx.StartTimeStep = result.TotalTimeSteps

		go e.episode(eCtx, ctx.Evaluate)

		// A step that never returns is abandoned once the episode times out
		select {
		case <-eCtx.Done():
		case <-timeoutCtx.Done():
			eCtx.Timeout()
		}
		timeoutCancel()
		errorred := eCtx.IsError()
		timedout := eCtx.IsTimeout()

		if errorred {
			result.ErrorEpisodes++
		}
		if timedout {
			result.TimeoutEpisodes++
		}
		if !errorred && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.CompletedEpisodes++
		}
		result.TotalEpisodes++

		for _, a := range ctx.analyzers {
			a.Analyze(eCtx, eCtx.Trace)
		}

		if errorred {
			if consecutiveErrors++; consecutiveErrors >= ctx.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				break EpisodeLoop
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			if consecutiveTimeouts++; consecutiveTimeouts >= ctx.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				break EpisodeLoop
			}
		} else {
			consecutiveTimeouts = 0
		}
	}
	if result.Error != nil {
		fmt.Fprintf(ctx.writer, "Experiment: %s, Run %d, Error: %v\n", e.Name, ctx.run, result.Error)
	}

	for name, a := range ctx.analyzers {
		result.Datasets[name] = a.DataSet()
	}
	return result
}

func episodeContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// episode plays one episode until the environment finishes it or the horizon is hit
func (e *Experiment) episode(eCtx *EpisodeContext, evaluate bool) {
	state, err := e.Environment.Reset(eCtx)
	if err != nil {
		eCtx.Error(err)
		return
	}
	e.Policy.ResetEpisode(eCtx)
	for step := 0; eCtx.Horizon <= 0 || step < eCtx.Horizon; step++ {
		select {
		case <-eCtx.Context.Done():
			// the runner records the timeout
			return
		default:
		}

		sCtx := &StepContext{Step: step, EpisodeContext: eCtx}
		action := e.Policy.PickAction(
			sCtx,
			state,
			state.Actions(),
		)
		if action == nil {
			eCtx.Error(ErrNoAction)
			return
		}
		transition, err := e.Environment.Step(action, sCtx)
		if err != nil {
			eCtx.Error(err)
			return
		}
		if !evaluate {
			e.Policy.UpdateStep(sCtx, state, action, transition)
		}
		eCtx.Trace.AddStep(&Step{
			State:      state,
			Action:     action,
			NextState:  transition.State,
			Reward:     transition.Reward,
			Terminated: transition.Terminated,
			Truncated:  transition.Truncated,
			Misc:       transition.Info,
		})
		state = transition.State
		if transition.Done() {
			break
		}
	}
	if !evaluate {
		e.Policy.UpdateEpisode(eCtx)
	}
	eCtx.Finish()
}

// Run executes the experiments one after the other, once per run
func (c *Comparison) Run(ctx context.Context, runs int, rConfig *RunConfig) []RunResults {
	out := make([]RunResults, 0, runs)
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		results := make(RunResults)

		// Run experiments
		for _, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return out
			default:
			}
			ctx := &experimentRunContext{
				run:       run,
				ctx:       ctx,
				analyzers: make(map[string]Analyzer),
				RunConfig: rConfig,
			}

			for name, aC := range c.Analyzers {
				aC.Reset()
				ctx.analyzers[name] = aC
			}

			results[e.Name] = e.run(ctx)
		}

		experimentNames := make([]string, 0, len(c.Experiments))
		for _, e := range c.Experiments {
			experimentNames = append(experimentNames, e.Name)
		}
		datasets := gatherDatasets(experimentNames, c.analyzerNames(), results)
		for name, cmp := range c.Comparators {
			cmp.Compare(experimentNames, datasets[name])
		}
		out = append(out, results)
	}
	return out
}

func (c *Comparison) analyzerNames() []string {
	names := make([]string, 0, len(c.Analyzers))
	for name := range c.Analyzers {
		names = append(names, name)
	}
	return names
}

// gatherDatasets lines up analyzer datasets in experiment order, nil for failed experiments
func gatherDatasets(experimentNames, analyzerNames []string, results RunResults) map[string][]DataSet {
	datasets := make(map[string][]DataSet)
	for _, name := range analyzerNames {
		datasets[name] = make([]DataSet, 0, len(experimentNames))
	}
	for _, exp := range experimentNames {
		result, ok := results[exp]
		for _, name := range analyzerNames {
			if !ok || result.IsError() {
				datasets[name] = append(datasets[name], nil)
			} else {
				datasets[name] = append(datasets[name], result.Datasets[name])
			}
		}
	}
	return datasets
}

// parallelWorker is a worker that runs experiments
type parallelWorker struct {
	id int
}

// parallelWork is a struct that contains all the information needed to run an experiment
type parallelWork struct {
	experiment *ParallelExperiment
	comp       *ParallelComparison
	runNumber  int
	writer     io.Writer
	rConfig    *RunConfig
}

// parallelResult is a struct that contains the result of running an experiment
type parallelResult struct {
	experimentName string
	run            int
	result         *ExperimentResult
}

// Worker main loop that consumes work from a channel
func (w *parallelWorker) run(ctx context.Context, workCh <-chan *parallelWork, resultsCh chan<- *parallelResult, wg *sync.WaitGroup) {
	for {
		select {
		case <-ctx.Done():
			return
		case work, more := <-workCh:
			if !more {
				return
			}
			resultsCh <- w.runWork(ctx, work)
			wg.Done()
		}
	}
}

// Run an experiment by constructing the experiment context, *Experiment
func (w *parallelWorker) runWork(ctx context.Context, work *parallelWork) *parallelResult {
	eCtx := &experimentRunContext{
		run:       work.runNumber,
		ctx:       ctx,
		analyzers: make(map[string]Analyzer),
		writer:    work.writer,
		RunConfig: work.rConfig,
	}

	for name, aC := range work.comp.Analyzers {
		eCtx.analyzers[name] = aC.NewAnalyzer(work.experiment.Name, w.id)
	}

	// Construct the experiment. Environments are seeded per run so that every
	// experiment of a run faces the same environment
	exp := &Experiment{
		Name:        work.experiment.Name,
		Environment: work.experiment.Environment.NewEnvironment(work.runNumber),
		Policy:      work.experiment.Policy.NewPolicy(),
	}

	result := exp.run(eCtx)
	return &parallelResult{
		experimentName: work.experiment.Name,
		run:            work.runNumber,
		result:         result,
	}
}

// Run executes every experiment of the comparison on a pool of parallelism workers, once per run
func (c *ParallelComparison) Run(ctx context.Context, runs int, rConfig *RunConfig, parallelism int) []RunResults {
	if parallelism < 1 {
		parallelism = 1
	}
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	allResults := make([]RunResults, 0, runs)
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return allResults
		default:
		}
		// Create workers and channels
		wg := new(sync.WaitGroup)
		writer := util.NewLiveWriter(out)
		writer.Start()
		fmt.Fprintf(writer, "Run %d\n", run)

		workCh := make(chan *parallelWork, parallelism)
		resultsCh := make(chan *parallelResult, len(c.Experiments))

		// Start workers
		for i := 0; i < parallelism; i++ {
			w := &parallelWorker{id: i}
			go w.run(ctx, workCh, resultsCh, wg)
		}

		// Run experiments by sending work to workers
		cancelled := false
	SendLoop:
		for _, e := range c.Experiments {
			wg.Add(1)
			select {
			case <-ctx.Done():
				wg.Done()
				cancelled = true
				break SendLoop
			case workCh <- &parallelWork{
				experiment: e,
				comp:       c,
				runNumber:  run,
				rConfig:    rConfig,
				writer:     writer.Newline(),
			}:
			}
		}
		close(workCh)

		// Wait for all work to finish
		waitCh := make(chan struct{})
		go func() {
			wg.Wait()
			close(waitCh)
		}()
		select {
		case <-waitCh:
		case <-ctx.Done():
			cancelled = true
		}
		writer.Stop()
		if cancelled {
			return allResults
		}
		close(resultsCh)

		results := make(RunResults)
		for r := range resultsCh {
			results[r.experimentName] = r.result
		}

		// Gather datasets to run comparisons
		experimentNames := make([]string, 0, len(c.Experiments))
		for _, e := range c.Experiments {
			experimentNames = append(experimentNames, e.Name)
		}
		analyzerNames := make([]string, 0, len(c.Analyzers))
		for name := range c.Analyzers {
			analyzerNames = append(analyzerNames, name)
		}
		datasets := gatherDatasets(experimentNames, analyzerNames, results)
		for name, cmp := range c.Comparators {
			select {
			case <-ctx.Done():
				return allResults
			default:
			}
			cmp.NewComparator(run).Compare(experimentNames, datasets[name])
		}
		allResults = append(allResults, results)
	}
	return allResults
}
