package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zeu5/langlearn-rl/experiments/common"
)

var (
	flags      *common.Flags = common.DefaultFlags()
	configFile string
	envFile    string

	savePath  string
	seed      uint64
	storeKind string
	storePath string

	numRuns                int
	episodes               int
	horizon                int
	maxConsecutiveErrors   int
	maxConsecutiveTimeouts int
	episodeTimeout         time.Duration
	parallelism            int
	debug                  bool
	logLevel               string

	alpha               float64
	gamma               float64
	epsilonStart        float64
	epsilonFinal        float64
	explorationFraction float64
	temperature         float64
	learningRate        float64

	evalEpisodes int
	plotEpisodes int
	frames       int
	renderMode   string
	gifEvery     int
	gifScale     int
)

func AddFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&configFile, "config", "", "YAML configuration file")
	fs.StringVar(&envFile, "env-file", ".env", "File with LANGRL_* variables, skipped when missing")

	fs.StringVar(&savePath, "save-path", flags.SavePath, "Path to save results")
	fs.Uint64Var(&seed, "seed", flags.Seed, "Seed of the simulator, run i uses seed+i")
	fs.StringVar(&storeKind, "store", flags.Store, "Policy store backend: memory, jsonl or sqlite")
	fs.StringVar(&storePath, "store-path", flags.StorePath, "Directory or database file of the policy store")

	addRunFlags(fs)
	addPolicyFlags(fs)

	fs.IntVar(&evalEpisodes, "eval-episodes", flags.EvalEpisodes, "Episodes per policy when evaluating")
	fs.IntVar(&plotEpisodes, "plot-episodes", flags.PlotEpisodes, "Episodes per policy when plotting")
	fs.IntVar(&frames, "frames", flags.Frames, "Steps to simulate")
	fs.StringVar(&renderMode, "render", flags.Render, "Render mode: none, rgb_array or human")
	fs.IntVar(&gifEvery, "gif-every", flags.GIFEvery, "Keep one rendered frame out of this many in the gif")
	fs.IntVar(&gifScale, "gif-scale", flags.GIFScale, "Downscale factor of gif frames")
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.IntVar(&numRuns, "num-runs", flags.NumRuns, "Number of runs")
	fs.IntVar(&episodes, "episodes", flags.Episodes, "Number of training episodes")
	fs.IntVar(&horizon, "horizon", flags.Horizon, "Maximum steps per episode, 0 leaves it to the simulator")
	fs.IntVar(&maxConsecutiveErrors, "max-consecutive-errors", flags.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	fs.IntVar(&maxConsecutiveTimeouts, "max-consecutive-timeouts", flags.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	fs.DurationVar(&episodeTimeout, "episode-timeout", flags.EpisodeTimeout, "Episode timeout")
	fs.IntVar(&parallelism, "parallelism", flags.Parallelism, "Number of parallel experiments")
	fs.BoolVar(&debug, "debug", flags.Debug, "Dump traces of the last episodes and log at debug level")
	fs.StringVar(&logLevel, "log-level", flags.LogLevel, "Log level")
}

func addPolicyFlags(fs *pflag.FlagSet) {
	p := flags.Policy
	fs.Float64Var(&alpha, "alpha", p.Alpha, "Q-learning step size")
	fs.Float64Var(&gamma, "gamma", p.Gamma, "Discount factor")
	fs.Float64Var(&epsilonStart, "epsilon-start", p.EpsilonStart, "Initial exploration rate")
	fs.Float64Var(&epsilonFinal, "epsilon-final", p.EpsilonFinal, "Final exploration rate")
	fs.Float64Var(&explorationFraction, "exploration-fraction", p.ExplorationFraction, "Fraction of the episodes over which exploration decays")
	fs.Float64Var(&temperature, "temperature", p.Temperature, "Softmax temperature")
	fs.Float64Var(&learningRate, "learning-rate", p.LearningRate, "Policy gradient learning rate")
}

// UpdateFlags copies the flags set on the command line, the others keep the value from
// the defaults, environment or config file.
func UpdateFlags(fs *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("save-path", func() { flags.SavePath = savePath })
	set("seed", func() { flags.Seed = seed })
	set("store", func() { flags.Store = storeKind })
	set("store-path", func() { flags.StorePath = storePath })

	set("num-runs", func() { flags.NumRuns = numRuns })
	set("episodes", func() { flags.Episodes = episodes })
	set("horizon", func() { flags.Horizon = horizon })
	set("max-consecutive-errors", func() { flags.MaxConsecutiveErrors = maxConsecutiveErrors })
	set("max-consecutive-timeouts", func() { flags.MaxConsecutiveTimeouts = maxConsecutiveTimeouts })
	set("episode-timeout", func() { flags.EpisodeTimeout = episodeTimeout })
	set("parallelism", func() { flags.Parallelism = parallelism })
	set("debug", func() { flags.Debug = debug })
	set("log-level", func() { flags.LogLevel = logLevel })

	set("alpha", func() { flags.Policy.Alpha = alpha })
	set("gamma", func() { flags.Policy.Gamma = gamma })
	set("epsilon-start", func() { flags.Policy.EpsilonStart = epsilonStart })
	set("epsilon-final", func() { flags.Policy.EpsilonFinal = epsilonFinal })
	set("exploration-fraction", func() { flags.Policy.ExplorationFraction = explorationFraction })
	set("temperature", func() { flags.Policy.Temperature = temperature })
	set("learning-rate", func() { flags.Policy.LearningRate = learningRate })

	set("eval-episodes", func() { flags.EvalEpisodes = evalEpisodes })
	set("plot-episodes", func() { flags.PlotEpisodes = plotEpisodes })
	set("frames", func() { flags.Frames = frames })
	set("render", func() { flags.Render = renderMode })
	set("gif-every", func() { flags.GIFEvery = gifEvery })
	set("gif-scale", func() { flags.GIFScale = gifScale })
}
