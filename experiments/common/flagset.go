package common

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeu5/langlearn-rl/core"
	"github.com/zeu5/langlearn-rl/policies"
	"github.com/zeu5/langlearn-rl/util"
)

const EnvPrefix = "LANGRL_"

type Flags struct {
	SavePath string `json:"save_path" yaml:"save_path"`
	Seed     uint64 `json:"seed" yaml:"seed"`

	StoreFlags `yaml:",inline"`
	RunFlags   `yaml:",inline"`

	Policy policies.Params `json:"policy" yaml:"policy"`

	EvalEpisodes int `json:"eval_episodes" yaml:"eval_episodes"`
	PlotEpisodes int `json:"plot_episodes" yaml:"plot_episodes"`

	SimulateFlags `yaml:",inline"`

	Parallelism int    `json:"parallelism" yaml:"parallelism"`
	Debug       bool   `json:"debug" yaml:"debug"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
}

type StoreFlags struct {
	Store     string `json:"store" yaml:"store"`
	StorePath string `json:"store_path" yaml:"store_path"`
}

type RunFlags struct {
	NumRuns                int           `json:"num_runs" yaml:"num_runs"`
	Episodes               int           `json:"episodes" yaml:"episodes"`
	Horizon                int           `json:"horizon" yaml:"horizon"`
	MaxConsecutiveErrors   int           `json:"max_consecutive_errors" yaml:"max_consecutive_errors"`
	MaxConsecutiveTimeouts int           `json:"max_consecutive_timeouts" yaml:"max_consecutive_timeouts"`
	EpisodeTimeout         time.Duration `json:"episode_timeout" yaml:"episode_timeout"`
}

type SimulateFlags struct {
	Frames   int    `json:"frames" yaml:"frames"`
	Render   string `json:"render" yaml:"render"`
	GIFEvery int    `json:"gif_every" yaml:"gif_every"`
	GIFScale int    `json:"gif_scale" yaml:"gif_scale"`
}

func DefaultFlags() *Flags {
	return &Flags{
		SavePath: "results",
		StoreFlags: StoreFlags{
			Store:     "jsonl",
			StorePath: "models",
		},
		RunFlags: RunFlags{
			NumRuns:                1,
			Episodes:               1000,
			Horizon:                0,
			MaxConsecutiveErrors:   20,
			MaxConsecutiveTimeouts: 20,
			EpisodeTimeout:         10 * time.Second,
		},
		Policy:       policies.DefaultParams(),
		EvalEpisodes: 10,
		PlotEpisodes: 20,
		SimulateFlags: SimulateFlags{
			Frames:   900,
			Render:   "none",
			GIFEvery: 3,
			GIFScale: 2,
		},
		Parallelism: 4,
		Debug:       false,
		LogLevel:    "info",
	}
}

// ApplyEnv overlays the LANGRL_* variables found by lookup, os.LookupEnv when nil.
func (f *Flags) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	strs := map[string]*string{
		"SAVE_PATH":  &f.SavePath,
		"STORE":      &f.Store,
		"STORE_PATH": &f.StorePath,
		"RENDER":     &f.Render,
		"LOG_LEVEL":  &f.LogLevel,
	}
	ints := map[string]*int{
		"NUM_RUNS":      &f.NumRuns,
		"EPISODES":      &f.Episodes,
		"HORIZON":       &f.Horizon,
		"EVAL_EPISODES": &f.EvalEpisodes,
		"PLOT_EPISODES": &f.PlotEpisodes,
		"FRAMES":        &f.Frames,
		"PARALLELISM":   &f.Parallelism,
	}
	for _, key := range util.SortedKeys(strs) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*strs[key] = v
		}
	}
	for _, key := range util.SortedKeys(ints) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing %s%s: %w", EnvPrefix, key, err)
		}
		*ints[key] = i
	}
	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %sSEED: %w", EnvPrefix, err)
		}
		f.Seed = seed
	}
	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing %sDEBUG: %w", EnvPrefix, err)
		}
		f.Debug = debug
	}
	return nil
}

// LoadFile overlays the yaml file at path. Keys missing from the file keep their value.
func (f *Flags) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}

// PolicyParams are the policy hyper parameters with the training length and seed of
// these flags.
func (f *Flags) PolicyParams() policies.Params {
	p := f.Policy
	p.Episodes = f.Episodes
	if p.Seed == 0 {
		p.Seed = f.Seed
	}
	return p
}

func (f *Flags) RunConfig(episodes int, evaluate bool) *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     episodes,
		Horizon:                      f.Horizon,
		EpisodeTimeout:               f.EpisodeTimeout,
		ThresholdConsecutiveErrors:   f.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: f.MaxConsecutiveTimeouts,
		Evaluate:                     evaluate,
	}
}
