package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zeu5/langlearn-rl/util"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LANGRL_SAVE_PATH":   "out",
		"LANGRL_EPISODES":    "50",
		"LANGRL_SEED":        "7",
		"LANGRL_DEBUG":       "true",
		"LANGRL_STORE":       "sqlite",
		"LANGRL_PARALLELISM": "2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	f := DefaultFlags()
	if err := f.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if f.SavePath != "out" || f.Episodes != 50 || f.Seed != 7 || !f.Debug || f.Store != "sqlite" || f.Parallelism != 2 {
		t.Fatalf("unexpected flags %+v", f)
	}
	if f.Frames != 900 {
		t.Fatalf("unset variables should keep the defaults, got %d frames", f.Frames)
	}

	env["LANGRL_HORIZON"] = "many"
	if err := f.ApplyEnv(lookup); err == nil {
		t.Fatal("expected an error for a non numeric horizon")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	config := "save_path: runs\nepisodes: 200\nepisode_timeout: 30s\nrender: rgb_array\npolicy:\n  alpha: 0.5\n"
	if err := os.WriteFile(file, []byte(config), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := DefaultFlags()
	if err := f.LoadFile(file); err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.SavePath != "runs" || f.Episodes != 200 || f.EpisodeTimeout != 30*time.Second || f.Render != "rgb_array" {
		t.Fatalf("unexpected flags %+v", f)
	}
	if f.Policy.Alpha != 0.5 {
		t.Fatalf("expected alpha 0.5, got %v", f.Policy.Alpha)
	}
	if f.EvalEpisodes != 10 {
		t.Fatalf("keys missing from the file should keep their value, got %d", f.EvalEpisodes)
	}

	if err := f.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestRecord(t *testing.T) {
	f := DefaultFlags()
	f.SavePath = t.TempDir()
	f.Seed = 3
	if err := f.Record(); err != nil {
		t.Fatalf("record: %v", err)
	}
	read := &Flags{}
	if err := util.ReadJson(filepath.Join(f.SavePath, "config.json"), read); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(f, read); diff != "" {
		t.Fatalf("recorded config differs (-want +got):\n%s", diff)
	}
}

func TestPolicyParams(t *testing.T) {
	f := DefaultFlags()
	f.Episodes = 300
	f.Seed = 11
	p := f.PolicyParams()
	if p.Episodes != 300 || p.Seed != 11 {
		t.Fatalf("unexpected params %+v", p)
	}

	rc := f.RunConfig(10, true)
	if rc.Episodes != 10 || !rc.Evaluate || rc.EpisodeTimeout != f.EpisodeTimeout {
		t.Fatalf("unexpected run config %+v", rc)
	}
}
