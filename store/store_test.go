package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zeu5/langlearn-rl/policies"
)

func testSnapshot() *policies.Snapshot {
	return &policies.Snapshot{
		Kind:     policies.KindQLearning,
		Params:   policies.DefaultParams(),
		Episodes: 12,
		Tables: map[string]map[string]map[string]float64{
			"q": {
				"a1": {"0": 1.5, "1": -2},
				"b2": {"3": 4},
			},
		},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := make(map[string]Store)
	for _, kind := range []string{"memory", "jsonl", "sqlite"} {
		s, err := NewStore(kind, filepath.Join(dir, kind))
		if err != nil {
			t.Fatalf("new %s store: %v", kind, err)
		}
		if err := s.Init(context.Background()); err != nil {
			t.Fatalf("init %s store: %v", kind, err)
		}
		t.Cleanup(func() {
			_ = CloseIfSupported(s)
		})
		out[kind] = s
	}
	return out
}

func TestPolicyRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			runID := NewRunID()
			record := NewPolicyRecord("dqn", runID, testSnapshot())
			if err := s.SavePolicy(ctx, record); err != nil {
				t.Fatalf("save policy: %v", err)
			}
			loaded, ok, err := s.LoadPolicy(ctx, "dqn")
			if err != nil {
				t.Fatalf("load policy: %v", err)
			}
			if !ok {
				t.Fatal("expected policy dqn")
			}
			if loaded.RunID != runID || !loaded.CreatedAt.Equal(record.CreatedAt) {
				t.Fatalf("unexpected record: %+v", loaded)
			}
			if diff := cmp.Diff(record.Snapshot, loaded.Snapshot); diff != "" {
				t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
			}

			if _, ok, err := s.LoadPolicy(ctx, "missing"); err != nil || ok {
				t.Fatalf("expected missing policy, got ok=%v err=%v", ok, err)
			}

			overwritten := NewPolicyRecord("dqn", NewRunID(), testSnapshot())
			overwritten.Snapshot.Episodes = 99
			if err := s.SavePolicy(ctx, overwritten); err != nil {
				t.Fatalf("overwrite policy: %v", err)
			}
			if err := s.SavePolicy(ctx, NewPolicyRecord("pg", runID, &policies.Snapshot{Kind: policies.KindRandom})); err != nil {
				t.Fatalf("save second policy: %v", err)
			}
			loaded, _, _ = s.LoadPolicy(ctx, "dqn")
			if loaded.Snapshot.Episodes != 99 {
				t.Fatalf("expected the overwrite to win, got %d episodes", loaded.Snapshot.Episodes)
			}
			names, err := s.ListPolicies(ctx)
			if err != nil {
				t.Fatalf("list policies: %v", err)
			}
			if diff := cmp.Diff([]string{"dqn", "pg"}, names); diff != "" {
				t.Fatalf("policy names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRewardHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			history := NewRewardHistory(NewRunID(), "dqn", []float64{1, -3.5, 742})
			if err := s.SaveRewardHistory(ctx, history); err != nil {
				t.Fatalf("save history: %v", err)
			}
			if err := s.SaveRewardHistory(ctx, NewRewardHistory(NewRunID(), "pg", []float64{2})); err != nil {
				t.Fatalf("save second history: %v", err)
			}
			loaded, ok, err := s.GetRewardHistory(ctx, history.RunID)
			if err != nil || !ok {
				t.Fatalf("get history: ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(history.Returns, loaded.Returns); diff != "" {
				t.Fatalf("returns mismatch (-want +got):\n%s", diff)
			}
			if loaded.Policy != "dqn" {
				t.Fatalf("expected policy dqn, got %s", loaded.Policy)
			}
			if _, ok, _ := s.GetRewardHistory(ctx, "nope"); ok {
				t.Fatal("expected missing history")
			}
		})
	}
}

func TestLoadPoliciesNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.SavePolicy(ctx, NewPolicyRecord("dqn", NewRunID(), testSnapshot())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadPolicies(ctx, s, "dqn", "pg"); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
	records, err := LoadPolicies(ctx, s, "dqn")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one record, got %d (%v)", len(records), err)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	record := NewPolicyRecord("dqn", NewRunID(), testSnapshot())
	record.SchemaVersion = CurrentSchemaVersion + 1
	payload, err := EncodePolicy(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodePolicy(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestJSONLStoreWritesOneRowPerState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewJSONLStore(dir)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.SavePolicy(ctx, NewPolicyRecord("dqn", NewRunID(), testSnapshot())); err != nil {
		t.Fatalf("save: %v", err)
	}
	bs, err := os.ReadFile(filepath.Join(dir, "policies", "dqn.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	for _, b := range bs {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Fatalf("expected a header and two state rows, got %d lines:\n%s", lines, bs)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	if _, err := NewStore("unknown", ""); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestUninitializedMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SavePolicy(context.Background(), NewPolicyRecord("x", "r", testSnapshot())); err == nil {
		t.Fatal("expected an error before Init")
	}
}

func TestPolicyNamesStayInsideTheStore(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			for _, name := range []string{"", "..", "../escaped", "a/b", `a\b`} {
				err := s.SavePolicy(ctx, NewPolicyRecord(name, NewRunID(), testSnapshot()))
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("save %q: expected ErrInvalidName, got %v", name, err)
				}
			}
		})
	}

	dir := t.TempDir()
	s := NewJSONLStore(filepath.Join(dir, "store"))
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, _, err := s.LoadPolicy(ctx, "../../secret"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName on load, got %v", err)
	}
}
