package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zeu5/langlearn-rl/policies"
)

var (
	ErrPolicyNotFound = errors.New("policy not found")
	ErrInvalidName    = errors.New("invalid policy name")
)

// checkName rejects policy names that could escape a store directory.
func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// VersionedRecord captures schema and codec evolution for persisted data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func currentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// PolicyRecord is a trained policy stored under a name.
type PolicyRecord struct {
	VersionedRecord
	Name      string             `json:"name"`
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Snapshot  *policies.Snapshot `json:"snapshot"`
}

func NewPolicyRecord(name, runID string, snapshot *policies.Snapshot) PolicyRecord {
	return PolicyRecord{
		VersionedRecord: currentVersion(),
		Name:            name,
		RunID:           runID,
		CreatedAt:       time.Now().UTC(),
		Snapshot:        snapshot,
	}
}

// RewardHistory is the per-episode reward of one training run.
type RewardHistory struct {
	VersionedRecord
	RunID     string    `json:"run_id"`
	Policy    string    `json:"policy"`
	Returns   []float64 `json:"returns"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRewardHistory(runID, policy string, returns []float64) RewardHistory {
	return RewardHistory{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Policy:          policy,
		Returns:         returns,
		CreatedAt:       time.Now().UTC(),
	}
}

func NewRunID() string {
	return uuid.NewString()
}

// Store persists trained policies and their reward histories.
type Store interface {
	Init(ctx context.Context) error
	SavePolicy(ctx context.Context, record PolicyRecord) error
	LoadPolicy(ctx context.Context, name string) (PolicyRecord, bool, error)
	ListPolicies(ctx context.Context) ([]string, error)
	SaveRewardHistory(ctx context.Context, history RewardHistory) error
	GetRewardHistory(ctx context.Context, runID string) (RewardHistory, bool, error)
}

// LoadPolicies loads every named policy, failing with ErrPolicyNotFound on the first
// missing one.
func LoadPolicies(ctx context.Context, s Store, names ...string) ([]PolicyRecord, error) {
	out := make([]PolicyRecord, 0, len(names))
	for _, name := range names {
		record, ok, err := s.LoadPolicy(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load policy %s: %w", name, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
		}
		out = append(out, record)
	}
	return out, nil
}
