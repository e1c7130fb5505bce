package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps encoded records in memory, so callers never share state with it.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	policies    map[string][]byte
	history     map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.policies = make(map[string][]byte)
	s.history = make(map[string][]byte)
	return nil
}

func (s *MemoryStore) SavePolicy(_ context.Context, record PolicyRecord) error {
	if err := checkName(record.Name); err != nil {
		return err
	}
	payload, err := EncodePolicy(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.policies[record.Name] = payload
	return nil
}

func (s *MemoryStore) LoadPolicy(_ context.Context, name string) (PolicyRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.policies[name]
	s.mu.RUnlock()
	if !ok {
		return PolicyRecord{}, false, nil
	}
	record, err := DecodePolicy(payload)
	if err != nil {
		return PolicyRecord{}, false, err
	}
	return record, true, nil
}

func (s *MemoryStore) ListPolicies(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) SaveRewardHistory(_ context.Context, history RewardHistory) error {
	payload, err := EncodeRewardHistory(history)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.history[history.RunID] = payload
	return nil
}

func (s *MemoryStore) GetRewardHistory(_ context.Context, runID string) (RewardHistory, bool, error) {
	s.mu.RLock()
	payload, ok := s.history[runID]
	s.mu.RUnlock()
	if !ok {
		return RewardHistory{}, false, nil
	}
	history, err := DecodeRewardHistory(payload)
	if err != nil {
		return RewardHistory{}, false, err
	}
	return history, true, nil
}
