package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeu5/langlearn-rl/util"
)

const (
	jsonlPolicyDir   = "policies"
	jsonlHistoryFile = "rewards.jsonl"
)

// JSONLStore keeps one file per policy under a directory. The first line of a policy
// file holds the record without its tables, every following line one table row:
//
//	{"table":"q","state":"<hash>","entries":{"0":1.5,"1":-2}}
//
// Reward histories are appended to a single rewards.jsonl file, the last line for a
// run id wins.
type JSONLStore struct {
	dir string
	mu  sync.Mutex
}

func NewJSONLStore(dir string) *JSONLStore {
	return &JSONLStore{dir: dir}
}

type jsonlRow struct {
	Table   string             `json:"table"`
	State   string             `json:"state"`
	Entries map[string]float64 `json:"entries"`
}

func (s *JSONLStore) Init(_ context.Context) error {
	if s.dir == "" {
		return errors.New("jsonl store directory is required")
	}
	return util.EnsureDir(filepath.Join(s.dir, jsonlPolicyDir))
}

func (s *JSONLStore) policyPath(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, jsonlPolicyDir, name+".jsonl"), nil
}

func (s *JSONLStore) SavePolicy(_ context.Context, record PolicyRecord) error {
	if record.Snapshot == nil {
		return errors.New("policy record has no snapshot")
	}
	path, err := s.policyPath(record.Name)
	if err != nil {
		return err
	}
	header := record
	snapshot := *record.Snapshot
	snapshot.Tables = nil
	header.Snapshot = &snapshot

	bs := new(bytes.Buffer)
	headerBS, err := EncodePolicy(header)
	if err != nil {
		return err
	}
	bs.Write(headerBS)
	bs.WriteString("\n")

	tables := util.SortedKeys(record.Snapshot.Tables)
	for _, table := range tables {
		rows := record.Snapshot.Tables[table]
		for _, state := range util.SortedKeys(rows) {
			rowBS, err := json.Marshal(jsonlRow{Table: table, State: state, Entries: rows[state]})
			if err != nil {
				return err
			}
			bs.Write(rowBS)
			bs.WriteString("\n")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(path, bs.Bytes(), 0644)
}

func (s *JSONLStore) LoadPolicy(_ context.Context, name string) (PolicyRecord, bool, error) {
	path, err := s.policyPath(name)
	if err != nil {
		return PolicyRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PolicyRecord{}, false, nil
		}
		return PolicyRecord{}, false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return PolicyRecord{}, false, err
		}
		return PolicyRecord{}, false, fmt.Errorf("policy file %s is empty", name)
	}
	record, err := DecodePolicy(scanner.Bytes())
	if err != nil {
		return PolicyRecord{}, false, fmt.Errorf("decode policy %s: %w", name, err)
	}
	tables := make(map[string]map[string]map[string]float64)
	for scanner.Scan() {
		var row jsonlRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return PolicyRecord{}, false, fmt.Errorf("error reading file contents: %w", err)
		}
		if _, ok := tables[row.Table]; !ok {
			tables[row.Table] = make(map[string]map[string]float64)
		}
		tables[row.Table][row.State] = row.Entries
	}
	if err := scanner.Err(); err != nil {
		return PolicyRecord{}, false, err
	}
	if len(tables) > 0 {
		record.Snapshot.Tables = tables
	}
	return record, true, nil
}

func (s *JSONLStore) ListPolicies(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, jsonlPolicyDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".jsonl"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *JSONLStore) SaveRewardHistory(_ context.Context, history RewardHistory) error {
	payload, err := EncodeRewardHistory(history)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(filepath.Join(s.dir, jsonlHistoryFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(append(payload, '\n'))
	return err
}

func (s *JSONLStore) GetRewardHistory(_ context.Context, runID string) (RewardHistory, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(filepath.Join(s.dir, jsonlHistoryFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RewardHistory{}, false, nil
		}
		return RewardHistory{}, false, err
	}
	defer file.Close()

	var found RewardHistory
	ok := false
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		history, err := DecodeRewardHistory(scanner.Bytes())
		if err != nil {
			return RewardHistory{}, false, fmt.Errorf("decode reward history: %w", err)
		}
		if history.RunID == runID {
			found = history
			ok = true
		}
	}
	return found, ok, scanner.Err()
}

var _ Store = &JSONLStore{}

