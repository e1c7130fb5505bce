package store

import (
	"encoding/json"
	"errors"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodePolicy(r PolicyRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodePolicy(data []byte) (PolicyRecord, error) {
	var record PolicyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return PolicyRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return PolicyRecord{}, err
	}
	if record.Snapshot == nil {
		return PolicyRecord{}, errors.New("policy record has no snapshot")
	}
	return record, nil
}

func EncodeRewardHistory(h RewardHistory) ([]byte, error) {
	return json.Marshal(h)
}

func DecodeRewardHistory(data []byte) (RewardHistory, error) {
	var history RewardHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return RewardHistory{}, err
	}
	if err := checkVersion(history.VersionedRecord); err != nil {
		return RewardHistory{}, err
	}
	return history, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
