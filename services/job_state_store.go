package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"screener_backend/models"
)

// JobStateStore persists the singleton refresh job state outside process
// memory so it survives restarts. Implementations must make Load after Save
// return what was saved, across processes.
type JobStateStore interface {
	Load() (models.JobState, error)
	Save(models.JobState) error
}

// FileJobStateStore persists the job state as a JSON file.
type FileJobStateStore struct {
	path string
}

// NewFileJobStateStore creates a file-backed state store and ensures the
// state file exists, initializing it to idle if missing.
func NewFileJobStateStore(path string) (*FileJobStateStore, error) {
	s := &FileJobStateStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Save(models.IdleJobState(nil)); err != nil {
			return nil, fmt.Errorf("failed to initialize job state file: %w", err)
		}
	}
	return s, nil
}

// Load reads the current job state from disk.
func (s *FileJobStateStore) Load() (models.JobState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.JobState{}, fmt.Errorf("failed to read job state: %w", err)
	}
	var state models.JobState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.JobState{}, fmt.Errorf("failed to parse job state: %w", err)
	}
	return state, nil
}

// Save writes the job state to disk.
func (s *FileJobStateStore) Save(state models.JobState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
