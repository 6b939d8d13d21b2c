package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/models"
)

// State is everything a validator device keeps locally while offline:
// the issued token batch, the consumed entries awaiting reconciliation and
// the color seed snapshot taken at sync time.
type State struct {
	Issued []models.OfflineToken     `json:"issued"`
	Used   []models.UsedOfflineToken `json:"used"`
	Seeds  map[uuid.UUID]string      `json:"seeds"`
}

// Store persists pool state across process restarts
type Store interface {
	Load() (State, error)
	Save(state State) error
}

// FileStore keeps the pool state in a single JSON document.
// Writes go through a temp file and rename, so a crash mid-write leaves the
// previous state intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (State, error) {
	state := State{Seeds: make(map[uuid.UUID]string)}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return state, nil
	case err != nil:
		return state, fmt.Errorf("can't read offline state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("can't parse offline state: %w", err)
	}
	if state.Seeds == nil {
		state.Seeds = make(map[uuid.UUID]string)
	}

	return state, nil
}

func (s *FileStore) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("can't serialize offline state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("can't create offline state dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("can't write offline state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("can't replace offline state: %w", err)
	}

	return nil
}
