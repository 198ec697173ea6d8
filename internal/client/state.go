package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

// Store is where SetupState persists itself between runs. The web
// predecessor kept this in ambient localStorage; here storage is
// injected so tooling can choose a file, memory, or nothing.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
}

const setupStateKey = "darter.match_setup"

// SetupState is the client-side match-setup and session cache.
type SetupState struct {
	mu    sync.Mutex
	store Store

	SessionID     string              `json:"session_id"`
	Player1Name   string              `json:"player1_name"`
	Player2Name   string              `json:"player2_name"`
	StartingScore int                 `json:"starting_score"`
	CheckoutRule  domain.CheckoutRule `json:"checkout_rule"`
}

func NewSetupState(store Store) (*SetupState, error) {
	s := &SetupState{
		store:         store,
		StartingScore: 501,
		CheckoutRule:  domain.CheckoutDouble,
	}

	raw, found, err := store.Load(setupStateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load setup state: %w", err)
	}
	if found {
		if err := json.Unmarshal(raw, s); err != nil {
			return nil, fmt.Errorf("failed to decode setup state: %w", err)
		}
	}

	if s.SessionID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}
		s.SessionID = id
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *SetupState) Update(fn func(*SetupState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
	return s.persist()
}

func (s *SetupState) persist() error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode setup state: %w", err)
	}
	return s.store.Save(setupStateKey, raw)
}

// MemoryStore keeps state for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// FileStore keeps each key in its own JSON file under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Load(key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (f *FileStore) Save(key string, value []byte) error {
	return os.WriteFile(f.path(key), value, 0o644)
}

func (f *FileStore) path(key string) string {
	return fmt.Sprintf("%s/%s.json", f.dir, key)
}
