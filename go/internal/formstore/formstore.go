package formstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loreweaver/keeper/go/internal/models"
)

const formFile = "pending_form.json"

// Store persists the in-progress form to disk so it survives app restarts.
// Everything else in the synchronizer is transient and rebuilt from the
// session snapshot.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, formFile)}
}

func (s *Store) Save(form models.PendingForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create form dir: %w", err)
	}

	data, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending form: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write pending form: %w", err)
	}

	return nil
}

// Load returns the persisted form, or nil when none exists.
func (s *Store) Load() (*models.PendingForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending form: %w", err)
	}

	var form models.PendingForm
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("parse pending form: %w", err)
	}

	return &form, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending form: %w", err)
	}
	return nil
}
