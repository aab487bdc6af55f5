package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the name of the persisted session record.
const FileName = "auth-storage.json"

var ErrCorruptRecord = errors.New("поврежденная запись сессии")

// Persister stores the durable part of the session between runs.
// Load returns a nil state when nothing has been saved.
type Persister interface {
	Load() (*State, error)
	Save(state State) error
	Clear() error
}

type record struct {
	State   State `json:"state"`
	Version int   `json:"version"`
}

// FilePersister keeps the session in a JSON file readable only by its owner.
type FilePersister struct {
	path string
}

func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, FileName)}
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load() (*State, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return &rec.State, nil
}

// Save writes through a temporary file and a rename, so a concurrent reader
// sees either the old record or the new one.
func (p *FilePersister) Save(state State) error {
	data, err := json.Marshal(record{State: state})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога сессии: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}
	return nil
}

func (p *FilePersister) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

// MemoryPersister keeps the record in process memory.
type MemoryPersister struct {
	mu    sync.Mutex
	state *State
}

func (p *MemoryPersister) Load() (*State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil, nil
	}
	cp := p.state.clone()
	return &cp, nil
}

func (p *MemoryPersister) Save(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := state.clone()
	p.state = &cp
	return nil
}

func (p *MemoryPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = nil
	return nil
}
