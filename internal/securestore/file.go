package securestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const storeFileName = "secure_store.json"

// FileStore persists values as a JSON map in a single file under dir. When a
// passphrase is set the file is sealed (scrypt + ChaCha20-Poly1305).
type FileStore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewFileStore returns a store rooted at dir. An empty passphrase stores the
// map in plain JSON with 0600 permissions.
func NewFileStore(dir, passphrase string) *FileStore {
	return &FileStore{dir: dir, passphrase: passphrase}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, storeFileName)
}

// loadAllUnlocked reads the store file WITHOUT acquiring the mutex. Caller must hold the lock.
func (s *FileStore) loadAllUnlocked() (map[string]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("load secure store: %w", err)
	}
	if s.passphrase != "" {
		if data, err = open(s.passphrase, data); err != nil {
			return nil, fmt.Errorf("open secure store: %w", err)
		}
	}
	out := make(map[string]string)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal secure store: %w", err)
	}
	return out, nil
}

// saveAllUnlocked writes the store file WITHOUT acquiring the mutex. Caller must hold the lock.
func (s *FileStore) saveAllUnlocked(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal secure store: %w", err)
	}
	if s.passphrase != "" {
		if b, err = seal(s.passphrase, b); err != nil {
			return fmt.Errorf("seal secure store: %w", err)
		}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir secure store dir: %w", err)
	}
	// write-then-rename; readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, storeFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write secure store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod secure store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close secure store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replace secure store: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.loadAllUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set holds the mutex for the entire read-modify-write cycle to avoid lost updates.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.loadAllUnlocked()
	if err != nil {
		return err
	}
	m[key] = value
	return s.saveAllUnlocked(m)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.loadAllUnlocked()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.saveAllUnlocked(m)
}
