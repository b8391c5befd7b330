package codec

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the byte-level backend a property file is persisted to.
// Read's second return reports whether the backing resource exists; a
// missing resource is not an error, the caller falls back to defaults.
type Storage interface {
	Read() ([]byte, bool, error)
	Write(data []byte) error
}

// FileStorage persists to a single file on disk. Writes go through a
// temporary file in the same directory followed by a rename, so readers
// never observe a half-written property file.
type FileStorage struct {
	Path string
}

// NewFileStorage builds a FileStorage for path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

func (s *FileStorage) Read() ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileStorage) Write(data []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// MemoryStorage keeps the serialized bytes in memory. Intended for tests
// and examples; it makes no persistence promises.
type MemoryStorage struct {
	mu     sync.Mutex
	data   []byte
	exists bool
}

// NewMemoryStorage builds an empty MemoryStorage. Seed it with Write.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Read() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return nil, false, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true, nil
}

func (s *MemoryStorage) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data[:0], data...)
	s.exists = true
	return nil
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
