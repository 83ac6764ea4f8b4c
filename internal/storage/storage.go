package storage

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raphi011/kv/internal/registry"
)

var (
	// ErrCorruptStore is returned when the store file exists but cannot be parsed.
	ErrCorruptStore = errors.New("corrupt store")
	// ErrPersist is returned when the store could not be written.
	// The previous file, if any, is left untouched.
	ErrPersist = errors.New("persist store")
)

// Format is an on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format used for path, based on its extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Store reads and writes a registry at a fixed path.
type Store struct {
	path   string
	format Format
	lock   *fileLock
}

// New returns a store for path. With useLock, Lock takes an exclusive file lock.
func New(path string, useLock bool) *Store {
	s := &Store{path: path, format: FormatFor(path)}
	if useLock {
		s.lock = newFileLock(path + ".lock")
	}
	return s
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Lock acquires the store lock and returns a function releasing it.
// Without locking enabled it returns a no-op.
func (s *Store) Lock() (unlock func() error, err error) {
	if s.lock == nil {
		return func() error { return nil }, nil
	}
	if err := s.lock.lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.path, err)
	}
	return s.lock.unlock, nil
}

// Load reads the registry. A missing or empty file yields an empty registry.
// On ErrCorruptStore no partial state is returned.
func (s *Store) Load() (*registry.Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return registry.New(), nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return registry.New(), nil
	}

	reg := registry.New()
	switch s.format {
	case FormatYAML:
		err = yaml.Unmarshal(data, reg)
	default:
		err = json.Unmarshal(data, reg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return reg, nil
}

// Save writes the whole registry and marks it clean.
// The parent directory is created if needed.
func (s *Store) Save(reg *registry.Registry) error {
	data, err := s.encode(reg)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersist, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	reg.MarkClean()
	return nil
}

func (s *Store) encode(reg *registry.Registry) ([]byte, error) {
	if s.format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(reg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// atomicWrite writes data to a uniquely named temp file in the same directory
// and renames it over path.
func atomicWrite(path string, data []byte) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Errorf("generate temp suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(suffix)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
