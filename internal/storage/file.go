package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the file used when no path is configured.
const DefaultFile = "storage.json"

// FileStorage keeps all profiles in a single JSON document on disk. Every
// write rewrites the file.
type FileStorage struct {
	Profiles map[string]map[string]string `json:"profiles"`

	mu   sync.Mutex
	path string
}

// NewFileStorage opens the store at path, loading it if the file exists.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		path = DefaultFile
	}
	fs := &FileStorage{path: path}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load reads the file. A missing file yields an empty store.
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.Profiles = make(map[string]map[string]string)
			return nil
		}
		return fmt.Errorf("open storage: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(fs); err != nil {
		return fmt.Errorf("decode storage: %w", err)
	}
	if fs.Profiles == nil {
		fs.Profiles = make(map[string]map[string]string)
	}
	return nil
}

// document is the on-disk layout.
type document struct {
	Profiles map[string]map[string]string `json:"profiles"`
}

// save writes profiles to disk; callers hold mu.
func (fs *FileStorage) save(profiles map[string]map[string]string) error {
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := json.NewEncoder(f).Encode(document{Profiles: profiles}); err != nil {
		f.Close()
		return fmt.Errorf("encode storage: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace storage: %w", err)
	}
	return nil
}

// update applies fn to a copy of the profile's items and swaps the copy in
// only after it reached the disk. Callers hold mu.
func (fs *FileStorage) update(profile string, fn func(items map[string]string)) error {
	items := maps.Clone(fs.Profiles[profile])
	if items == nil {
		items = make(map[string]string)
	}
	fn(items)

	next := maps.Clone(fs.Profiles)
	if len(items) == 0 {
		delete(next, profile)
	} else {
		next[profile] = items
	}
	if err := fs.save(next); err != nil {
		return err
	}
	fs.Profiles = next
	return nil
}

func (fs *FileStorage) Get(_ context.Context, profile, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.Profiles[profile][key]
	return v, ok, nil
}

func (fs *FileStorage) Set(_ context.Context, profile, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.update(profile, func(items map[string]string) {
		items[key] = value
	})
}

func (fs *FileStorage) Remove(_ context.Context, profile, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.Profiles[profile][key]; !ok {
		return nil
	}
	return fs.update(profile, func(items map[string]string) {
		delete(items, key)
	})
}
