// Package file persists the credential store as one JSON document on disk,
// readable only by the owning user.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	dirName  = ".qms"
	fileName = "credentials.json"
)

// Backend stores all keys in a single JSON object file.
type Backend struct {
	mu   sync.Mutex
	path string
}

// NewDefault opens ~/.qms/credentials.json, creating the directory if needed.
func NewDefault() (*Backend, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return New(filepath.Join(home, dirName, fileName))
}

// New opens the document at path.
func New(path string) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &Backend{path: path}, nil
}

// Path returns the document location.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	values, err := b.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	values, err := b.load()
	if err != nil {
		return err
	}
	values[key] = value
	return b.save(values)
}

func (b *Backend) Remove(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	values, err := b.load()
	if err != nil {
		return false, err
	}
	if _, ok := values[key]; !ok {
		return false, nil
	}
	delete(values, key)
	if len(values) == 0 {
		if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to delete credentials file: %w", err)
		}
		return true, nil
	}
	return true, b.save(values)
}

func (b *Backend) load() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return values, nil
}

func (b *Backend) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}
