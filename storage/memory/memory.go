// Package memory is an in-process storage backend. Several clients may share
// one Backend to behave like browser tabs over the same origin storage.
package memory

import (
	"context"
	"sort"
	"sync"
)

// Op names a backend operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
)

// Backend is a mutex-guarded map.
type Backend struct {
	mu     sync.RWMutex
	values map[string]string
	faults map[Op]map[string]error
}

func New() *Backend {
	return &Backend{
		values: make(map[string]string),
		faults: make(map[Op]map[string]error),
	}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.fault(OpGet, key); err != nil {
		return "", false, err
	}
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fault(OpSet, key); err != nil {
		return err
	}
	b.values[key] = value
	return nil
}

func (b *Backend) Remove(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fault(OpRemove, key); err != nil {
		return false, err
	}
	_, ok := b.values[key]
	delete(b.values, key)
	return ok, nil
}

// Fail makes every op on key return err until Heal is called. A nil err
// clears the fault.
func (b *Backend) Fail(op Op, key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.faults[op], key)
		return
	}
	if b.faults[op] == nil {
		b.faults[op] = make(map[string]error)
	}
	b.faults[op][key] = err
}

// Heal clears every injected fault.
func (b *Backend) Heal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = make(map[Op]map[string]error)
}

// Keys returns the stored keys in sorted order.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the stored value without decoding.
func (b *Backend) Raw(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Put writes a raw value, bypassing fault injection.
func (b *Backend) Put(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

func (b *Backend) fault(op Op, key string) error {
	if m := b.faults[op]; m != nil {
		return m[key]
	}
	return nil
}
