package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Entry is one key/value pair of a Keyed snapshot.
type Entry[V any] struct {
	Key   string
	Value V
}

// Keyed is a concurrency-safe map that remembers insertion order.
// Overwriting a key keeps its original position. It serialises as a JSON
// object whose members appear in insertion order.
type Keyed[V any] struct {
	mu      sync.Mutex
	index   map[string]int
	entries []Entry[V]
}

// NewKeyed creates an empty Keyed map.
func NewKeyed[V any]() *Keyed[V] {
	return &Keyed[V]{index: make(map[string]int)}
}

// Put stores v under key, last write wins.
func (k *Keyed[V]) Put(key string, v V) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.putLocked(key, v)
}

func (k *Keyed[V]) putLocked(key string, v V) {
	if k.index == nil {
		k.index = make(map[string]int)
	}
	if i, ok := k.index[key]; ok {
		k.entries[i].Value = v
		return
	}
	k.index[key] = len(k.entries)
	k.entries = append(k.entries, Entry[V]{Key: key, Value: v})
}

// Upsert atomically replaces the value under key with fn's result. fn sees
// the current value and whether it exists; if fn fails nothing is written.
func (k *Keyed[V]) Upsert(key string, fn func(cur V, exists bool) (V, error)) (V, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var cur V
	i, exists := k.index[key]
	if exists {
		cur = k.entries[i].Value
	}
	next, err := fn(cur, exists)
	if err != nil {
		return cur, err
	}
	k.putLocked(key, next)
	return next, nil
}

// Get returns the value stored under key.
func (k *Keyed[V]) Get(key string) (V, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var zero V
	i, ok := k.index[key]
	if !ok {
		return zero, false
	}
	return k.entries[i].Value, true
}

// Len returns the number of keys.
func (k *Keyed[V]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Snapshot copies the entries in insertion order.
func (k *Keyed[V]) Snapshot() []Entry[V] {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Entry[V], len(k.entries))
	copy(out, k.entries)
	return out
}

// MarshalJSON encodes the map as an ordered JSON object.
func (k *Keyed[V]) MarshalJSON() ([]byte, error) {
	entries := k.Snapshot()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("storage: encode %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON merges a JSON object into the map, preserving the order of
// its members. Existing keys are overwritten in place.
func (k *Keyed[V]) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("storage: decode keyed map: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("storage: decode keyed map: want object, got %v", tok)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("storage: decode keyed map: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("storage: decode keyed map: bad key %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("storage: decode %q: %w", key, err)
		}
		k.putLocked(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("storage: decode keyed map: %w", err)
	}
	return nil
}
