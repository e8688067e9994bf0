// Package blob stores encrypted document payloads under opaque locators.
package blob

import (
	"context"
	"errors"
	"sync"
)

// Store errors
var (
	ErrNotFound       = errors.New("blob not found")
	ErrEmptyLocator   = errors.New("locator must not be empty")
	ErrEmptyPayload   = errors.New("payload must not be empty")
	ErrLocatorInUse   = errors.New("locator already in use")
)

// Store persists opaque byte payloads. Payloads are expected to be sealed by
// the caller before Put; the store never inspects them.
type Store interface {
	// Put writes the payload under the locator.
	// Returns ErrLocatorInUse when the locator is already occupied.
	Put(ctx context.Context, locator string, payload []byte) error

	// Get reads the payload stored under the locator.
	// Returns ErrNotFound when nothing is stored there.
	Get(ctx context.Context, locator string) ([]byte, error)

	// Delete removes the payload stored under the locator. Deleting a
	// locator that holds nothing is not an error.
	Delete(ctx context.Context, locator string) error
}

// InMemoryStore implements Store with in-memory storage.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewInMemoryStore creates a new in-memory blob store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Put writes the payload under the locator.
func (s *InMemoryStore) Put(_ context.Context, locator string, payload []byte) error {
	if locator == "" {
		return ErrEmptyLocator
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[locator]; ok {
		return ErrLocatorInUse
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	s.blobs[locator] = copied
	return nil
}

// Get reads the payload stored under the locator.
func (s *InMemoryStore) Get(_ context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.blobs[locator]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	return copied, nil
}

// Delete removes the payload stored under the locator.
func (s *InMemoryStore) Delete(_ context.Context, locator string) error {
	if locator == "" {
		return ErrEmptyLocator
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, locator)
	return nil
}
