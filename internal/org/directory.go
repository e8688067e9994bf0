package org

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Directory defines the authorization list for verifier organizations.
// Reads are public; writes are restricted to the administrative identity at
// the HTTP boundary.
type Directory interface {
	// Register authorizes an address under a display name. Calling it again
	// for the same address updates the name and must not un-authorize.
	Register(ctx context.Context, name, address string) (*Organization, error)

	// IsAuthorized reports whether the address may act as a verifier.
	IsAuthorized(ctx context.Context, address string) (bool, error)

	// Get retrieves one organization. Returns ErrNotFound if unknown.
	Get(ctx context.Context, address string) (*Organization, error)

	// List returns all currently authorized organizations, oldest first.
	List(ctx context.Context) ([]*Organization, error)

	// Revoke withdraws authorization without deleting the record. No HTTP
	// surface yet; present so revocation never requires a schema change.
	Revoke(ctx context.Context, address string) error
}

// InMemoryDirectory implements Directory with in-memory storage.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryDirectory struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

// NewInMemoryDirectory creates a new in-memory organization directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		orgs: make(map[string]*Organization),
	}
}

// Register authorizes an address under a display name.
func (d *InMemoryDirectory) Register(_ context.Context, name, address string) (*Organization, error) {
	key := strings.ToLower(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.orgs[key]; ok {
		existing.Name = name
		existing.Authorized = true
		copied := *existing
		return &copied, nil
	}

	o := &Organization{
		Name:         name,
		Address:      address,
		Authorized:   true,
		RegisteredAt: time.Now().UTC(),
	}
	d.orgs[key] = o

	copied := *o
	return &copied, nil
}

// IsAuthorized reports whether the address may act as a verifier.
func (d *InMemoryDirectory) IsAuthorized(_ context.Context, address string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.orgs[strings.ToLower(address)]
	return ok && o.Authorized, nil
}

// Get retrieves one organization.
func (d *InMemoryDirectory) Get(_ context.Context, address string) (*Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.orgs[strings.ToLower(address)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *o
	return &copied, nil
}

// List returns all currently authorized organizations, oldest first.
func (d *InMemoryDirectory) List(_ context.Context) ([]*Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]*Organization, 0, len(d.orgs))
	for _, o := range d.orgs {
		if !o.Authorized {
			continue
		}
		copied := *o
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].RegisteredAt.Before(results[j].RegisteredAt)
	})
	return results, nil
}

// Revoke withdraws authorization without deleting the record.
func (d *InMemoryDirectory) Revoke(_ context.Context, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, ok := d.orgs[strings.ToLower(address)]
	if !ok {
		return ErrNotFound
	}
	o.Authorized = false
	return nil
}
