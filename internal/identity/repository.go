package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository defines persistence for registered identities. Addresses are
// compared case-insensitively; implementations key by the lowercase form.
type Repository interface {
	// Register stores a new identity. Returns ErrAlreadyRegistered if the
	// address is already known.
	Register(ctx context.Context, ident *Identity) error

	// Get retrieves an identity by address.
	// Returns ErrNotFound if the address is not registered.
	Get(ctx context.Context, address string) (*Identity, error)

	// IsRegistered reports whether an identity exists for the address.
	IsRegistered(ctx context.Context, address string) (bool, error)

	// SetActive toggles the active flag on an existing identity.
	SetActive(ctx context.Context, address string, active bool) error
}

// InMemoryRepository implements Repository with in-memory storage.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu         sync.RWMutex
	identities map[string]*Identity
}

// NewInMemoryRepository creates a new in-memory identity repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		identities: make(map[string]*Identity),
	}
}

// Register stores a new identity.
func (r *InMemoryRepository) Register(_ context.Context, ident *Identity) error {
	key := strings.ToLower(ident.Address)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.identities[key]; exists {
		return ErrAlreadyRegistered
	}

	copied := *ident
	if copied.RegisteredAt.IsZero() {
		copied.RegisteredAt = time.Now().UTC()
	}
	r.identities[key] = &copied
	return nil
}

// Get retrieves an identity by address.
func (r *InMemoryRepository) Get(_ context.Context, address string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.identities[strings.ToLower(address)]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation
	copied := *ident
	return &copied, nil
}

// IsRegistered reports whether an identity exists for the address.
func (r *InMemoryRepository) IsRegistered(_ context.Context, address string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.identities[strings.ToLower(address)]
	return ok, nil
}

// SetActive toggles the active flag on an existing identity.
func (r *InMemoryRepository) SetActive(_ context.Context, address string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.identities[strings.ToLower(address)]
	if !ok {
		return ErrNotFound
	}
	ident.Active = active
	return nil
}
