package document

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository defines persistence for document records. Register is logically
// atomic: either both uniqueness checks pass and the record is durably
// created, or nothing is created. FindByHash and FindByVerificationID back
// unauthenticated public queries and must be indexed lookups, not scans.
type Repository interface {
	// Register stores a new document and returns it with the owner-scoped
	// sequential ID assigned. Returns ErrHashCollision or
	// ErrVerificationIDCollision when a uniqueness invariant would break.
	Register(ctx context.Context, doc *Document) (*Document, error)

	// ListByOwner returns the owner's documents ordered by ID ascending.
	ListByOwner(ctx context.Context, owner string) ([]*Document, error)

	// FindByHash retrieves the document with the given content hash.
	// Returns ErrNotFound if no document matches.
	FindByHash(ctx context.Context, contentHash string) (*Document, error)

	// FindByVerificationID retrieves the document with the given
	// verification ID. Returns ErrNotFound if no document matches.
	FindByVerificationID(ctx context.Context, verificationID string) (*Document, error)
}

// InMemoryRepository implements Repository with in-memory storage.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byOwner map[string][]*Document
	byHash  map[string]*Document
	byID    map[string]*Document
}

// NewInMemoryRepository creates a new in-memory document repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byOwner: make(map[string][]*Document),
		byHash:  make(map[string]*Document),
		byID:    make(map[string]*Document),
	}
}

// Register stores a new document, enforcing hash and verification ID
// uniqueness under a single lock so the check-then-insert is atomic.
func (r *InMemoryRepository) Register(_ context.Context, doc *Document) (*Document, error) {
	hashKey := strings.ToLower(doc.ContentHash)
	ownerKey := strings.ToLower(doc.Owner)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[hashKey]; exists {
		return nil, ErrHashCollision
	}
	if _, exists := r.byID[doc.VerificationID]; exists {
		return nil, ErrVerificationIDCollision
	}

	copied := *doc
	copied.ID = int64(len(r.byOwner[ownerKey])) + 1
	if copied.UploadedAt.IsZero() {
		copied.UploadedAt = time.Now().UTC()
	}

	r.byOwner[ownerKey] = append(r.byOwner[ownerKey], &copied)
	r.byHash[hashKey] = &copied
	r.byID[copied.VerificationID] = &copied

	result := copied
	return &result, nil
}

// ListByOwner returns the owner's documents ordered by ID ascending.
func (r *InMemoryRepository) ListByOwner(_ context.Context, owner string) ([]*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.byOwner[strings.ToLower(owner)]
	results := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		copied := *doc
		results = append(results, &copied)
	}
	return results, nil
}

// FindByHash retrieves the document with the given content hash.
func (r *InMemoryRepository) FindByHash(_ context.Context, contentHash string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.byHash[strings.ToLower(contentHash)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// FindByVerificationID retrieves the document with the given verification ID.
func (r *InMemoryRepository) FindByVerificationID(_ context.Context, verificationID string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.byID[strings.ToUpper(verificationID)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}
