package verification

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for verification records and their audit
// trails. Get returning ErrRecordNotFound is not an error condition for
// callers: it means StatusNone.
type Repository interface {
	// Get retrieves the record for a verification ID.
	// Returns ErrRecordNotFound when the ID was never requested.
	Get(ctx context.Context, verificationID string) (*Record, error)

	// Put stores or replaces the record for its verification ID.
	Put(ctx context.Context, rec *Record) error

	// AppendAudit appends one decision to the trail for the record's ID.
	AppendAudit(ctx context.Context, entry *AuditEntry) error

	// AuditTrail returns the ordered decision trail, oldest first.
	// Returns an empty slice, not an error, when nothing was recorded.
	AuditTrail(ctx context.Context, verificationID string) ([]*AuditEntry, error)

	// PendingByOrg returns records currently PENDING for the organization,
	// oldest request first. This index is derived from the records
	// themselves, so it survives restarts with a durable backend.
	PendingByOrg(ctx context.Context, orgAddress string) ([]*Record, error)
}

// ErrRecordNotFound is the repository-level miss; the ledger maps it to
// StatusNone.
var ErrRecordNotFound = errors.New("verification record not found")

// InMemoryRepository implements Repository with in-memory storage.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	audit   map[string][]*AuditEntry
}

// NewInMemoryRepository creates a new in-memory verification repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
		audit:   make(map[string][]*AuditEntry),
	}
}

// Get retrieves the record for a verification ID.
func (r *InMemoryRepository) Get(_ context.Context, verificationID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[strings.ToUpper(verificationID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

// Put stores or replaces the record for its verification ID.
func (r *InMemoryRepository) Put(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *rec
	r.records[strings.ToUpper(rec.VerificationID)] = &copied
	return nil
}

// AppendAudit appends one decision to the trail, linking the hash chain.
func (r *InMemoryRepository) AppendAudit(_ context.Context, entry *AuditEntry) error {
	key := strings.ToUpper(entry.VerificationID)

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.Timestamp.IsZero() {
		copied.Timestamp = time.Now().UTC()
	}
	if trail := r.audit[key]; len(trail) > 0 {
		copied.PreviousHash = trail[len(trail)-1].ChainHash()
	}

	r.audit[key] = append(r.audit[key], &copied)
	return nil
}

// AuditTrail returns the ordered decision trail, oldest first.
func (r *InMemoryRepository) AuditTrail(_ context.Context, verificationID string) ([]*AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trail := r.audit[strings.ToUpper(verificationID)]
	results := make([]*AuditEntry, 0, len(trail))
	for _, entry := range trail {
		copied := *entry
		results = append(results, &copied)
	}
	return results, nil
}

// PendingByOrg returns records currently PENDING for the organization.
func (r *InMemoryRepository) PendingByOrg(_ context.Context, orgAddress string) ([]*Record, error) {
	key := strings.ToLower(orgAddress)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Record
	for _, rec := range r.records {
		if rec.Status == StatusPending && strings.ToLower(rec.VerifierOrg) == key {
			copied := *rec
			results = append(results, &copied)
		}
	}
	// Oldest request first.
	sort.Slice(results, func(i, j int) bool {
		return results[i].LastUpdated.Before(results[j].LastUpdated)
	})
	if results == nil {
		results = []*Record{}
	}
	return results, nil
}
