package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/org"
)

// Ledger applies verification state transitions. All mutating operations are
// serialized per verification ID with a keyed mutex; reads go straight to the
// repository and may trail an in-flight transition by one write, which is
// acceptable.
type Ledger struct {
	records   Repository
	documents document.Repository
	directory org.Directory
	metrics   *Metrics
	locks     *keyMutex
	timeNow   func() time.Time // For testability
}

// NewLedger creates a verification ledger over the given stores. metrics may
// be nil when observability is not wired (tests).
func NewLedger(records Repository, documents document.Repository, directory org.Directory, metrics *Metrics) *Ledger {
	return &Ledger{
		records:   records,
		documents: documents,
		directory: directory,
		metrics:   metrics,
		locks:     newKeyMutex(),
		timeNow:   time.Now,
	}
}

// Request transitions a record to PENDING and assigns the target verifier.
// No audit entry is appended: the trail records decisions, not requests.
// A rejected document may be re-requested; a verified one may not.
func (l *Ledger) Request(ctx context.Context, verificationID, requester, targetOrg string) (*Record, error) {
	id := strings.ToUpper(verificationID)

	l.locks.Lock(id)
	defer l.locks.Unlock(id)

	if _, err := l.documents.FindByVerificationID(ctx, id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, ErrUnknownDocument
		}
		return nil, fmt.Errorf("look up document: %w", err)
	}

	authorized, err := l.directory.IsAuthorized(ctx, targetOrg)
	if err != nil {
		return nil, fmt.Errorf("check target authorization: %w", err)
	}
	if !authorized {
		return nil, ErrUnauthorizedTarget
	}

	rec, err := l.records.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec != nil && rec.Status == StatusVerified {
		return nil, ErrAlreadyVerified
	}
	previousOrg := ""
	if rec != nil {
		previousOrg = rec.VerifierOrg
	}

	updated := &Record{
		VerificationID:  id,
		Status:          StatusPending,
		VerifierOrg:     targetOrg,
		Requester:       requester,
		RejectionReason: "", // cleared on re-request after rejection
		LastUpdated:     l.timeNow().UTC(),
	}
	if err := l.records.Put(ctx, updated); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	if l.metrics != nil {
		l.metrics.RequestsTotal.Inc()
	}
	l.updatePendingGauge(ctx, targetOrg, previousOrg)
	slog.InfoContext(ctx, "verification requested",
		"verification_id", id, "target_org", targetOrg, "requester", requester)

	copied := *updated
	return &copied, nil
}

// Verify moves a PENDING record to the terminal VERIFIED state and appends
// exactly one audit entry. Only the assigned verifier may act; a retried
// call after success fails with ErrNotPending rather than appending again.
func (l *Ledger) Verify(ctx context.Context, verificationID, actingOrg, remarks string) (*Record, error) {
	return l.decide(ctx, verificationID, actingOrg, remarks, StatusVerified)
}

// Reject moves a PENDING record to REJECTED, records the reason, and appends
// exactly one audit entry. The document may be re-requested afterwards.
func (l *Ledger) Reject(ctx context.Context, verificationID, actingOrg, reason string) (*Record, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrEmptyReason
	}
	return l.decide(ctx, verificationID, actingOrg, reason, StatusRejected)
}

func (l *Ledger) decide(ctx context.Context, verificationID, actingOrg, remarks string, target Status) (*Record, error) {
	id := strings.ToUpper(verificationID)

	l.locks.Lock(id)
	defer l.locks.Unlock(id)

	rec, err := l.records.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec.Status != StatusPending {
		return nil, ErrNotPending
	}
	if !strings.EqualFold(rec.VerifierOrg, actingOrg) {
		if l.metrics != nil {
			l.metrics.DecisionErrors.Inc()
		}
		return nil, ErrWrongVerifier
	}

	now := l.timeNow().UTC()
	rec.Status = target
	rec.LastUpdated = now
	if target == StatusRejected {
		rec.RejectionReason = remarks
	}

	if err := l.records.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}
	if err := l.records.AppendAudit(ctx, &AuditEntry{
		VerificationID: id,
		VerifierOrg:    actingOrg,
		Remarks:        remarks,
		Timestamp:      now,
	}); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if l.metrics != nil {
		l.metrics.DecisionsTotal.WithLabelValues(strings.ToLower(target.String())).Inc()
	}
	l.updatePendingGauge(ctx, rec.VerifierOrg)
	slog.InfoContext(ctx, "verification decision recorded",
		"verification_id", id, "org", actingOrg, "status", target.String())

	copied := *rec
	return &copied, nil
}

// Status returns the current state of a verification ID. A never-requested ID
// reports StatusNone with zero-valued fields; this read never fails on a
// missing record.
func (l *Ledger) Status(ctx context.Context, verificationID string) (*Record, error) {
	id := strings.ToUpper(verificationID)

	rec, err := l.records.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return &Record{VerificationID: id, Status: StatusNone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return rec, nil
}

// AuditTrail returns the ordered decision trail for a verification ID, empty
// when nothing has ever been recorded.
func (l *Ledger) AuditTrail(ctx context.Context, verificationID string) ([]*AuditEntry, error) {
	return l.records.AuditTrail(ctx, strings.ToUpper(verificationID))
}

// Pending returns the organization's queue of PENDING records, oldest first.
func (l *Ledger) Pending(ctx context.Context, orgAddress string) ([]*Record, error) {
	return l.records.PendingByOrg(ctx, orgAddress)
}

// updatePendingGauge refreshes the per-org pending queue gauge after a
// transition. A request that reassigns the verifier touches two queues, so
// every distinct org passed in is recomputed.
func (l *Ledger) updatePendingGauge(ctx context.Context, orgs ...string) {
	if l.metrics == nil {
		return
	}
	seen := make(map[string]struct{}, len(orgs))
	for _, orgAddress := range orgs {
		key := strings.ToLower(orgAddress)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pending, err := l.records.PendingByOrg(ctx, key)
		if err != nil {
			continue
		}
		l.metrics.PendingQueue.WithLabelValues(key).Set(float64(len(pending)))
	}
}

// VerifyChain walks the audit trail of a verification ID and reports the
// first entry whose PreviousHash does not match the chain hash of its
// predecessor. Returns -1 when the trail is intact.
func VerifyChain(trail []*AuditEntry) int {
	for i, entry := range trail {
		if i == 0 {
			if entry.PreviousHash != "" {
				return 0
			}
			continue
		}
		if entry.PreviousHash != trail[i-1].ChainHash() {
			return i
		}
	}
	return -1
}
