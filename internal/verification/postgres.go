package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL. Record writes go
// through single-row upserts; audit appends run in a transaction that reads
// the trail head to link the hash chain.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL-backed verification
// repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get retrieves the record for a verification ID.
func (r *PostgresRepository) Get(ctx context.Context, verificationID string) (*Record, error) {
	var rec Record
	var status int
	err := r.db.QueryRowContext(ctx, `
		SELECT verification_id, status, verifier_org, requester, rejection_reason, last_updated
		FROM verification_records
		WHERE verification_id = $1`,
		strings.ToUpper(verificationID),
	).Scan(&rec.VerificationID, &status, &rec.VerifierOrg, &rec.Requester,
		&rec.RejectionReason, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	rec.Status = Status(status)
	return &rec, nil
}

// Put stores or replaces the record for its verification ID.
func (r *PostgresRepository) Put(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_records
			(verification_id, status, verifier_org, requester, rejection_reason, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (verification_id) DO UPDATE SET
			status = EXCLUDED.status,
			verifier_org = EXCLUDED.verifier_org,
			requester = EXCLUDED.requester,
			rejection_reason = EXCLUDED.rejection_reason,
			last_updated = EXCLUDED.last_updated`,
		strings.ToUpper(rec.VerificationID), int(rec.Status), rec.VerifierOrg,
		rec.Requester, rec.RejectionReason, rec.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// AppendAudit appends one decision, linking PreviousHash to the current trail
// head inside a transaction so concurrent appends cannot fork the chain.
func (r *PostgresRepository) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	id := strings.ToUpper(entry.VerificationID)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	copied := *entry
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.Timestamp.IsZero() {
		copied.Timestamp = time.Now().UTC()
	}

	var head AuditEntry
	err = tx.QueryRowContext(ctx, `
		SELECT verification_id, verifier_org, remarks, recorded_at, previous_hash
		FROM audit_entries
		WHERE verification_id = $1
		ORDER BY seq DESC
		LIMIT 1`,
		id,
	).Scan(&head.VerificationID, &head.VerifierOrg, &head.Remarks,
		&head.Timestamp, &head.PreviousHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		copied.PreviousHash = ""
	case err != nil:
		return fmt.Errorf("read trail head: %w", err)
	default:
		copied.PreviousHash = head.ChainHash()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries
			(id, verification_id, verifier_org, remarks, recorded_at, previous_hash)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		copied.ID, id, copied.VerifierOrg, copied.Remarks, copied.Timestamp, copied.PreviousHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit entry: %w", err)
	}
	return nil
}

// AuditTrail returns the ordered decision trail, oldest first.
func (r *PostgresRepository) AuditTrail(ctx context.Context, verificationID string) ([]*AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, verification_id, verifier_org, remarks, recorded_at, previous_hash
		FROM audit_entries
		WHERE verification_id = $1
		ORDER BY seq ASC`,
		strings.ToUpper(verificationID),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	results := []*AuditEntry{}
	for rows.Next() {
		var entry AuditEntry
		if err := rows.Scan(&entry.ID, &entry.VerificationID, &entry.VerifierOrg,
			&entry.Remarks, &entry.Timestamp, &entry.PreviousHash); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		results = append(results, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return results, nil
}

// PendingByOrg returns records currently PENDING for the organization,
// oldest request first.
func (r *PostgresRepository) PendingByOrg(ctx context.Context, orgAddress string) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT verification_id, status, verifier_org, requester, rejection_reason, last_updated
		FROM verification_records
		WHERE status = $1 AND LOWER(verifier_org) = $2
		ORDER BY last_updated ASC`,
		int(StatusPending), strings.ToLower(orgAddress),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	results := []*Record{}
	for rows.Next() {
		var rec Record
		var status int
		if err := rows.Scan(&rec.VerificationID, &status, &rec.VerifierOrg,
			&rec.Requester, &rec.RejectionReason, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Status = Status(status)
		results = append(results, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	return results, nil
}
