package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Unique constraint names from migrations, used to map a unique violation to
// the specific collision the caller must handle.
const (
	constraintContentHash    = "documents_content_hash_key"
	constraintVerificationID = "documents_verification_id_key"
)

// PostgresRepository implements Repository using PostgreSQL. Uniqueness is
// enforced by unique indexes; the owner-scoped sequential ID is assigned
// inside the insert transaction.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL-backed document repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register stores a new document inside a transaction so the per-owner ID
// assignment and the uniqueness checks commit or fail as one unit.
func (r *PostgresRepository) Register(ctx context.Context, doc *Document) (*Document, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op after a successful commit.
	defer func() { _ = tx.Rollback() }()

	uploadedAt := doc.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	copied := *doc
	copied.UploadedAt = uploadedAt

	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents
			(owner_address, owner_seq, doc_type, file_name, storage_locator,
			 content_hash, verification_id, uploaded_at)
		VALUES
			($1,
			 (SELECT COALESCE(MAX(owner_seq), 0) + 1 FROM documents WHERE owner_address = $1),
			 $2, $3, $4, $5, $6, $7)
		RETURNING owner_seq`,
		strings.ToLower(doc.Owner), doc.DocType, doc.FileName, doc.StorageLocator,
		strings.ToLower(doc.ContentHash), strings.ToUpper(doc.VerificationID), uploadedAt,
	).Scan(&copied.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			switch pqErr.Constraint {
			case constraintContentHash:
				return nil, ErrHashCollision
			case constraintVerificationID:
				return nil, ErrVerificationIDCollision
			}
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document: %w", err)
	}
	return &copied, nil
}

// ListByOwner returns the owner's documents ordered by ID ascending.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner_seq, owner_address, doc_type, file_name, storage_locator,
		       content_hash, verification_id, uploaded_at
		FROM documents
		WHERE owner_address = $1
		ORDER BY owner_seq ASC`,
		strings.ToLower(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var results []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.Owner, &doc.DocType, &doc.FileName, &doc.StorageLocator,
			&doc.ContentHash, &doc.VerificationID, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		results = append(results, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if results == nil {
		results = []*Document{}
	}
	return results, nil
}

// FindByHash retrieves the document with the given content hash.
func (r *PostgresRepository) FindByHash(ctx context.Context, contentHash string) (*Document, error) {
	return r.findOne(ctx, "content_hash = $1", strings.ToLower(contentHash))
}

// FindByVerificationID retrieves the document with the given verification ID.
func (r *PostgresRepository) FindByVerificationID(ctx context.Context, verificationID string) (*Document, error) {
	return r.findOne(ctx, "verification_id = $1", strings.ToUpper(verificationID))
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx, `
		SELECT owner_seq, owner_address, doc_type, file_name, storage_locator,
		       content_hash, verification_id, uploaded_at
		FROM documents
		WHERE `+where,
		arg,
	).Scan(
		&doc.ID, &doc.Owner, &doc.DocType, &doc.FileName, &doc.StorageLocator,
		&doc.ContentHash, &doc.VerificationID, &doc.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return &doc, nil
}
