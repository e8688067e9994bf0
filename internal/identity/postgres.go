package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL-backed identity repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register stores a new identity.
func (r *PostgresRepository) Register(ctx context.Context, ident *Identity) error {
	registeredAt := ident.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (address, username, registered_at, active)
		VALUES ($1, $2, $3, $4)`,
		strings.ToLower(ident.Address), ident.Username, registeredAt, ident.Active,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// Get retrieves an identity by address.
func (r *PostgresRepository) Get(ctx context.Context, address string) (*Identity, error) {
	var ident Identity
	err := r.db.QueryRowContext(ctx, `
		SELECT address, username, registered_at, active
		FROM identities
		WHERE address = $1`,
		strings.ToLower(address),
	).Scan(&ident.Address, &ident.Username, &ident.RegisteredAt, &ident.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select identity: %w", err)
	}
	return &ident, nil
}

// IsRegistered reports whether an identity exists for the address.
func (r *PostgresRepository) IsRegistered(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM identities WHERE address = $1)`,
		strings.ToLower(address),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("identity exists: %w", err)
	}
	return exists, nil
}

// SetActive toggles the active flag on an existing identity.
func (r *PostgresRepository) SetActive(ctx context.Context, address string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities SET active = $2 WHERE address = $1`,
		strings.ToLower(address), active,
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
