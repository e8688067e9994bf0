package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresDirectory implements Directory using PostgreSQL.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a new PostgreSQL-backed organization directory.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Register authorizes an address under a display name. The upsert keeps the
// original registration timestamp and re-authorizes a revoked organization.
func (d *PostgresDirectory) Register(ctx context.Context, name, address string) (*Organization, error) {
	var o Organization
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO organizations (address, name, authorized, registered_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (address) DO UPDATE
			SET name = EXCLUDED.name, authorized = TRUE
		RETURNING address, name, authorized, registered_at`,
		strings.ToLower(address), name, time.Now().UTC(),
	).Scan(&o.Address, &o.Name, &o.Authorized, &o.RegisteredAt)
	if err != nil {
		return nil, fmt.Errorf("upsert organization: %w", err)
	}
	return &o, nil
}

// IsAuthorized reports whether the address may act as a verifier.
func (d *PostgresDirectory) IsAuthorized(ctx context.Context, address string) (bool, error) {
	var authorized bool
	err := d.db.QueryRowContext(ctx, `
		SELECT authorized FROM organizations WHERE address = $1`,
		strings.ToLower(address),
	).Scan(&authorized)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select organization: %w", err)
	}
	return authorized, nil
}

// Get retrieves one organization.
func (d *PostgresDirectory) Get(ctx context.Context, address string) (*Organization, error) {
	var o Organization
	err := d.db.QueryRowContext(ctx, `
		SELECT address, name, authorized, registered_at
		FROM organizations
		WHERE address = $1`,
		strings.ToLower(address),
	).Scan(&o.Address, &o.Name, &o.Authorized, &o.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select organization: %w", err)
	}
	return &o, nil
}

// List returns all currently authorized organizations, oldest first.
func (d *PostgresDirectory) List(ctx context.Context) ([]*Organization, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT address, name, authorized, registered_at
		FROM organizations
		WHERE authorized
		ORDER BY registered_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	results := []*Organization{}
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.Address, &o.Name, &o.Authorized, &o.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		results = append(results, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return results, nil
}

// Revoke withdraws authorization without deleting the record.
func (d *PostgresDirectory) Revoke(ctx context.Context, address string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE organizations SET authorized = FALSE WHERE address = $1`,
		strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("revoke organization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke organization: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
