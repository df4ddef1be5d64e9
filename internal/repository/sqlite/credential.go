package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

// compile-time check that *CredentialRepo implements the interface
var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo implements repository.CredentialRepository over the
// credentials table. Obtained from DB.Credentials().
type CredentialRepo struct {
	db *DB
}

// Create inserts a new credential. The ID and timestamps are assigned
// here so the caller gets the canonical record back in-place.
//
// The service layer pre-checks the nombre, but two concurrent
// registrations can both pass that check; the UNIQUE column is the
// backstop and the violation is translated to the same conflict error.
func (r *CredentialRepo) Create(ctx context.Context, cred *model.Credential) error {
	now := time.Now()
	cred.ID = xid.New().String()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO credentials (id, nombre, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cred.ID,
		cred.Nombre,
		cred.PasswordHash,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("credential", cred.Nombre)
		}
		return fmt.Errorf("sqlite: creating credential %s: %w", cred.Nombre, err)
	}

	return nil
}

// GetByNombre retrieves a credential by its unique login name.
// Returns apperror.ErrNotFound if no credential exists with that name.
func (r *CredentialRepo) GetByNombre(ctx context.Context, nombre string) (*model.Credential, error) {
	return r.getCredential(ctx, `nombre`, nombre)
}

// GetByID retrieves a credential by its internal ID.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	return r.getCredential(ctx, `id`, id)
}

func (r *CredentialRepo) getCredential(ctx context.Context, column, value string) (*model.Credential, error) {
	var c model.Credential

	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, nombre, password_hash, created_at, updated_at
		 FROM credentials WHERE `+column+` = ?`,
		value,
	).Scan(
		&c.ID,
		&c.Nombre,
		&c.PasswordHash,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("credential", value)
		}
		return nil, fmt.Errorf("sqlite: getting credential %s: %w", value, err)
	}

	return &c, nil
}

// ExistsByNombre reports whether a credential with the given login name
// exists. Used for the pre-insert duplicate check (409 Conflict).
func (r *CredentialRepo) ExistsByNombre(ctx context.Context, nombre string) (bool, error) {
	var count int
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE nombre = ?`, nombre,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking credential %s: %w", nombre, err)
	}
	return count > 0, nil
}
