package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/xid"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

// ProfileRepo implements repository.ProfileRepository over the profiles
// table plus the dynamic per-profile event namespace tables. Obtained
// from DB.Profiles().
type ProfileRepo struct {
	db *DB
}

// namespaceNameRe is the shape of a provisioned event namespace name:
// already lower-cased and underscored by the service layer. Anything
// else must not reach CREATE TABLE.
var namespaceNameRe = regexp.MustCompile(`^eventos_[a-z0-9_]+$`)

// execer lets insertProfile run against either the pool or a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a standalone profile (no linked credential).
func (r *ProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return insertProfile(ctx, r.db.conn, profile)
}

// CreateWithCredential writes a credential and its linked profile in one
// transaction. Either both rows commit or neither does — a failure
// between the two inserts can no longer orphan a credential.
func (r *ProfileRepo) CreateWithCredential(ctx context.Context, cred *model.Credential, profile *model.Profile) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning registration tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	cred.ID = xid.New().String()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (id, nombre, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cred.ID, cred.Nombre, cred.PasswordHash, cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("credential", cred.Nombre)
		}
		return fmt.Errorf("sqlite: creating credential %s: %w", cred.Nombre, err)
	}

	profile.CredentialID = cred.ID
	if err := insertProfile(ctx, tx, profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing registration: %w", err)
	}
	return nil
}

func insertProfile(ctx context.Context, ex execer, profile *model.Profile) error {
	now := time.Now()
	profile.ID = xid.New().String()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	laborales, err := marshalDoc(profile.DatosLaborales)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_laborales: %w", err)
	}
	medicos, err := marshalDoc(profile.DatosMedicos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_medicos: %w", err)
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO profiles (
			id, credential_id, nombre, apellido_paterno, apellido_materno,
			fecha_nacimiento, edad, sexo, email, telefono,
			datos_laborales, datos_medicos, setup_completo, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		nullIfEmpty(profile.CredentialID),
		profile.Nombre,
		profile.ApellidoPaterno,
		profile.ApellidoMaterno,
		profile.FechaNacimiento,
		profile.Edad,
		profile.Sexo,
		profile.Email,
		profile.Telefono,
		laborales,
		medicos,
		profile.SetupCompleto,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", profile.CredentialID)
		}
		return fmt.Errorf("sqlite: creating profile %s: %w", profile.Nombre, err)
	}

	return nil
}

// GetByID retrieves a profile by its internal ID.
// Returns apperror.ErrNotFound if no profile exists with that ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var (
		p            model.Profile
		credentialID sql.NullString
		laborales    sql.NullString
		medicos      sql.NullString
	)

	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, credential_id, nombre, apellido_paterno, apellido_materno,
		        fecha_nacimiento, edad, sexo, email, telefono,
		        datos_laborales, datos_medicos, setup_completo, created_at, updated_at
		 FROM profiles WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&credentialID,
		&p.Nombre,
		&p.ApellidoPaterno,
		&p.ApellidoMaterno,
		&p.FechaNacimiento,
		&p.Edad,
		&p.Sexo,
		&p.Email,
		&p.Telefono,
		&laborales,
		&medicos,
		&p.SetupCompleto,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}

	p.CredentialID = credentialID.String
	if p.DatosLaborales, err = unmarshalLaborales(laborales); err != nil {
		return nil, fmt.Errorf("sqlite: decoding datos_laborales for %s: %w", id, err)
	}
	if p.DatosMedicos, err = unmarshalMedicos(medicos); err != nil {
		return nil, fmt.Errorf("sqlite: decoding datos_medicos for %s: %w", id, err)
	}

	return &p, nil
}

// ExistsByNombreFechaNacimiento reports whether a profile with the same
// name and birth date exists. This is the duplicate check of profile
// creation — a coarse key, kept as documented behavior.
func (r *ProfileRepo) ExistsByNombreFechaNacimiento(ctx context.Context, nombre, fechaNacimiento string) (bool, error) {
	var count int
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE nombre = ? AND fecha_nacimiento = ?`,
		nombre, fechaNacimiento,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking profile %s: %w", nombre, err)
	}
	return count > 0, nil
}

// Replace overwrites every mutable field of the stored profile.
// ID, credential_id and created_at never change.
func (r *ProfileRepo) Replace(ctx context.Context, profile *model.Profile) error {
	profile.UpdatedAt = time.Now()

	laborales, err := marshalDoc(profile.DatosLaborales)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_laborales: %w", err)
	}
	medicos, err := marshalDoc(profile.DatosMedicos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_medicos: %w", err)
	}

	result, err := r.db.conn.ExecContext(ctx,
		`UPDATE profiles
		 SET nombre = ?, apellido_paterno = ?, apellido_materno = ?,
		     fecha_nacimiento = ?, edad = ?, sexo = ?, email = ?, telefono = ?,
		     datos_laborales = ?, datos_medicos = ?, setup_completo = ?, updated_at = ?
		 WHERE id = ?`,
		profile.Nombre,
		profile.ApellidoPaterno,
		profile.ApellidoMaterno,
		profile.FechaNacimiento,
		profile.Edad,
		profile.Sexo,
		profile.Email,
		profile.Telefono,
		laborales,
		medicos,
		profile.SetupCompleto,
		profile.UpdatedAt,
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", profile.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", profile.ID)
	}

	return nil
}

// EnsureEventNamespace provisions the per-profile event namespace as an
// empty table. CREATE TABLE IF NOT EXISTS makes the operation idempotent;
// the sqlite_master lookup beforehand is what tells the caller whether
// this call created it.
func (r *ProfileRepo) EnsureEventNamespace(ctx context.Context, name string) (bool, error) {
	if !namespaceNameRe.MatchString(name) {
		return false, fmt.Errorf("sqlite: invalid event namespace name %q", name)
	}

	exists, err := r.db.tableExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = r.db.conn.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (
			id         TEXT PRIMARY KEY,
			payload    TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, name,
	))
	if err != nil {
		return false, fmt.Errorf("sqlite: creating event namespace %s: %w", name, err)
	}

	return true, nil
}

// marshalDoc encodes a nested document pointer for storage; nil pointers
// become NULL columns.
func marshalDoc(v any) (any, error) {
	switch doc := v.(type) {
	case *model.EmploymentInfo:
		if doc == nil {
			return nil, nil
		}
	case *model.MedicalInfo:
		if doc == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalLaborales(ns sql.NullString) (*model.EmploymentInfo, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var doc model.EmploymentInfo
	if err := json.Unmarshal([]byte(ns.String), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func unmarshalMedicos(ns sql.NullString) (*model.MedicalInfo, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var doc model.MedicalInfo
	if err := json.Unmarshal([]byte(ns.String), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
