package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

var _ repository.TelemetryRepository = (*TelemetryRepo)(nil)

// TelemetryRepo implements repository.TelemetryRepository over the
// dynamic per-(user, day) partition tables. Obtained from DB.Telemetry().
type TelemetryRepo struct {
	db *DB
}

// Partition key constraints. The fecha is always server-generated
// yyyyMMdd; the userID is validated again here because both end up in a
// table name.
var (
	userIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	fechaRe  = regexp.MustCompile(`^\d{8}$`)
)

// telemetryPartitionName resolves the (userID, fecha) key to its
// partition, keeping the collection naming of the deployed data set:
// registros_<userId>_<yyyyMMdd>.
func telemetryPartitionName(userID, fecha string) string {
	return fmt.Sprintf("registros_%s_%s", userID, fecha)
}

// ensureTelemetryPartition lazily creates the partition for the key.
// CREATE TABLE IF NOT EXISTS keeps it idempotent under concurrency.
func (r *TelemetryRepo) ensureTelemetryPartition(ctx context.Context, table string) error {
	_, err := r.db.conn.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (
			user_id            TEXT NOT NULL,
			fecha              TEXT NOT NULL,
			datos_cardiacos    TEXT NOT NULL DEFAULT '[]',
			datos_acelerometro TEXT NOT NULL DEFAULT '[]',
			datos_ubicacion    TEXT NOT NULL DEFAULT '[]',
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL,
			PRIMARY KEY (user_id, fecha)
		)`, table,
	))
	if err != nil {
		return fmt.Errorf("sqlite: creating telemetry partition %s: %w", table, err)
	}
	return nil
}

// Append resolves the record for (userID, fecha), creating it with empty
// sequences on first write, appends the batches in arrival order and
// persists the full record.
//
// The read-append-write runs in one transaction, taken immediate via
// the _txlock DSN setting in New. Concurrent appends for the same day
// queue on the write lock (busy_timeout) and serialize instead of
// overwriting each other — neither batch can be lost and none fails
// with SQLITE_BUSY.
func (r *TelemetryRepo) Append(ctx context.Context, userID, fecha string,
	cardiacos []model.HeartRateSample,
	acelerometro []model.AccelerometerSample,
	ubicacion []model.LocationSample,
) (*model.TelemetryRecord, bool, error) {
	if !userIDRe.MatchString(userID) {
		return nil, false, fmt.Errorf("sqlite: invalid telemetry user id %q", userID)
	}
	if !fechaRe.MatchString(fecha) {
		return nil, false, fmt.Errorf("sqlite: invalid telemetry fecha %q", fecha)
	}

	table := telemetryPartitionName(userID, fecha)
	if err := r.ensureTelemetryPartition(ctx, table); err != nil {
		return nil, false, err
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: beginning telemetry tx: %w", err)
	}
	defer tx.Rollback()

	record, created, err := loadRecord(ctx, tx, table, userID, fecha)
	if err != nil {
		return nil, false, err
	}

	// Arrival order is the storage order — no sorting, no dedup.
	record.DatosCardiacos = append(record.DatosCardiacos, cardiacos...)
	record.DatosAcelerometro = append(record.DatosAcelerometro, acelerometro...)
	record.DatosUbicacion = append(record.DatosUbicacion, ubicacion...)
	record.UpdatedAt = time.Now()

	if err := saveRecord(ctx, tx, table, record, created); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("sqlite: committing telemetry append: %w", err)
	}

	return record, created, nil
}

func loadRecord(ctx context.Context, tx *sql.Tx, table, userID, fecha string) (*model.TelemetryRecord, bool, error) {
	var (
		rawCardiacos    string
		rawAcelerometro string
		rawUbicacion    string
		createdAt       time.Time
	)

	err := tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT datos_cardiacos, datos_acelerometro, datos_ubicacion, created_at
		 FROM %q WHERE user_id = ? AND fecha = ?`, table,
	), userID, fecha).Scan(&rawCardiacos, &rawAcelerometro, &rawUbicacion, &createdAt)

	if err == sql.ErrNoRows {
		// First write for this (user, day): initialize empty sequences.
		now := time.Now()
		return &model.TelemetryRecord{
			UserID:            userID,
			Fecha:             fecha,
			DatosCardiacos:    []model.HeartRateSample{},
			DatosAcelerometro: []model.AccelerometerSample{},
			DatosUbicacion:    []model.LocationSample{},
			CreatedAt:         now,
			UpdatedAt:         now,
		}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: loading telemetry record %s/%s: %w", userID, fecha, err)
	}

	record := &model.TelemetryRecord{
		UserID:    userID,
		Fecha:     fecha,
		CreatedAt: createdAt,
	}
	if err := json.Unmarshal([]byte(rawCardiacos), &record.DatosCardiacos); err != nil {
		return nil, false, fmt.Errorf("sqlite: decoding datos_cardiacos: %w", err)
	}
	if err := json.Unmarshal([]byte(rawAcelerometro), &record.DatosAcelerometro); err != nil {
		return nil, false, fmt.Errorf("sqlite: decoding datos_acelerometro: %w", err)
	}
	if err := json.Unmarshal([]byte(rawUbicacion), &record.DatosUbicacion); err != nil {
		return nil, false, fmt.Errorf("sqlite: decoding datos_ubicacion: %w", err)
	}

	return record, false, nil
}

func saveRecord(ctx context.Context, tx *sql.Tx, table string, record *model.TelemetryRecord, created bool) error {
	rawCardiacos, err := json.Marshal(record.DatosCardiacos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_cardiacos: %w", err)
	}
	rawAcelerometro, err := json.Marshal(record.DatosAcelerometro)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_acelerometro: %w", err)
	}
	rawUbicacion, err := json.Marshal(record.DatosUbicacion)
	if err != nil {
		return fmt.Errorf("sqlite: encoding datos_ubicacion: %w", err)
	}

	if created {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %q (user_id, fecha, datos_cardiacos, datos_acelerometro,
			                 datos_ubicacion, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`, table,
		), record.UserID, record.Fecha,
			string(rawCardiacos), string(rawAcelerometro), string(rawUbicacion),
			record.CreatedAt, record.UpdatedAt)
	} else {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %q SET datos_cardiacos = ?, datos_acelerometro = ?,
			               datos_ubicacion = ?, updated_at = ?
			 WHERE user_id = ? AND fecha = ?`, table,
		), string(rawCardiacos), string(rawAcelerometro), string(rawUbicacion),
			record.UpdatedAt, record.UserID, record.Fecha)
	}
	if err != nil {
		return fmt.Errorf("sqlite: persisting telemetry record %s/%s: %w", record.UserID, record.Fecha, err)
	}

	return nil
}
