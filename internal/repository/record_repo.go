package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classquest/internal/apperr"
	"classquest/internal/database"
	"classquest/internal/models"
)

// ErrVersionConflict reports that a record changed between read and write
var ErrVersionConflict = errors.New("record version conflict")

// RecordRepository handles student challenge record database operations.
// Each record row is the atomic unit for the progress state machine: nested
// progress structures live in JSON columns and writes go through an
// optimistic version check.
type RecordRepository struct {
	db database.DBTX
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db database.DBTX) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `
	id, series_id, student_id, token, password_hash, legacy_completed,
	legacy_slots, custom_progress, completed_at, version, created_at, updated_at
`

// CreateRecord inserts a new student challenge record
func (r *RecordRepository) CreateRecord(rec *models.StudentChallengeRecord) (*models.StudentChallengeRecord, error) {
	slots, err := json.Marshal(rec.LegacySlots)
	if err != nil {
		return nil, err
	}
	custom, err := json.Marshal(rec.Custom)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		INSERT INTO challenge_records
			(series_id, student_id, token, password_hash, legacy_completed,
			 legacy_slots, custom_progress, completed_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		rec.SeriesID, rec.StudentID, rec.Token, rec.PasswordHash, int(rec.LegacyCompleted),
		string(slots), string(custom), rec.CompletedAt, now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.GetRecordByID(id)
}

// TokenExists checks whether a public token is already in use anywhere
func (r *RecordRepository) TokenExists(token string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM challenge_records WHERE token = ?", token).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRecordByID retrieves a record by primary key
func (r *RecordRepository) GetRecordByID(id int64) (*models.StudentChallengeRecord, error) {
	query := "SELECT " + recordColumns + " FROM challenge_records WHERE id = ?"
	return r.scanRecord(r.db.QueryRow(query, id))
}

// GetRecord retrieves the record for a (series, student) pairing
func (r *RecordRepository) GetRecord(seriesID, studentID int64) (*models.StudentChallengeRecord, error) {
	query := "SELECT " + recordColumns + " FROM challenge_records WHERE series_id = ? AND student_id = ?"
	return r.scanRecord(r.db.QueryRow(query, seriesID, studentID))
}

// GetRecordByToken retrieves a record by its public token
func (r *RecordRepository) GetRecordByToken(token string) (*models.StudentChallengeRecord, error) {
	query := "SELECT " + recordColumns + " FROM challenge_records WHERE token = ?"
	return r.scanRecord(r.db.QueryRow(query, token))
}

// ListRecords retrieves all records for a series
func (r *RecordRepository) ListRecords(seriesID int64) ([]models.StudentChallengeRecord, error) {
	query := "SELECT " + recordColumns + " FROM challenge_records WHERE series_id = ? ORDER BY created_at ASC"
	rows, err := r.db.Query(query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.StudentChallengeRecord
	for rows.Next() {
		rec, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *RecordRepository) scanRecord(row *sql.Row) (*models.StudentChallengeRecord, error) {
	rec := &models.StudentChallengeRecord{}
	var bitset int
	var slots, custom string
	var completedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.SeriesID, &rec.StudentID, &rec.Token, &rec.PasswordHash, &bitset,
		&slots, &custom, &completedAt, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("challenge record not found")
	}
	if err != nil {
		return nil, err
	}

	return decodeRecord(rec, bitset, slots, custom, completedAt)
}

func scanRecordRow(rows *sql.Rows) (*models.StudentChallengeRecord, error) {
	rec := &models.StudentChallengeRecord{}
	var bitset int
	var slots, custom string
	var completedAt sql.NullTime

	err := rows.Scan(
		&rec.ID, &rec.SeriesID, &rec.StudentID, &rec.Token, &rec.PasswordHash, &bitset,
		&slots, &custom, &completedAt, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return decodeRecord(rec, bitset, slots, custom, completedAt)
}

func decodeRecord(rec *models.StudentChallengeRecord, bitset int, slots, custom string, completedAt sql.NullTime) (*models.StudentChallengeRecord, error) {
	rec.LegacyCompleted = models.LegacyBitset(bitset)
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(slots), &rec.LegacySlots); err != nil {
		return nil, fmt.Errorf("failed to decode legacy slots: %w", err)
	}
	if custom != "" && custom != "null" {
		if err := json.Unmarshal([]byte(custom), &rec.Custom); err != nil {
			return nil, fmt.Errorf("failed to decode custom progress: %w", err)
		}
	}
	return rec, nil
}

// updateCAS writes the record back guarded by its version. The token and
// password hash are deliberately not part of the update: they are immutable
// once the record exists, including across teacher resets.
func (r *RecordRepository) updateCAS(rec *models.StudentChallengeRecord) error {
	slots, err := json.Marshal(rec.LegacySlots)
	if err != nil {
		return err
	}
	custom, err := json.Marshal(rec.Custom)
	if err != nil {
		return err
	}

	query := `
		UPDATE challenge_records
		SET legacy_completed = ?, legacy_slots = ?, custom_progress = ?,
		    completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := r.db.Exec(query,
		int(rec.LegacyCompleted), string(slots), string(custom),
		rec.CompletedAt, time.Now(), rec.ID, rec.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	rec.Version++
	return nil
}

// Mutate runs a read-modify-write cycle on the record for (series, student).
// On a version conflict the record is re-read and the mutation reapplied
// exactly once before surfacing a transient error. Mutations must therefore
// be written as pure functions of the freshly loaded record.
func (r *RecordRepository) Mutate(seriesID, studentID int64, fn func(*models.StudentChallengeRecord) error) (*models.StudentChallengeRecord, error) {
	const attempts = 2

	var lastErr error
	for i := 0; i < attempts; i++ {
		rec, err := r.GetRecord(seriesID, studentID)
		if err != nil {
			return nil, err
		}

		if err := fn(rec); err != nil {
			return nil, err
		}

		err = r.updateCAS(rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}

	return nil, apperr.Transient("progress record contention, try again", lastErr)
}

// DeleteRecord removes a single record
func (r *RecordRepository) DeleteRecord(id int64) error {
	_, err := r.db.Exec("DELETE FROM challenge_records WHERE id = ?", id)
	return err
}
