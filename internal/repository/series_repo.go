package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"classquest/internal/apperr"
	"classquest/internal/database"
	"classquest/internal/models"
)

// SeriesRepository handles challenge series database operations
type SeriesRepository struct {
	db database.DBTX
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(db database.DBTX) *SeriesRepository {
	return &SeriesRepository{db: db}
}

const seriesColumns = `
	id, classroom_id, creator_id, title, description, series_type,
	is_active, is_visible, is_configured, salt, legacy_kinds,
	reward_settings, due_date, created_at, updated_at
`

// CreateSeries inserts a new series. At most one series may exist per
// classroom; a second insert for the same classroom is a conflict.
func (r *SeriesRepository) CreateSeries(s *models.ChallengeSeries) (*models.ChallengeSeries, error) {
	existing, err := r.GetSeriesByClassroom(s.ClassroomID)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("classroom already has a challenge series")
	}

	kinds, err := json.Marshal(s.LegacyKinds)
	if err != nil {
		return nil, err
	}
	settings, err := json.Marshal(s.Rewards)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		INSERT INTO challenge_series
			(classroom_id, creator_id, title, description, series_type,
			 is_active, is_visible, is_configured, salt, legacy_kinds,
			 reward_settings, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		s.ClassroomID, s.CreatorID, s.Title, s.Description, string(s.SeriesType),
		s.IsActive, s.IsVisible, s.IsConfigured, s.Salt, string(kinds),
		string(settings), s.DueDate, now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.GetSeriesByID(id)
}

// GetSeriesByID retrieves a series by ID
func (r *SeriesRepository) GetSeriesByID(id int64) (*models.ChallengeSeries, error) {
	query := "SELECT " + seriesColumns + " FROM challenge_series WHERE id = ?"
	return r.scanSeries(r.db.QueryRow(query, id))
}

// GetSeriesByClassroom retrieves the series for a classroom
func (r *SeriesRepository) GetSeriesByClassroom(classroomID int64) (*models.ChallengeSeries, error) {
	query := "SELECT " + seriesColumns + " FROM challenge_series WHERE classroom_id = ?"
	return r.scanSeries(r.db.QueryRow(query, classroomID))
}

func (r *SeriesRepository) scanSeries(row *sql.Row) (*models.ChallengeSeries, error) {
	s := &models.ChallengeSeries{}
	var seriesType string
	var kinds, settings string
	var dueDate sql.NullTime

	err := row.Scan(
		&s.ID, &s.ClassroomID, &s.CreatorID, &s.Title, &s.Description, &seriesType,
		&s.IsActive, &s.IsVisible, &s.IsConfigured, &s.Salt, &kinds,
		&settings, &dueDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("series not found")
	}
	if err != nil {
		return nil, err
	}

	s.SeriesType = models.SeriesType(seriesType)
	if dueDate.Valid {
		s.DueDate = &dueDate.Time
	}
	if err := json.Unmarshal([]byte(kinds), &s.LegacyKinds); err != nil {
		return nil, fmt.Errorf("failed to decode legacy kinds: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &s.Rewards); err != nil {
		return nil, fmt.Errorf("failed to decode reward settings: %w", err)
	}

	return s, nil
}

// UpdateSeries updates the mutable series fields
func (r *SeriesRepository) UpdateSeries(s *models.ChallengeSeries) error {
	kinds, err := json.Marshal(s.LegacyKinds)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(s.Rewards)
	if err != nil {
		return err
	}

	query := `
		UPDATE challenge_series
		SET title = ?, description = ?, series_type = ?, is_active = ?,
		    is_visible = ?, is_configured = ?, legacy_kinds = ?,
		    reward_settings = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query,
		s.Title, s.Description, string(s.SeriesType), s.IsActive,
		s.IsVisible, s.IsConfigured, string(kinds),
		string(settings), s.DueDate, time.Now(), s.ID,
	)
	return err
}

// DeleteSeries removes a series and everything hanging off it
func (r *SeriesRepository) DeleteSeries(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	deletes := []string{
		"DELETE FROM challenge_attachments WHERE challenge_id IN (SELECT id FROM custom_challenges WHERE series_id = ?)",
		"DELETE FROM custom_challenges WHERE series_id = ?",
		"DELETE FROM challenge_records WHERE series_id = ?",
		"DELETE FROM challenge_series WHERE id = ?",
	}
	for _, query := range deletes {
		if _, err := tx.Exec(query, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const challengeColumns = `
	id, series_id, display_order, title, description, external_link,
	template_type, template_config, answer_hash, hints, hint_penalty_percent,
	max_attempts, bits, multiplier, luck, discount, shield, is_visible,
	due_date, created_at, updated_at
`

// CreateChallenge inserts a custom challenge definition. Duplicate display
// order within a series is rejected as a conflict; duplicate titles are not.
func (r *SeriesRepository) CreateChallenge(d *models.CustomChallengeDefinition) (*models.CustomChallengeDefinition, error) {
	taken, err := r.orderTaken(d.SeriesID, d.DisplayOrder, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(fmt.Sprintf("display order %d already in use", d.DisplayOrder))
	}

	cfg, err := json.Marshal(d.TemplateConfig)
	if err != nil {
		return nil, err
	}
	hints, err := json.Marshal(d.Hints)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		INSERT INTO custom_challenges
			(series_id, display_order, title, description, external_link,
			 template_type, template_config, answer_hash, hints,
			 hint_penalty_percent, max_attempts, bits, multiplier, luck,
			 discount, shield, is_visible, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		d.SeriesID, d.DisplayOrder, d.Title, d.Description, d.ExternalLink,
		string(d.TemplateType), string(cfg), d.AnswerHash, string(hints),
		d.HintPenaltyPercent, d.MaxAttempts, d.Bits, d.Multiplier, d.Luck,
		d.Discount, d.Shield, d.IsVisible, d.DueDate, now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.GetChallenge(id)
}

func (r *SeriesRepository) orderTaken(seriesID int64, order int, excludeID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM custom_challenges WHERE series_id = ? AND display_order = ? AND id != ?"
	err := r.db.QueryRow(query, seriesID, order, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetChallenge retrieves a custom challenge definition by ID
func (r *SeriesRepository) GetChallenge(id int64) (*models.CustomChallengeDefinition, error) {
	query := "SELECT " + challengeColumns + " FROM custom_challenges WHERE id = ?"
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.NotFound("challenge not found")
	}
	return scanChallenge(rows)
}

// ListChallenges retrieves all custom challenges for a series in display order
func (r *SeriesRepository) ListChallenges(seriesID int64) ([]models.CustomChallengeDefinition, error) {
	query := "SELECT " + challengeColumns + " FROM custom_challenges WHERE series_id = ? ORDER BY display_order ASC"
	rows, err := r.db.Query(query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []models.CustomChallengeDefinition
	for rows.Next() {
		d, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *d)
	}
	return challenges, rows.Err()
}

func scanChallenge(rows *sql.Rows) (*models.CustomChallengeDefinition, error) {
	d := &models.CustomChallengeDefinition{}
	var templateType, cfg, hints string
	var dueDate sql.NullTime

	err := rows.Scan(
		&d.ID, &d.SeriesID, &d.DisplayOrder, &d.Title, &d.Description, &d.ExternalLink,
		&templateType, &cfg, &d.AnswerHash, &hints, &d.HintPenaltyPercent,
		&d.MaxAttempts, &d.Bits, &d.Multiplier, &d.Luck, &d.Discount, &d.Shield,
		&d.IsVisible, &dueDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.TemplateType = models.TemplateType(templateType)
	if dueDate.Valid {
		d.DueDate = &dueDate.Time
	}
	if cfg != "" && cfg != "null" {
		if err := json.Unmarshal([]byte(cfg), &d.TemplateConfig); err != nil {
			return nil, fmt.Errorf("failed to decode template config: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(hints), &d.Hints); err != nil {
		return nil, fmt.Errorf("failed to decode hints: %w", err)
	}

	return d, nil
}

// UpdateChallenge updates a custom challenge definition
func (r *SeriesRepository) UpdateChallenge(d *models.CustomChallengeDefinition) error {
	taken, err := r.orderTaken(d.SeriesID, d.DisplayOrder, d.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(fmt.Sprintf("display order %d already in use", d.DisplayOrder))
	}

	cfg, err := json.Marshal(d.TemplateConfig)
	if err != nil {
		return err
	}
	hints, err := json.Marshal(d.Hints)
	if err != nil {
		return err
	}

	query := `
		UPDATE custom_challenges
		SET display_order = ?, title = ?, description = ?, external_link = ?,
		    template_type = ?, template_config = ?, answer_hash = ?, hints = ?,
		    hint_penalty_percent = ?, max_attempts = ?, bits = ?, multiplier = ?,
		    luck = ?, discount = ?, shield = ?, is_visible = ?, due_date = ?,
		    updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query,
		d.DisplayOrder, d.Title, d.Description, d.ExternalLink,
		string(d.TemplateType), string(cfg), d.AnswerHash, string(hints),
		d.HintPenaltyPercent, d.MaxAttempts, d.Bits, d.Multiplier,
		d.Luck, d.Discount, d.Shield, d.IsVisible, d.DueDate,
		time.Now(), d.ID,
	)
	return err
}

// DeleteChallenge removes a custom challenge and its attachments
func (r *SeriesRepository) DeleteChallenge(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM challenge_attachments WHERE challenge_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM custom_challenges WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

// ReorderChallenges rewrites display order to match orderedIDs (dense,
// 0-based). Orders move through a negative range first so the uniqueness
// constraint never trips mid-transaction.
func (r *SeriesRepository) ReorderChallenges(seriesID int64, orderedIDs []int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range orderedIDs {
		result, err := tx.Exec(
			"UPDATE custom_challenges SET display_order = ? WHERE id = ? AND series_id = ?",
			-(i + 1), id, seriesID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound(fmt.Sprintf("challenge %d not in series", id))
		}
	}

	for i, id := range orderedIDs {
		if _, err := tx.Exec(
			"UPDATE custom_challenges SET display_order = ?, updated_at = ? WHERE id = ?",
			i, time.Now(), id,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddAttachment stores attachment metadata, enforcing the per-challenge cap
func (r *SeriesRepository) AddAttachment(a *models.Attachment) error {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM challenge_attachments WHERE challenge_id = ?", a.ChallengeID,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count >= models.MaxAttachments {
		return apperr.Conflict(fmt.Sprintf("challenge already has %d attachments", models.MaxAttachments))
	}

	query := `
		INSERT INTO challenge_attachments
			(id, challenge_id, file_name, content_type, size, storage_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, a.ID, a.ChallengeID, a.FileName, a.ContentType, a.Size, a.StoragePath, a.UploadedAt)
	return err
}

// ListAttachments retrieves attachment metadata for a challenge
func (r *SeriesRepository) ListAttachments(challengeID int64) ([]models.Attachment, error) {
	query := `
		SELECT id, challenge_id, file_name, content_type, size, storage_path, uploaded_at
		FROM challenge_attachments
		WHERE challenge_id = ?
		ORDER BY uploaded_at ASC
	`
	rows, err := r.db.Query(query, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.ChallengeID, &a.FileName, &a.ContentType, &a.Size, &a.StoragePath, &a.UploadedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
