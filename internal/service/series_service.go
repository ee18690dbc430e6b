package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classquest/internal/apperr"
	"classquest/internal/generator"
	"classquest/internal/models"
	"classquest/internal/seed"
	"classquest/internal/verify"
)

// SeriesAdminStore extends SeriesStore with the teacher-side write operations
type SeriesAdminStore interface {
	SeriesStore
	CreateSeries(s *models.ChallengeSeries) (*models.ChallengeSeries, error)
	UpdateSeries(s *models.ChallengeSeries) error
	DeleteSeries(id int64) error
	CreateChallenge(d *models.CustomChallengeDefinition) (*models.CustomChallengeDefinition, error)
	UpdateChallenge(d *models.CustomChallengeDefinition) error
	DeleteChallenge(id int64) error
	ReorderChallenges(seriesID int64, orderedIDs []int64) error
	AddAttachment(a *models.Attachment) error
}

// RecordAdminStore extends RecordStore with record provisioning and listing
type RecordAdminStore interface {
	RecordStore
	CreateRecord(rec *models.StudentChallengeRecord) (*models.StudentChallengeRecord, error)
	TokenExists(token string) (bool, error)
	ListRecords(seriesID int64) ([]models.StudentChallengeRecord, error)
	DeleteRecord(id int64) error
}

// SeriesService is the teacher-facing configuration surface: series setup,
// custom challenge authoring, activation, resets and the progress overview.
type SeriesService struct {
	series        SeriesAdminStore
	records       RecordAdminStore
	notifier      Notifier
	uploadDir     string
	uploadMaxSize int64
	tokenLength   int
	now           func() time.Time
}

// NewSeriesService creates the series configuration service
func NewSeriesService(series SeriesAdminStore, records RecordAdminStore, notifier Notifier, uploadDir string, uploadMaxSize int64, tokenLength int) *SeriesService {
	return &SeriesService{
		series:        series,
		records:       records,
		notifier:      notifier,
		uploadDir:     uploadDir,
		uploadMaxSize: uploadMaxSize,
		tokenLength:   tokenLength,
		now:           time.Now,
	}
}

// ownedSeries loads a series and checks the caller created it
func (s *SeriesService) ownedSeries(teacherID, seriesID int64) (*models.ChallengeSeries, error) {
	series, err := s.series.GetSeriesByID(seriesID)
	if err != nil {
		return nil, err
	}
	if series.CreatorID != teacherID {
		return nil, apperr.Forbidden("only the series creator may manage it")
	}
	return series, nil
}

// newSalt draws the per-series seed salt
func newSalt() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate series salt: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// SeriesInput carries the teacher-editable series fields
type SeriesInput struct {
	Title       string
	Description string
	SeriesType  models.SeriesType
	LegacyKinds []int
	IsVisible   bool
	DueDate     *time.Time
}

func validateSeriesInput(in SeriesInput) error {
	var fields []string
	if in.Title == "" {
		fields = append(fields, "title: required")
	}
	switch in.SeriesType {
	case models.SeriesTypeLegacy, models.SeriesTypeCustom, models.SeriesTypeMixed:
	default:
		fields = append(fields, fmt.Sprintf("seriesType: unknown type %q", in.SeriesType))
	}
	seen := make(map[int]bool)
	for _, kind := range in.LegacyKinds {
		if kind < 0 || kind >= generator.LegacyKindCount {
			fields = append(fields, fmt.Sprintf("legacyKinds: unknown kind %d", kind))
		}
		if seen[kind] {
			fields = append(fields, fmt.Sprintf("legacyKinds: duplicate kind %d", kind))
		}
		seen[kind] = true
	}
	if in.SeriesType == models.SeriesTypeCustom && len(in.LegacyKinds) > 0 {
		fields = append(fields, "legacyKinds: a custom-only series includes no fixed challenges")
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid series configuration", fields...)
	}
	return nil
}

// CreateSeries creates the classroom's series in an unconfigured, inactive
// state. Each classroom carries at most one.
func (s *SeriesService) CreateSeries(ctx context.Context, teacherID, classroomID int64, in SeriesInput) (*models.ChallengeSeries, error) {
	if err := validateSeriesInput(in); err != nil {
		return nil, err
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}

	return s.series.CreateSeries(&models.ChallengeSeries{
		ClassroomID: classroomID,
		CreatorID:   teacherID,
		Title:       in.Title,
		Description: in.Description,
		SeriesType:  in.SeriesType,
		IsVisible:   in.IsVisible,
		Salt:        salt,
		LegacyKinds: in.LegacyKinds,
		Rewards:     models.DefaultRewardSettings(),
		DueDate:     in.DueDate,
	})
}

// ConfigureSeries updates the series definition and marks it configured
func (s *SeriesService) ConfigureSeries(ctx context.Context, teacherID, seriesID int64, in SeriesInput) (*models.ChallengeSeries, error) {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return nil, err
	}
	if err := validateSeriesInput(in); err != nil {
		return nil, err
	}

	series.Title = in.Title
	series.Description = in.Description
	series.SeriesType = in.SeriesType
	series.LegacyKinds = in.LegacyKinds
	series.IsVisible = in.IsVisible
	series.DueDate = in.DueDate
	series.IsConfigured = true

	if err := s.series.UpdateSeries(series); err != nil {
		return nil, err
	}
	return s.series.GetSeriesByID(seriesID)
}

// UpdateRewardSettings replaces the series reward configuration
func (s *SeriesService) UpdateRewardSettings(ctx context.Context, teacherID, seriesID int64, settings models.RewardSettings) (*models.ChallengeSeries, error) {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if settings.HintPenaltyPercent < 0 || settings.HintPenaltyPercent > 100 {
		fields = append(fields, "hintPenaltyPercent: must be between 0 and 100")
	}
	if settings.MaxHints < 0 {
		fields = append(fields, "maxHints: must not be negative")
	}
	for _, mode := range []models.RewardMode{settings.BitsMode, settings.MultiplierMode, settings.LuckMode, settings.DiscountMode, settings.ShieldMode} {
		if mode != models.RewardModeFlat && mode != models.RewardModePerChallenge {
			fields = append(fields, fmt.Sprintf("rewardMode: unknown mode %q", mode))
		}
	}
	for i := 0; i < models.LegacySlots; i++ {
		if settings.Bits[i] < 0 {
			fields = append(fields, fmt.Sprintf("bits[%d]: must not be negative", i))
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid reward settings", fields...)
	}

	series.Rewards = settings
	if err := s.series.UpdateSeries(series); err != nil {
		return nil, err
	}
	return s.series.GetSeriesByID(seriesID)
}

// passwordArtifact derives the legacy password for a student and returns its
// bcrypt hash. The plaintext is recomputable from the seed and is never
// stored.
func passwordArtifact(studentID int64, salt string) (string, error) {
	digest := seed.Derive(fmt.Sprintf("%d", studentID), "password", salt)
	hash, err := bcrypt.GenerateFromPassword([]byte(digest[:12]), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password artifact: %w", err)
	}
	return string(hash), nil
}

// provisionRecord creates the progress record for one student, drawing a
// globally unique token.
func (s *SeriesService) provisionRecord(series *models.ChallengeSeries, studentID int64) (*models.StudentChallengeRecord, error) {
	token, err := seed.GenerateUniqueToken(s.tokenLength, s.records.TokenExists)
	if err != nil {
		return nil, err
	}
	passwordHash, err := passwordArtifact(studentID, series.Salt)
	if err != nil {
		return nil, err
	}

	return s.records.CreateRecord(&models.StudentChallengeRecord{
		SeriesID:     series.ID,
		StudentID:    studentID,
		Token:        token,
		PasswordHash: passwordHash,
	})
}

// ActivateSeries turns the series live and provisions a progress record for
// every listed student who lacks one. Re-activation is idempotent for
// students already provisioned.
func (s *SeriesService) ActivateSeries(ctx context.Context, teacherID, seriesID int64, studentIDs []int64) (*models.ChallengeSeries, error) {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return nil, err
	}
	if !series.IsConfigured {
		return nil, apperr.Conflict("series must be configured before activation")
	}

	for _, studentID := range studentIDs {
		_, err := s.records.GetRecord(series.ID, studentID)
		if err == nil {
			continue
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}
		if _, err := s.provisionRecord(series, studentID); err != nil {
			return nil, fmt.Errorf("failed to provision record for student %d: %w", studentID, err)
		}
	}

	series.IsActive = true
	if err := s.series.UpdateSeries(series); err != nil {
		return nil, err
	}
	return s.series.GetSeriesByID(seriesID)
}

// DeactivateSeries hides the series from students without touching progress
func (s *SeriesService) DeactivateSeries(ctx context.Context, teacherID, seriesID int64) error {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return err
	}
	series.IsActive = false
	return s.series.UpdateSeries(series)
}

// DeleteSeries removes the series, its challenges and all progress
func (s *SeriesService) DeleteSeries(ctx context.Context, teacherID, seriesID int64) error {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return err
	}
	return s.series.DeleteSeries(seriesID)
}

// AssignStudent provisions a record for a late-joining student
func (s *SeriesService) AssignStudent(ctx context.Context, teacherID, seriesID, studentID int64) (*models.StudentChallengeRecord, error) {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return nil, err
	}

	if _, err := s.records.GetRecord(series.ID, studentID); err == nil {
		return nil, apperr.Conflict("student already has a progress record")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	return s.provisionRecord(series, studentID)
}

// ChallengeInput carries the teacher-editable custom challenge fields
type ChallengeInput struct {
	Title              string
	Description        string
	ExternalLink       string
	TemplateType       models.TemplateType
	TemplateConfig     map[string]any
	Answer             string // passcode type only; hashed before storage
	Hints              []string
	HintPenaltyPercent int
	MaxAttempts        int
	Bits               int
	Multiplier         float64
	Luck               float64
	Discount           float64
	Shield             bool
	IsVisible          bool
	DueDate            *time.Time
}

func validateChallengeInput(in ChallengeInput) error {
	var fields []string
	if in.Title == "" {
		fields = append(fields, "title: required")
	}
	if in.HintPenaltyPercent < 0 || in.HintPenaltyPercent > 100 {
		fields = append(fields, "hintPenaltyPercent: must be between 0 and 100")
	}
	if in.MaxAttempts < 0 {
		fields = append(fields, "maxAttempts: must not be negative")
	}
	if in.Bits < 0 {
		fields = append(fields, "bits: must not be negative")
	}
	if in.TemplateType == models.TemplatePasscode && in.Answer == "" {
		fields = append(fields, "answer: required for passcode challenges")
	}
	fields = append(fields, generator.ValidateConfig(in.TemplateType, in.TemplateConfig)...)

	if len(fields) > 0 {
		return apperr.Validation("invalid challenge definition", fields...)
	}
	return nil
}

func applyChallengeInput(d *models.CustomChallengeDefinition, in ChallengeInput) error {
	d.Title = in.Title
	d.Description = in.Description
	d.ExternalLink = in.ExternalLink
	d.TemplateType = in.TemplateType
	d.TemplateConfig = in.TemplateConfig
	d.Hints = in.Hints
	d.HintPenaltyPercent = in.HintPenaltyPercent
	d.MaxAttempts = in.MaxAttempts
	d.Bits = in.Bits
	d.Multiplier = in.Multiplier
	d.Luck = in.Luck
	d.Discount = in.Discount
	d.Shield = in.Shield
	d.IsVisible = in.IsVisible
	d.DueDate = in.DueDate

	if in.TemplateType == models.TemplatePasscode && in.Answer != "" {
		hash, err := verify.HashPasscode(in.Answer)
		if err != nil {
			return err
		}
		d.AnswerHash = hash
	}
	if in.TemplateType != models.TemplatePasscode {
		d.AnswerHash = ""
	}
	return nil
}

// CreateCustomChallenge appends a custom challenge at the end of the series
// display order.
func (s *SeriesService) CreateCustomChallenge(ctx context.Context, teacherID, seriesID int64, in ChallengeInput) (*models.CustomChallengeDefinition, error) {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return nil, err
	}
	if series.SeriesType == models.SeriesTypeLegacy {
		return nil, apperr.Conflict("a legacy-only series cannot carry custom challenges")
	}
	if err := validateChallengeInput(in); err != nil {
		return nil, err
	}

	existing, err := s.series.ListChallenges(seriesID)
	if err != nil {
		return nil, err
	}

	def := &models.CustomChallengeDefinition{
		SeriesID:     seriesID,
		DisplayOrder: len(existing),
	}
	if err := applyChallengeInput(def, in); err != nil {
		return nil, err
	}
	if def.MaxAttempts == 0 {
		def.MaxAttempts = 3
	}

	return s.series.CreateChallenge(def)
}

// UpdateCustomChallenge rewrites a custom challenge definition
func (s *SeriesService) UpdateCustomChallenge(ctx context.Context, teacherID, seriesID, challengeID int64, in ChallengeInput) (*models.CustomChallengeDefinition, error) {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return nil, err
	}
	def, err := s.series.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if def.SeriesID != seriesID {
		return nil, apperr.NotFound("challenge not found")
	}
	if err := validateChallengeInput(in); err != nil {
		return nil, err
	}

	if err := applyChallengeInput(def, in); err != nil {
		return nil, err
	}
	if def.MaxAttempts == 0 {
		def.MaxAttempts = 3
	}

	if err := s.series.UpdateChallenge(def); err != nil {
		return nil, err
	}
	return s.series.GetChallenge(challengeID)
}

// DeleteCustomChallenge removes a challenge and its attachments
func (s *SeriesService) DeleteCustomChallenge(ctx context.Context, teacherID, seriesID, challengeID int64) error {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return err
	}
	def, err := s.series.GetChallenge(challengeID)
	if err != nil {
		return err
	}
	if def.SeriesID != seriesID {
		return apperr.NotFound("challenge not found")
	}
	return s.series.DeleteChallenge(challengeID)
}

// ReorderCustomChallenges rewrites the display order to the given sequence.
// The sequence must be a permutation of the series' challenges.
func (s *SeriesService) ReorderCustomChallenges(ctx context.Context, teacherID, seriesID int64, orderedIDs []int64) error {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return err
	}

	existing, err := s.series.ListChallenges(seriesID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(existing) {
		return apperr.Validation("ordering must list every challenge exactly once")
	}
	known := make(map[int64]bool, len(existing))
	for i := range existing {
		known[existing[i].ID] = true
	}
	seen := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return apperr.Validation(fmt.Sprintf("challenge %d is not in this series", id))
		}
		if seen[id] {
			return apperr.Validation(fmt.Sprintf("challenge %d listed twice", id))
		}
		seen[id] = true
	}

	return s.series.ReorderChallenges(seriesID, orderedIDs)
}

// UploadAttachment stores a teacher-uploaded file for a custom challenge
func (s *SeriesService) UploadAttachment(ctx context.Context, teacherID, seriesID, challengeID int64, fileName, contentType string, size int64, r io.Reader) (*models.Attachment, error) {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return nil, err
	}
	def, err := s.series.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if def.SeriesID != seriesID {
		return nil, apperr.NotFound("challenge not found")
	}
	if size > s.uploadMaxSize {
		return nil, apperr.Validation(fmt.Sprintf("file exceeds the %d byte upload limit", s.uploadMaxSize))
	}

	id := uuid.New().String()
	storagePath := filepath.Join(s.uploadDir, id+filepath.Ext(fileName))

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	f, err := os.Create(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(r, s.uploadMaxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.uploadMaxSize {
		err = apperr.Validation(fmt.Sprintf("file exceeds the %d byte upload limit", s.uploadMaxSize))
	}
	if err != nil {
		os.Remove(storagePath)
		return nil, err
	}

	attachment := &models.Attachment{
		ID:          id,
		ChallengeID: challengeID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        written,
		StoragePath: storagePath,
		UploadedAt:  s.now(),
	}
	if err := s.series.AddAttachment(attachment); err != nil {
		os.Remove(storagePath)
		return nil, err
	}
	return attachment, nil
}

// ResetStudent clears all of a student's progress in the series. The token
// and password artifact survive: they identify the student, not the attempt.
func (s *SeriesService) ResetStudent(ctx context.Context, teacherID, seriesID, studentID int64) error {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return err
	}

	_, err = s.records.Mutate(seriesID, studentID, func(rec *models.StudentChallengeRecord) error {
		rec.LegacyCompleted = 0
		rec.LegacySlots = [models.LegacySlots]models.LegacySlotState{}
		rec.Custom = nil
		rec.CompletedAt = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyReset(ctx, studentID, series.Title, "Your challenge progress has been reset by your teacher.")
	return nil
}

// ResetCustomChallenge clears one custom challenge's progress for a student
func (s *SeriesService) ResetCustomChallenge(ctx context.Context, teacherID, seriesID, studentID, challengeID int64) error {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return err
	}

	_, err = s.records.Mutate(seriesID, studentID, func(rec *models.StudentChallengeRecord) error {
		for i := range rec.Custom {
			if rec.Custom[i].ChallengeID == challengeID {
				rec.Custom = append(rec.Custom[:i], rec.Custom[i+1:]...)
				break
			}
		}
		rec.CompletedAt = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyReset(ctx, studentID, series.Title, "One of your challenges has been reset by your teacher.")
	return nil
}

// ResetLegacyChallenge clears one legacy slot's progress for a student
func (s *SeriesService) ResetLegacyChallenge(ctx context.Context, teacherID, seriesID, studentID int64, kind int) error {
	series, err := s.ownedSeries(teacherID, seriesID)
	if err != nil {
		return err
	}
	if kind < 0 || kind >= models.LegacySlots {
		return apperr.Validation(fmt.Sprintf("unknown legacy challenge %d", kind))
	}

	_, err = s.records.Mutate(seriesID, studentID, func(rec *models.StudentChallengeRecord) error {
		rec.LegacyCompleted.Clear(kind)
		rec.LegacySlots[kind] = models.LegacySlotState{}
		rec.CompletedAt = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyReset(ctx, studentID, series.Title, "One of your challenges has been reset by your teacher.")
	return nil
}

func (s *SeriesService) notifyReset(ctx context.Context, studentID int64, seriesTitle, message string) {
	if err := s.notifier.Notify(ctx, Notification{
		UserID:  studentID,
		Kind:    "progress-reset",
		Subject: fmt.Sprintf("Progress update for %q", seriesTitle),
		Message: message,
	}); err != nil {
		log.Printf("Reset notification failed: student=%d err=%v", studentID, err)
	}
}

// RecordSummary is one row of the teacher's progress overview
type RecordSummary struct {
	RecordID    int64      `json:"recordId"`
	StudentID   int64      `json:"studentId"`
	Token       string     `json:"token"`
	Progress    int        `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ProgressOverview lists every student's progress for the series
func (s *SeriesService) ProgressOverview(ctx context.Context, teacherID, seriesID int64) ([]RecordSummary, error) {
	if _, err := s.ownedSeries(teacherID, seriesID); err != nil {
		return nil, err
	}

	records, err := s.records.ListRecords(seriesID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RecordSummary, 0, len(records))
	for i := range records {
		rec := &records[i]
		summaries = append(summaries, RecordSummary{
			RecordID:    rec.ID,
			StudentID:   rec.StudentID,
			Token:       rec.Token,
			Progress:    rec.Progress(),
			Completed:   rec.CompletedAt != nil,
			CompletedAt: rec.CompletedAt,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return summaries, nil
}
