package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"classquest/internal/apperr"
	"classquest/internal/artifact"
	"classquest/internal/generator"
	"classquest/internal/locks"
	"classquest/internal/models"
	"classquest/internal/rewards"
	"classquest/internal/seed"
	"classquest/internal/verify"
)

// SeriesStore is the series/challenge lookup surface the engine needs
type SeriesStore interface {
	GetSeriesByID(id int64) (*models.ChallengeSeries, error)
	GetSeriesByClassroom(classroomID int64) (*models.ChallengeSeries, error)
	GetChallenge(id int64) (*models.CustomChallengeDefinition, error)
	ListChallenges(seriesID int64) ([]models.CustomChallengeDefinition, error)
	ListAttachments(challengeID int64) ([]models.Attachment, error)
}

// RecordStore is the progress record surface the engine needs. Mutate must
// run the mutation against a freshly loaded record and write it back
// atomically, retrying once on concurrent modification.
type RecordStore interface {
	GetRecord(seriesID, studentID int64) (*models.StudentChallengeRecord, error)
	GetRecordByToken(token string) (*models.StudentChallengeRecord, error)
	Mutate(seriesID, studentID int64, fn func(*models.StudentChallengeRecord) error) (*models.StudentChallengeRecord, error)
}

// ChallengeService runs the student-facing progress state machine: starting
// challenges, unlocking hints, verifying answers and handing reward deltas to
// the external ledgers.
type ChallengeService struct {
	series        SeriesStore
	records       RecordStore
	ledger        CurrencyLedger
	xp            XPService
	notifier      Notifier
	remote        RemoteArtifactHost
	renderer      *artifact.ImageRenderer
	artifactLocks *locks.KeyedLimiter
	now           func() time.Time
}

// NewChallengeService creates the challenge engine service
func NewChallengeService(
	series SeriesStore,
	records RecordStore,
	ledger CurrencyLedger,
	xp XPService,
	notifier Notifier,
	remote RemoteArtifactHost,
	renderer *artifact.ImageRenderer,
) *ChallengeService {
	return &ChallengeService{
		series:        series,
		records:       records,
		ledger:        ledger,
		xp:            xp,
		notifier:      notifier,
		remote:        remote,
		renderer:      renderer,
		artifactLocks: locks.NewKeyedLimiter(),
		now:           time.Now,
	}
}

// customSeed derives the content seed for a (student, custom challenge) pair
func customSeed(studentID, challengeID int64, salt string) string {
	return seed.Derive(strconv.FormatInt(studentID, 10), "custom-"+strconv.FormatInt(challengeID, 10), salt)
}

// legacySeed derives the content seed for a (student, legacy kind) pair
func legacySeed(studentID int64, kind generator.LegacyKind, salt string) string {
	return seed.Derive(strconv.FormatInt(studentID, 10), "legacy-"+strconv.Itoa(int(kind)), salt)
}

// activeSeries loads the classroom's series if a student may interact with it
func (s *ChallengeService) activeSeries(classroomID int64) (*models.ChallengeSeries, error) {
	series, err := s.series.GetSeriesByClassroom(classroomID)
	if err != nil {
		return nil, err
	}
	if !series.IsActive || !series.IsVisible {
		return nil, apperr.NotFound("no active challenge series for this classroom")
	}
	return series, nil
}

// visibleChallenge loads a custom challenge and checks it belongs to the
// series and is visible to students.
func (s *ChallengeService) visibleChallenge(series *models.ChallengeSeries, challengeID int64) (*models.CustomChallengeDefinition, error) {
	def, err := s.series.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if def.SeriesID != series.ID || !def.IsVisible {
		return nil, apperr.NotFound("challenge not found")
	}
	return def, nil
}

func checkNotExpired(series *models.ChallengeSeries, def *models.CustomChallengeDefinition, now time.Time) error {
	if series.Expired(now) {
		return apperr.Conflict("challenge series has expired")
	}
	if def != nil && def.Expired(now) {
		return apperr.Conflict("challenge has expired")
	}
	return nil
}

// CustomProgressView is the sanitized per-challenge state shown to a student.
// Expected answers and stored hashes never cross this boundary.
type CustomProgressView struct {
	ChallengeID   int64             `json:"challengeId"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	ExternalLink  string            `json:"externalLink,omitempty"`
	TemplateType  string            `json:"templateType"`
	DisplayOrder  int               `json:"displayOrder"`
	Started       bool              `json:"started"`
	Completed     bool              `json:"completed"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	Attempts      int               `json:"attempts"`
	MaxAttempts   int               `json:"maxAttempts"`
	HintsUsed     int               `json:"hintsUsed"`
	HintsTotal    int               `json:"hintsTotal"`
	UnlockedHints []string          `json:"unlockedHints,omitempty"`
	DisplayData   string            `json:"displayData,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	DueDate       *time.Time        `json:"dueDate,omitempty"`
	Bits          int               `json:"bits"`
	BitsAwarded   int               `json:"bitsAwarded"`
	Attachments   []models.Attachment `json:"attachments,omitempty"`
}

func customView(def *models.CustomChallengeDefinition, p *models.CustomChallengeProgress) CustomProgressView {
	v := CustomProgressView{
		ChallengeID:  def.ID,
		Title:        def.Title,
		Description:  def.Description,
		ExternalLink: def.ExternalLink,
		TemplateType: string(def.TemplateType),
		DisplayOrder: def.DisplayOrder,
		MaxAttempts:  def.MaxAttempts,
		HintsTotal:   len(def.Hints),
		DueDate:      def.DueDate,
		Bits:         def.Bits,
	}
	if p == nil {
		return v
	}
	v.Started = p.StartedAt != nil
	v.Completed = p.Completed
	v.CompletedAt = p.CompletedAt
	v.Attempts = p.Attempts
	v.HintsUsed = p.HintsUsed
	v.UnlockedHints = p.UnlockedHints
	v.BitsAwarded = p.BitsAwarded
	if p.Content != nil {
		v.DisplayData = p.Content.DisplayData
		v.Metadata = p.Content.Metadata
	}
	return v
}

// StartCustom marks a custom challenge started and generates its per-student
// content exactly once. Repeated starts return the same content.
func (s *ChallengeService) StartCustom(ctx context.Context, classroomID, studentID, challengeID int64) (*CustomProgressView, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	def, err := s.visibleChallenge(series, challengeID)
	if err != nil {
		return nil, err
	}
	if err := checkNotExpired(series, def, s.now()); err != nil {
		return nil, err
	}

	rec, err := s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		p := rec.CustomProgress(challengeID)
		if p == nil {
			rec.Custom = append(rec.Custom, models.CustomChallengeProgress{ChallengeID: challengeID})
			p = &rec.Custom[len(rec.Custom)-1]
		}
		if p.StartedAt == nil {
			started := s.now()
			p.StartedAt = &started
		}
		if p.Content == nil && def.TemplateType != models.TemplatePasscode {
			seedHex := customSeed(studentID, challengeID, series.Salt)
			content, err := generator.Generate(def.TemplateType, def.TemplateConfig, seedHex)
			if err != nil {
				return fmt.Errorf("failed to generate challenge content: %w", err)
			}
			p.Content = &models.GeneratedContent{
				DisplayData:    content.DisplayData,
				ExpectedAnswer: content.ExpectedAnswer,
				Seed:           seedHex,
				GeneratedAt:    s.now(),
				Metadata:       content.Metadata,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := customView(def, rec.CustomProgress(challengeID))
	return &v, nil
}

// UnlockCustomHint reveals the next hint in order and records the use. Hints
// on completed challenges and past the last hint are conflicts.
func (s *ChallengeService) UnlockCustomHint(ctx context.Context, classroomID, studentID, challengeID int64) (string, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return "", err
	}
	def, err := s.visibleChallenge(series, challengeID)
	if err != nil {
		return "", err
	}
	if err := checkNotExpired(series, def, s.now()); err != nil {
		return "", err
	}

	var hint string
	_, err = s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		hint = ""

		p := rec.CustomProgress(challengeID)
		if p == nil || p.StartedAt == nil {
			return apperr.Conflict("challenge not started")
		}
		if p.Completed {
			return apperr.Conflict("challenge already completed")
		}
		if p.HintsUsed >= len(def.Hints) {
			return apperr.Conflict("no more hints available")
		}

		hint = def.Hints[p.HintsUsed]
		p.HintsUsed++
		p.UnlockedHints = append(p.UnlockedHints, hint)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hint, nil
}

// SubmitResult is the outcome of an answer submission
type SubmitResult struct {
	Correct           bool          `json:"correct"`
	Attempts          int           `json:"attempts"`
	AttemptsRemaining int           `json:"attemptsRemaining"`
	Reward            rewards.Delta `json:"reward"`
	SeriesCompleted   bool          `json:"seriesCompleted"`
}

// SubmitCustom verifies a submitted answer against a custom challenge. The
// attempt is counted before verification so a crash mid-check never grants a
// free retry. Completion is monotonic.
func (s *ChallengeService) SubmitCustom(ctx context.Context, classroomID, studentID, challengeID int64, answer string) (*SubmitResult, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	def, err := s.visibleChallenge(series, challengeID)
	if err != nil {
		return nil, err
	}
	if err := checkNotExpired(series, def, s.now()); err != nil {
		return nil, err
	}
	defs, err := s.series.ListChallenges(series.ID)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	var delta rewards.Delta
	var seriesJustCompleted bool

	_, err = s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		// The mutation may run twice on contention; start from scratch.
		result = SubmitResult{}
		delta = rewards.Delta{}
		seriesJustCompleted = false

		p := rec.CustomProgress(challengeID)
		if p == nil || p.StartedAt == nil {
			return apperr.Conflict("challenge not started")
		}
		if p.Completed {
			return apperr.Conflict("challenge already completed")
		}
		if def.MaxAttempts > 0 && p.Attempts >= def.MaxAttempts {
			return apperr.Conflict("attempt limit reached")
		}

		p.Attempts++

		var correct bool
		switch def.TemplateType {
		case models.TemplatePasscode:
			correct = verify.Passcode(answer, def.AnswerHash)
		default:
			if p.Content == nil {
				return apperr.Conflict("challenge content not generated")
			}
			correct = verify.Answer(def.TemplateType, answer, p.Content.ExpectedAnswer)
		}

		result.Correct = correct
		result.Attempts = p.Attempts
		if def.MaxAttempts > 0 {
			result.AttemptsRemaining = def.MaxAttempts - p.Attempts
		}

		if !correct {
			return nil
		}

		completed := s.now()
		p.Completed = true
		p.CompletedAt = &completed
		delta = rewards.CalculateCustom(def, p.HintsUsed)
		p.BitsAwarded = delta.Bits
		result.Reward = delta

		if rec.CompletedAt == nil && seriesComplete(series, defs, rec) {
			rec.CompletedAt = &completed
			seriesJustCompleted = true
		}
		result.SeriesCompleted = rec.CompletedAt != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Correct {
		s.applyReward(ctx, studentID, classroomID, delta, fmt.Sprintf("challenge %q completed", def.Title))
	}
	if seriesJustCompleted {
		s.finishSeries(ctx, series, studentID, classroomID)
	}
	return &result, nil
}

// LegacyView is the sanitized per-slot legacy state shown to a student
type LegacyView struct {
	Kind        int               `json:"kind"`
	Title       string            `json:"title"`
	Completed   bool              `json:"completed"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"maxAttempts"`
	HintsUsed   int               `json:"hintsUsed"`
	HintsTotal  int               `json:"hintsTotal"`
	DisplayData string            `json:"displayData,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	HasArtifact bool              `json:"hasArtifact"`
}

// legacyEntry validates a kind against the series and returns its table entry
func (s *ChallengeService) legacyEntry(series *models.ChallengeSeries, kind int) (generator.LegacyChallenge, error) {
	entry, ok := generator.Legacy(generator.LegacyKind(kind))
	if !ok || !series.IncludesLegacy(kind) {
		return generator.LegacyChallenge{}, apperr.NotFound("challenge not found")
	}
	if !series.Rewards.Visible[kind] {
		return generator.LegacyChallenge{}, apperr.NotFound("challenge not found")
	}
	return entry, nil
}

// StartLegacy produces the content for a legacy challenge. Content is a pure
// function of (token, seed) so nothing needs to persist; for the kinds that
// cache their expected answer the cache is written on first start.
func (s *ChallengeService) StartLegacy(ctx context.Context, classroomID, studentID int64, kind int) (*LegacyView, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	entry, err := s.legacyEntry(series, kind)
	if err != nil {
		return nil, err
	}
	if err := checkNotExpired(series, nil, s.now()); err != nil {
		return nil, err
	}

	seedHex := legacySeed(studentID, entry.Kind, series.Salt)

	var content *generator.Content
	rec, err := s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		var genErr error
		content, genErr = entry.Generate(rec.Token, seedHex)
		if genErr != nil {
			return fmt.Errorf("failed to generate challenge content: %w", genErr)
		}
		if entry.CachesExpected && rec.LegacySlots[kind].CachedExpected == "" {
			rec.LegacySlots[kind].CachedExpected = content.ExpectedAnswer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry.UsesRemote && s.remote.IsEnabled() {
		branch := generator.RemoteBranch(rec.Token)
		clue := fmt.Sprintf("Well found. Your clue code is: %s\n", content.ExpectedAnswer)
		if err := s.remote.StageFile(ctx, branch, "CLUE.txt", clue); err != nil {
			log.Printf("Remote clue staging failed (continuing): branch=%s err=%v", branch, err)
		}
	}

	slot := rec.LegacySlots[kind]
	return &LegacyView{
		Kind:        kind,
		Title:       entry.Title,
		Completed:   rec.LegacyCompleted.Has(kind),
		CompletedAt: slot.CompletedAt,
		Attempts:    slot.Attempts,
		MaxAttempts: entry.MaxAttempts,
		HintsUsed:   slot.HintsUsed,
		HintsTotal:  len(entry.Hints),
		DisplayData: content.DisplayData,
		Metadata:    content.Metadata,
		HasArtifact: entry.UsesArtifact,
	}, nil
}

// UnlockLegacyHint reveals the next hint for a legacy challenge
func (s *ChallengeService) UnlockLegacyHint(ctx context.Context, classroomID, studentID int64, kind int) (string, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return "", err
	}
	entry, err := s.legacyEntry(series, kind)
	if err != nil {
		return "", err
	}
	if err := checkNotExpired(series, nil, s.now()); err != nil {
		return "", err
	}
	if !series.Rewards.HintsEnabled[kind] {
		return "", apperr.Conflict("hints are disabled for this challenge")
	}

	maxHints := len(entry.Hints)
	if series.Rewards.MaxHints > 0 && series.Rewards.MaxHints < maxHints {
		maxHints = series.Rewards.MaxHints
	}

	var hint string
	_, err = s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		hint = ""

		if rec.LegacyCompleted.Has(kind) {
			return apperr.Conflict("challenge already completed")
		}
		slot := &rec.LegacySlots[kind]
		if slot.HintsUsed >= maxHints {
			return apperr.Conflict("no more hints available")
		}

		hint = entry.Hints[slot.HintsUsed]
		slot.HintsUsed++
		return nil
	})
	if err != nil {
		return "", err
	}
	return hint, nil
}

// SubmitLegacy verifies a submitted answer against a legacy challenge by
// recomputing the expected answer from (token, seed). Any cached expected
// value is advisory only and never consulted for the verdict.
func (s *ChallengeService) SubmitLegacy(ctx context.Context, classroomID, studentID int64, kind int, answer string) (*SubmitResult, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	entry, err := s.legacyEntry(series, kind)
	if err != nil {
		return nil, err
	}
	if err := checkNotExpired(series, nil, s.now()); err != nil {
		return nil, err
	}
	defs, err := s.series.ListChallenges(series.ID)
	if err != nil {
		return nil, err
	}

	seedHex := legacySeed(studentID, entry.Kind, series.Salt)

	var result SubmitResult
	var delta rewards.Delta
	var seriesJustCompleted bool

	_, err = s.records.Mutate(series.ID, studentID, func(rec *models.StudentChallengeRecord) error {
		result = SubmitResult{}
		delta = rewards.Delta{}
		seriesJustCompleted = false

		if rec.LegacyCompleted.Has(kind) {
			return apperr.Conflict("challenge already completed")
		}
		slot := &rec.LegacySlots[kind]
		if entry.MaxAttempts > 0 && slot.Attempts >= entry.MaxAttempts {
			return apperr.Conflict("attempt limit reached")
		}

		slot.Attempts++

		correct := verify.Legacy(entry.Kind, answer, rec.Token, seedHex)
		result.Correct = correct
		result.Attempts = slot.Attempts
		if entry.MaxAttempts > 0 {
			result.AttemptsRemaining = entry.MaxAttempts - slot.Attempts
		}

		if !correct {
			return nil
		}

		completed := s.now()
		rec.LegacyCompleted.Set(kind)
		slot.CompletedAt = &completed
		delta = rewards.Calculate(series.Rewards, kind, slot.HintsUsed)
		slot.BitsAwarded = delta.Bits
		result.Reward = delta

		if rec.CompletedAt == nil && seriesComplete(series, defs, rec) {
			rec.CompletedAt = &completed
			seriesJustCompleted = true
		}
		result.SeriesCompleted = rec.CompletedAt != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Correct {
		s.applyReward(ctx, studentID, classroomID, delta, fmt.Sprintf("challenge %q completed", entry.Title))
	}
	if seriesJustCompleted {
		s.finishSeries(ctx, series, studentID, classroomID)
	}
	return &result, nil
}

// LegacyArtifact renders the downloadable artifact for a legacy challenge.
// Rendering is expensive, so concurrent requests for the same token are
// collapsed: the loser gets a transient error instead of duplicate work.
func (s *ChallengeService) LegacyArtifact(ctx context.Context, classroomID, studentID int64, kind int) ([]byte, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	entry, err := s.legacyEntry(series, kind)
	if err != nil {
		return nil, err
	}
	if !entry.UsesArtifact {
		return nil, apperr.NotFound("challenge has no artifact")
	}

	rec, err := s.records.GetRecord(series.ID, studentID)
	if err != nil {
		return nil, err
	}

	key := rec.Token + ":" + strconv.Itoa(kind)
	if !s.artifactLocks.TryAcquire(key) {
		return nil, apperr.Transient("artifact is being generated, try again shortly", nil)
	}
	defer s.artifactLocks.Release(key)

	seedHex := legacySeed(studentID, entry.Kind, series.Salt)
	content, err := entry.Generate(rec.Token, seedHex)
	if err != nil {
		return nil, fmt.Errorf("failed to derive artifact content: %w", err)
	}
	return s.renderer.Render(content.ExpectedAnswer, seedHex)
}

// PublicState is the full sanitized progress view for one student
type PublicState struct {
	SeriesID    int64                `json:"seriesId"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	SeriesType  string               `json:"seriesType"`
	Token       string               `json:"token"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	Legacy      []LegacyView         `json:"legacy,omitempty"`
	Custom      []CustomProgressView `json:"custom,omitempty"`
	Progress    int                  `json:"progress"`
	Total       int                  `json:"total"`
	Completed   bool                 `json:"completed"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}

// GetPublicState assembles the student's sanitized view of the whole series.
// Generated display data is included only for started challenges; expected
// answers, stored hashes and locked hints never appear.
func (s *ChallengeService) GetPublicState(ctx context.Context, classroomID, studentID int64) (*PublicState, error) {
	series, err := s.activeSeries(classroomID)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetRecord(series.ID, studentID)
	if err != nil {
		return nil, err
	}
	defs, err := s.series.ListChallenges(series.ID)
	if err != nil {
		return nil, err
	}

	state := &PublicState{
		SeriesID:    series.ID,
		Title:       series.Title,
		Description: series.Description,
		SeriesType:  string(series.SeriesType),
		Token:       rec.Token,
		DueDate:     series.DueDate,
		Progress:    rec.Progress(),
		Completed:   rec.CompletedAt != nil,
		CompletedAt: rec.CompletedAt,
	}

	for _, kind := range series.LegacyKinds {
		entry, ok := generator.Legacy(generator.LegacyKind(kind))
		if !ok || !series.Rewards.Visible[kind] {
			continue
		}
		slot := rec.LegacySlots[kind]
		state.Legacy = append(state.Legacy, LegacyView{
			Kind:        kind,
			Title:       entry.Title,
			Completed:   rec.LegacyCompleted.Has(kind),
			CompletedAt: slot.CompletedAt,
			Attempts:    slot.Attempts,
			MaxAttempts: entry.MaxAttempts,
			HintsUsed:   slot.HintsUsed,
			HintsTotal:  len(entry.Hints),
			HasArtifact: entry.UsesArtifact,
		})
	}

	for i := range defs {
		def := &defs[i]
		if !def.IsVisible {
			continue
		}
		v := customView(def, rec.CustomProgress(def.ID))
		attachments, err := s.series.ListAttachments(def.ID)
		if err != nil {
			return nil, err
		}
		v.Attachments = attachments
		state.Custom = append(state.Custom, v)
	}

	state.Total = len(state.Legacy) + len(state.Custom)
	return state, nil
}

// seriesComplete reports whether every included challenge is done. An empty
// series is never complete.
func seriesComplete(series *models.ChallengeSeries, defs []models.CustomChallengeDefinition, rec *models.StudentChallengeRecord) bool {
	total := 0

	for _, kind := range series.LegacyKinds {
		total++
		if !rec.LegacyCompleted.Has(kind) {
			return false
		}
	}
	for i := range defs {
		if !defs[i].IsVisible {
			continue
		}
		total++
		p := rec.CustomProgress(defs[i].ID)
		if p == nil || !p.Completed {
			return false
		}
	}

	return total > 0
}

// applyReward hands a computed delta to the external ledgers. Credit failures
// are logged, not surfaced: the completion is already durable and a retry
// would double-award.
func (s *ChallengeService) applyReward(ctx context.Context, studentID, classroomID int64, delta rewards.Delta, reason string) {
	if delta.IsZero() {
		return
	}
	if delta.Bits > 0 {
		if _, err := s.ledger.Credit(ctx, studentID, classroomID, delta.Bits, reason); err != nil {
			log.Printf("Ledger credit failed: student=%d amount=%d err=%v", studentID, delta.Bits, err)
		}
		if err := s.xp.Award(ctx, studentID, classroomID, delta.Bits, reason); err != nil {
			log.Printf("XP award failed: student=%d err=%v", studentID, err)
		}
	}
	if delta.Multiplier != 0 || delta.Luck != 0 || delta.Discount != 0 || delta.Shield {
		if err := s.notifier.Notify(ctx, Notification{
			UserID:  studentID,
			Kind:    "stat-change",
			Subject: "Your stats have changed!",
			Message: reason,
		}); err != nil {
			log.Printf("Stat-change notification failed: student=%d err=%v", studentID, err)
		}
	}
}

// finishSeries applies the one-time flat grants and sends the completion
// notification after a student's last outstanding challenge resolves.
func (s *ChallengeService) finishSeries(ctx context.Context, series *models.ChallengeSeries, studentID, classroomID int64) {
	flat := rewards.SeriesCompletion(series.Rewards)
	s.applyReward(ctx, studentID, classroomID, flat, fmt.Sprintf("series %q completed", series.Title))

	if err := s.notifier.Notify(ctx, Notification{
		UserID:  studentID,
		Kind:    "series-completed",
		Subject: "Challenge series completed!",
		Message: fmt.Sprintf("You have completed every challenge in %q. Well done!", series.Title),
	}); err != nil {
		log.Printf("Series-completion notification failed: student=%d err=%v", studentID, err)
	}
}
