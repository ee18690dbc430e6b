package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"classquest/internal/apperr"
	"classquest/internal/models"
	"classquest/internal/seed"
	"classquest/internal/verify"
)

type seriesEnv struct {
	svc      *SeriesService
	series   *fakeSeriesStore
	records  *fakeRecordStore
	notifier *capturingNotifier
}

func newSeriesEnv(t *testing.T) *seriesEnv {
	t.Helper()
	seriesStore := newFakeSeriesStore()
	recordStore := newFakeRecordStore()
	notifier := &capturingNotifier{}
	svc := NewSeriesService(seriesStore, recordStore, notifier, t.TempDir(), 1<<20, 6)
	return &seriesEnv{svc: svc, series: seriesStore, records: recordStore, notifier: notifier}
}

func mixedSeriesInput() SeriesInput {
	return SeriesInput{
		Title:       "Spring Quest",
		SeriesType:  models.SeriesTypeMixed,
		LegacyKinds: []int{0, 1},
		IsVisible:   true,
	}
}

func (e *seriesEnv) createConfigured(t *testing.T) *models.ChallengeSeries {
	t.Helper()
	ctx := context.Background()
	series, err := e.svc.CreateSeries(ctx, testTeacher, testClassroom, mixedSeriesInput())
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}
	series, err = e.svc.ConfigureSeries(ctx, testTeacher, series.ID, mixedSeriesInput())
	if err != nil {
		t.Fatalf("ConfigureSeries() error = %v", err)
	}
	return series
}

func TestCreateSeriesValidation(t *testing.T) {
	tests := []struct {
		name string
		in   SeriesInput
	}{
		{"missing title", SeriesInput{SeriesType: models.SeriesTypeMixed}},
		{"unknown type", SeriesInput{Title: "Q", SeriesType: "bonus"}},
		{"unknown legacy kind", SeriesInput{Title: "Q", SeriesType: models.SeriesTypeLegacy, LegacyKinds: []int{9}}},
		{"negative legacy kind", SeriesInput{Title: "Q", SeriesType: models.SeriesTypeLegacy, LegacyKinds: []int{-1}}},
		{"duplicate legacy kind", SeriesInput{Title: "Q", SeriesType: models.SeriesTypeLegacy, LegacyKinds: []int{2, 2}}},
		{"custom-only series with fixed kinds", SeriesInput{Title: "Q", SeriesType: models.SeriesTypeCustom, LegacyKinds: []int{0}}},
	}

	env := newSeriesEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateSeries(context.Background(), testTeacher, testClassroom, tt.in)
			if !apperr.IsValidation(err) {
				t.Errorf("CreateSeries() error = %v, want validation", err)
			}
		})
	}
}

func TestCreateSeriesDefaults(t *testing.T) {
	env := newSeriesEnv(t)

	series, err := env.svc.CreateSeries(context.Background(), testTeacher, testClassroom, mixedSeriesInput())
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	if series.IsActive || series.IsConfigured {
		t.Error("new series should be inactive and unconfigured")
	}
	if len(series.Salt) != 32 {
		t.Errorf("salt length = %d, want 32 hex characters", len(series.Salt))
	}
	if series.Rewards.HintPenaltyPercent != 25 {
		t.Errorf("HintPenaltyPercent = %d, want the default 25", series.Rewards.HintPenaltyPercent)
	}

	// Salts are drawn fresh per series
	other, err := env.svc.CreateSeries(context.Background(), testTeacher, testClassroom+1, mixedSeriesInput())
	if err != nil {
		t.Fatalf("second CreateSeries() error = %v", err)
	}
	if other.Salt == series.Salt {
		t.Error("two series share a salt")
	}
}

func TestOwnershipEnforced(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()
	otherTeacher := testTeacher + 1

	if _, err := env.svc.ConfigureSeries(ctx, otherTeacher, series.ID, mixedSeriesInput()); !apperr.IsForbidden(err) {
		t.Errorf("ConfigureSeries() by non-creator error = %v, want forbidden", err)
	}
	if _, err := env.svc.ActivateSeries(ctx, otherTeacher, series.ID, nil); !apperr.IsForbidden(err) {
		t.Errorf("ActivateSeries() by non-creator error = %v, want forbidden", err)
	}
	if err := env.svc.DeleteSeries(ctx, otherTeacher, series.ID); !apperr.IsForbidden(err) {
		t.Errorf("DeleteSeries() by non-creator error = %v, want forbidden", err)
	}
}

func TestActivateSeriesRequiresConfiguration(t *testing.T) {
	env := newSeriesEnv(t)

	series, err := env.svc.CreateSeries(context.Background(), testTeacher, testClassroom, mixedSeriesInput())
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	_, err = env.svc.ActivateSeries(context.Background(), testTeacher, series.ID, []int64{testStudent})
	if !apperr.IsConflict(err) {
		t.Errorf("ActivateSeries() before configuration error = %v, want conflict", err)
	}
}

func TestActivateSeriesProvisionsRecords(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()
	students := []int64{7, 8, 9}

	activated, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, students)
	if err != nil {
		t.Fatalf("ActivateSeries() error = %v", err)
	}
	if !activated.IsActive {
		t.Error("series should be active after activation")
	}

	tokens := make(map[string]bool)
	for _, studentID := range students {
		rec, err := env.records.GetRecord(series.ID, studentID)
		if err != nil {
			t.Fatalf("GetRecord(%d) error = %v", studentID, err)
		}
		if len(rec.Token) != 6 {
			t.Errorf("token %q length = %d, want 6", rec.Token, len(rec.Token))
		}
		if tokens[rec.Token] {
			t.Errorf("token %q issued twice", rec.Token)
		}
		tokens[rec.Token] = true

		// The password artifact is the bcrypt of the seed-derived plaintext
		plaintext := seed.Derive(fmt.Sprintf("%d", studentID), "password", series.Salt)[:12]
		if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(plaintext)); err != nil {
			t.Errorf("password hash for student %d does not match the derived plaintext", studentID)
		}
	}
}

func TestActivateSeriesIdempotent(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	if _, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, []int64{testStudent}); err != nil {
		t.Fatalf("ActivateSeries() error = %v", err)
	}
	before, _ := env.records.GetRecord(series.ID, testStudent)

	// Re-activation with an extra student keeps existing records untouched
	if _, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, []int64{testStudent, testStudent + 1}); err != nil {
		t.Fatalf("second ActivateSeries() error = %v", err)
	}
	after, _ := env.records.GetRecord(series.ID, testStudent)
	if after.Token != before.Token || after.PasswordHash != before.PasswordHash {
		t.Error("re-activation replaced an existing student's credentials")
	}
	if _, err := env.records.GetRecord(series.ID, testStudent+1); err != nil {
		t.Errorf("late student not provisioned: %v", err)
	}
}

func TestAssignStudent(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	rec, err := env.svc.AssignStudent(ctx, testTeacher, series.ID, testStudent)
	if err != nil {
		t.Fatalf("AssignStudent() error = %v", err)
	}
	if rec.Token == "" {
		t.Error("assigned student should carry a token")
	}

	_, err = env.svc.AssignStudent(ctx, testTeacher, series.ID, testStudent)
	if !apperr.IsConflict(err) {
		t.Errorf("second AssignStudent() error = %v, want conflict", err)
	}
}

func TestCreateCustomChallenge(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	in := ChallengeInput{
		Title:        "Decode the Callsign",
		TemplateType: models.TemplateCipher,
		Bits:         100,
		IsVisible:    true,
	}

	first, err := env.svc.CreateCustomChallenge(ctx, testTeacher, series.ID, in)
	if err != nil {
		t.Fatalf("CreateCustomChallenge() error = %v", err)
	}
	if first.DisplayOrder != 0 {
		t.Errorf("DisplayOrder = %d, want 0", first.DisplayOrder)
	}
	if first.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want default 3", first.MaxAttempts)
	}

	second, err := env.svc.CreateCustomChallenge(ctx, testTeacher, series.ID, in)
	if err != nil {
		t.Fatalf("second CreateCustomChallenge() error = %v", err)
	}
	if second.DisplayOrder != 1 {
		t.Errorf("second DisplayOrder = %d, want 1", second.DisplayOrder)
	}
}

func TestCreateCustomChallengeValidation(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ChallengeInput
	}{
		{"missing title", ChallengeInput{TemplateType: models.TemplateCipher}},
		{"unknown template", ChallengeInput{Title: "Q", TemplateType: "riddle"}},
		{"bad cipher scheme", ChallengeInput{Title: "Q", TemplateType: models.TemplateCipher, TemplateConfig: map[string]any{"scheme": "enigma"}}},
		{"passcode without answer", ChallengeInput{Title: "Q", TemplateType: models.TemplatePasscode}},
		{"penalty out of range", ChallengeInput{Title: "Q", TemplateType: models.TemplateCipher, HintPenaltyPercent: 150}},
		{"negative bits", ChallengeInput{Title: "Q", TemplateType: models.TemplateCipher, Bits: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateCustomChallenge(ctx, testTeacher, series.ID, tt.in)
			if !apperr.IsValidation(err) {
				t.Errorf("CreateCustomChallenge() error = %v, want validation", err)
			}
		})
	}
}

func TestLegacyOnlySeriesRejectsCustomChallenges(t *testing.T) {
	env := newSeriesEnv(t)
	ctx := context.Background()

	in := mixedSeriesInput()
	in.SeriesType = models.SeriesTypeLegacy
	series, err := env.svc.CreateSeries(ctx, testTeacher, testClassroom, in)
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	_, err = env.svc.CreateCustomChallenge(ctx, testTeacher, series.ID, ChallengeInput{
		Title:        "Q",
		TemplateType: models.TemplateCipher,
	})
	if !apperr.IsConflict(err) {
		t.Errorf("CreateCustomChallenge() on legacy-only series error = %v, want conflict", err)
	}
}

func TestPasscodeAnswerStoredAsHash(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)

	def, err := env.svc.CreateCustomChallenge(context.Background(), testTeacher, series.ID, ChallengeInput{
		Title:        "Door Code",
		TemplateType: models.TemplatePasscode,
		Answer:       "open sesame",
	})
	if err != nil {
		t.Fatalf("CreateCustomChallenge() error = %v", err)
	}

	if def.AnswerHash == "" || strings.Contains(def.AnswerHash, "open sesame") {
		t.Fatalf("AnswerHash = %q, want a hash that never contains the plaintext", def.AnswerHash)
	}
	if !verify.Passcode("Open Sesame", def.AnswerHash) {
		t.Error("stored hash should verify the normalized passcode")
	}
	if verify.Passcode("wrong", def.AnswerHash) {
		t.Error("stored hash verified a wrong passcode")
	}
}

func TestReorderCustomChallenges(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	in := ChallengeInput{Title: "Q", TemplateType: models.TemplateCipher}
	var ids []int64
	for i := 0; i < 3; i++ {
		def, err := env.svc.CreateCustomChallenge(ctx, testTeacher, series.ID, in)
		if err != nil {
			t.Fatalf("CreateCustomChallenge() error = %v", err)
		}
		ids = append(ids, def.ID)
	}

	if err := env.svc.ReorderCustomChallenges(ctx, testTeacher, series.ID, []int64{ids[0]}); !apperr.IsValidation(err) {
		t.Errorf("short ordering error = %v, want validation", err)
	}
	if err := env.svc.ReorderCustomChallenges(ctx, testTeacher, series.ID, []int64{ids[0], ids[1], 999}); !apperr.IsValidation(err) {
		t.Errorf("unknown id error = %v, want validation", err)
	}
	if err := env.svc.ReorderCustomChallenges(ctx, testTeacher, series.ID, []int64{ids[0], ids[1], ids[1]}); !apperr.IsValidation(err) {
		t.Errorf("duplicate id error = %v, want validation", err)
	}

	if err := env.svc.ReorderCustomChallenges(ctx, testTeacher, series.ID, []int64{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("ReorderCustomChallenges() error = %v", err)
	}
	listed, _ := env.series.ListChallenges(series.ID)
	if len(listed) != 3 || listed[0].ID != ids[2] || listed[1].ID != ids[0] || listed[2].ID != ids[1] {
		t.Errorf("order after reorder = %v, want [%d %d %d]", listed, ids[2], ids[0], ids[1])
	}
}

func TestUpdateRewardSettingsValidation(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	bad := models.DefaultRewardSettings()
	bad.HintPenaltyPercent = 120
	if _, err := env.svc.UpdateRewardSettings(ctx, testTeacher, series.ID, bad); !apperr.IsValidation(err) {
		t.Errorf("penalty 120 error = %v, want validation", err)
	}

	bad = models.DefaultRewardSettings()
	bad.BitsMode = "weekly"
	if _, err := env.svc.UpdateRewardSettings(ctx, testTeacher, series.ID, bad); !apperr.IsValidation(err) {
		t.Errorf("unknown mode error = %v, want validation", err)
	}

	bad = models.DefaultRewardSettings()
	bad.Bits[3] = -10
	if _, err := env.svc.UpdateRewardSettings(ctx, testTeacher, series.ID, bad); !apperr.IsValidation(err) {
		t.Errorf("negative bits error = %v, want validation", err)
	}

	good := models.DefaultRewardSettings()
	good.Bits[0] = 250
	good.MaxHints = 1
	updated, err := env.svc.UpdateRewardSettings(ctx, testTeacher, series.ID, good)
	if err != nil {
		t.Fatalf("UpdateRewardSettings() error = %v", err)
	}
	if updated.Rewards.Bits[0] != 250 || updated.Rewards.MaxHints != 1 {
		t.Errorf("settings not applied: %+v", updated.Rewards)
	}
}

func TestResetStudentPreservesCredentials(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	if _, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, []int64{testStudent}); err != nil {
		t.Fatalf("ActivateSeries() error = %v", err)
	}

	// Simulate progress
	_, err := env.records.Mutate(series.ID, testStudent, func(rec *models.StudentChallengeRecord) error {
		rec.LegacyCompleted.Set(0)
		rec.LegacySlots[0].Attempts = 2
		rec.Custom = append(rec.Custom, models.CustomChallengeProgress{ChallengeID: 42, Completed: true})
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	before, _ := env.records.GetRecord(series.ID, testStudent)

	if err := env.svc.ResetStudent(ctx, testTeacher, series.ID, testStudent); err != nil {
		t.Fatalf("ResetStudent() error = %v", err)
	}

	after, _ := env.records.GetRecord(series.ID, testStudent)
	if after.LegacyCompleted.Count() != 0 || after.LegacySlots[0].Attempts != 0 || len(after.Custom) != 0 || after.CompletedAt != nil {
		t.Errorf("progress not cleared: %+v", after)
	}
	if after.Token != before.Token || after.PasswordHash != before.PasswordHash {
		t.Error("reset must preserve the student's token and password artifact")
	}
	if len(env.notifier.ofKind("progress-reset")) != 1 {
		t.Error("reset should notify the student once")
	}
}

func TestResetSingleChallenges(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	if _, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, []int64{testStudent}); err != nil {
		t.Fatalf("ActivateSeries() error = %v", err)
	}
	_, err := env.records.Mutate(series.ID, testStudent, func(rec *models.StudentChallengeRecord) error {
		rec.LegacyCompleted.Set(0)
		rec.LegacySlots[0].HintsUsed = 1
		rec.Custom = append(rec.Custom,
			models.CustomChallengeProgress{ChallengeID: 42, Completed: true},
			models.CustomChallengeProgress{ChallengeID: 43, Attempts: 1},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if err := env.svc.ResetLegacyChallenge(ctx, testTeacher, series.ID, testStudent, 0); err != nil {
		t.Fatalf("ResetLegacyChallenge() error = %v", err)
	}
	if err := env.svc.ResetLegacyChallenge(ctx, testTeacher, series.ID, testStudent, 99); !apperr.IsValidation(err) {
		t.Errorf("unknown kind error = %v, want validation", err)
	}
	if err := env.svc.ResetCustomChallenge(ctx, testTeacher, series.ID, testStudent, 42); err != nil {
		t.Fatalf("ResetCustomChallenge() error = %v", err)
	}

	rec, _ := env.records.GetRecord(series.ID, testStudent)
	if rec.LegacyCompleted.Has(0) || rec.LegacySlots[0].HintsUsed != 0 {
		t.Error("legacy slot not cleared")
	}
	if rec.CustomProgress(42) != nil {
		t.Error("custom challenge progress not removed")
	}
	if rec.CustomProgress(43) == nil {
		t.Error("untouched custom challenge progress was removed")
	}
}

func TestProgressOverview(t *testing.T) {
	env := newSeriesEnv(t)
	series := env.createConfigured(t)
	ctx := context.Background()

	if _, err := env.svc.ActivateSeries(ctx, testTeacher, series.ID, []int64{7, 8}); err != nil {
		t.Fatalf("ActivateSeries() error = %v", err)
	}
	_, err := env.records.Mutate(series.ID, 7, func(rec *models.StudentChallengeRecord) error {
		rec.LegacyCompleted.Set(0)
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	summaries, err := env.svc.ProgressOverview(ctx, testTeacher, series.ID)
	if err != nil {
		t.Fatalf("ProgressOverview() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}

	byStudent := make(map[int64]RecordSummary)
	for _, s := range summaries {
		byStudent[s.StudentID] = s
	}
	if byStudent[7].Progress != 1 {
		t.Errorf("student 7 progress = %d, want 1", byStudent[7].Progress)
	}
	if byStudent[8].Progress != 0 {
		t.Errorf("student 8 progress = %d, want 0", byStudent[8].Progress)
	}
}
