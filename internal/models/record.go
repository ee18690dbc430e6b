package models

import "time"

// LegacySlots is the number of fixed legacy challenges in a series
const LegacySlots = 7

// LegacyBitset tracks legacy challenge completion as a small fixed bitset.
// Progress is always derived from the set bits, never stored separately.
type LegacyBitset uint8

// Set marks the given legacy kind complete
func (b *LegacyBitset) Set(kind int) {
	if kind >= 0 && kind < LegacySlots {
		*b |= 1 << uint(kind)
	}
}

// Clear unmarks the given legacy kind
func (b *LegacyBitset) Clear(kind int) {
	if kind >= 0 && kind < LegacySlots {
		*b &^= 1 << uint(kind)
	}
}

// Has reports whether the given legacy kind is complete
func (b LegacyBitset) Has(kind int) bool {
	if kind < 0 || kind >= LegacySlots {
		return false
	}
	return b&(1<<uint(kind)) != 0
}

// Count returns the number of completed legacy challenges
func (b LegacyBitset) Count() int {
	count := 0
	for i := 0; i < LegacySlots; i++ {
		if b.Has(i) {
			count++
		}
	}
	return count
}

// GeneratedContent is the immutable per-student puzzle content produced by a
// template generator on first start. It is written at most once and never
// mutated after verification has read it.
type GeneratedContent struct {
	DisplayData    string            `json:"displayData"`
	ExpectedAnswer string            `json:"expectedAnswer"`
	Seed           string            `json:"seed"`
	GeneratedAt    time.Time         `json:"generatedAt"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CustomChallengeProgress is a student's progress through one custom challenge
type CustomChallengeProgress struct {
	ChallengeID   int64             `json:"challengeId"`
	Attempts      int               `json:"attempts"`
	Completed     bool              `json:"completed"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	HintsUsed     int               `json:"hintsUsed"`
	UnlockedHints []string          `json:"unlockedHints,omitempty"`
	Content       *GeneratedContent `json:"content,omitempty"`
	BitsAwarded   int               `json:"bitsAwarded"`
}

// LegacySlotState carries the per-slot legacy progress fields that sit
// alongside the completion bitset.
type LegacySlotState struct {
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Attempts    int        `json:"attempts"`
	HintsUsed   int        `json:"hintsUsed"`
	// Cached expected answer for the slots that persist one. Advisory only:
	// recomputation from seed is the source of truth.
	CachedExpected string `json:"cachedExpected,omitempty"`
	BitsAwarded    int    `json:"bitsAwarded"`
}

// StudentChallengeRecord is the one-per-(student, series) progress record.
// The public token is globally unique and survives teacher resets.
type StudentChallengeRecord struct {
	ID        int64
	SeriesID  int64
	StudentID int64
	Token     string
	// One-way-derived legacy password artifact (bcrypt hash of the derived
	// password; the plaintext is recomputable from the seed).
	PasswordHash    string
	LegacyCompleted LegacyBitset
	LegacySlots     [LegacySlots]LegacySlotState
	Custom          []CustomChallengeProgress
	CompletedAt     *time.Time // series-level completion
	Version         int64      // optimistic concurrency
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CustomProgress returns the progress entry for a challenge, or nil
func (r *StudentChallengeRecord) CustomProgress(challengeID int64) *CustomChallengeProgress {
	for i := range r.Custom {
		if r.Custom[i].ChallengeID == challengeID {
			return &r.Custom[i]
		}
	}
	return nil
}

// Progress is the derived count of completed challenges (legacy + custom)
func (r *StudentChallengeRecord) Progress() int {
	count := r.LegacyCompleted.Count()
	for i := range r.Custom {
		if r.Custom[i].Completed {
			count++
		}
	}
	return count
}
