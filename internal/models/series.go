package models

import "time"

// SeriesType describes which challenge families a series includes
type SeriesType string

const (
	SeriesTypeLegacy SeriesType = "legacy"
	SeriesTypeCustom SeriesType = "custom"
	SeriesTypeMixed  SeriesType = "mixed"
)

// TemplateType is the generation/verification strategy for a custom challenge
type TemplateType string

const (
	TemplatePasscode      TemplateType = "passcode"
	TemplateCipher        TemplateType = "cipher"
	TemplateHash          TemplateType = "hash"
	TemplateHiddenMessage TemplateType = "hidden-message"
	TemplatePatternFind   TemplateType = "pattern-find"
)

// ChallengeSeries is the challenge configuration for one classroom.
// At most one series exists per classroom.
type ChallengeSeries struct {
	ID           int64
	ClassroomID  int64
	CreatorID    int64
	Title        string
	Description  string
	SeriesType   SeriesType
	IsActive     bool
	IsVisible    bool
	IsConfigured bool
	Salt         string // per-series salt mixed into every seed derivation
	LegacyKinds  []int  // included legacy challenge kinds
	Rewards      RewardSettings
	DueDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the series due date has passed
func (s *ChallengeSeries) Expired(now time.Time) bool {
	return s.DueDate != nil && now.After(*s.DueDate)
}

// IncludesLegacy reports whether a legacy kind is part of this series
func (s *ChallengeSeries) IncludesLegacy(kind int) bool {
	for _, k := range s.LegacyKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CustomChallengeDefinition is one custom puzzle within a series
type CustomChallengeDefinition struct {
	ID                 int64
	SeriesID           int64
	DisplayOrder       int // dense, 0-based, unique within the series
	Title              string
	Description        string
	ExternalLink       string
	TemplateType       TemplateType
	TemplateConfig     map[string]any
	AnswerHash         string // passcode type only, bcrypt
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
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether the challenge's own due date has passed
func (d *CustomChallengeDefinition) Expired(now time.Time) bool {
	return d.DueDate != nil && now.After(*d.DueDate)
}

// MaxAttachments is the attachment limit per custom challenge
const MaxAttachments = 5

// Attachment is a teacher-uploaded file tied to a custom challenge
type Attachment struct {
	ID          string // uuid
	ChallengeID int64
	FileName    string
	ContentType string
	Size        int64
	StoragePath string
	UploadedAt  time.Time
}
