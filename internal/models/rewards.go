package models

// RewardMode selects between a single flat grant at full-series completion
// and an incremental grant per completed challenge.
type RewardMode string

const (
	RewardModeFlat         RewardMode = "flat"
	RewardModePerChallenge RewardMode = "per-challenge"
)

// HintPenaltyCap is the maximum aggregate penalty fraction applied to bits
const HintPenaltyCap = 0.8

// RewardSettings is the per-series reward configuration for the legacy flow.
// Arrays are indexed by legacy challenge kind.
type RewardSettings struct {
	Bits         [LegacySlots]int
	Multiplier   [LegacySlots]float64
	Luck         [LegacySlots]float64
	Discount     [LegacySlots]float64
	Shield       [LegacySlots]bool
	HintsEnabled [LegacySlots]bool
	Visible      [LegacySlots]bool

	HintPenaltyPercent int
	MaxHints           int

	BitsMode       RewardMode
	MultiplierMode RewardMode
	LuckMode       RewardMode
	DiscountMode   RewardMode
	ShieldMode     RewardMode

	// Flat-mode totals, granted once when the whole series completes
	FlatBits       int
	FlatMultiplier float64
	FlatLuck       float64
	FlatDiscount   float64
	FlatShield     bool
}

// DefaultRewardSettings returns the settings applied when a teacher first
// configures a series.
func DefaultRewardSettings() RewardSettings {
	s := RewardSettings{
		HintPenaltyPercent: 25,
		MaxHints:           2,
		BitsMode:           RewardModePerChallenge,
		MultiplierMode:     RewardModeFlat,
		LuckMode:           RewardModeFlat,
		DiscountMode:       RewardModeFlat,
		ShieldMode:         RewardModeFlat,
		FlatBits:           0,
		FlatMultiplier:     0.5,
		FlatLuck:           1.1,
		FlatDiscount:       5,
		FlatShield:         true,
	}
	for i := 0; i < LegacySlots; i++ {
		s.Bits[i] = 100
		s.HintsEnabled[i] = true
		s.Visible[i] = true
	}
	return s
}
