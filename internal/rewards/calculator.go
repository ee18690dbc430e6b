package rewards

import (
	"math"

	"classquest/internal/models"
)

// Delta is the reward change handed to the external currency/XP ledger.
// This package never mutates a balance directly.
type Delta struct {
	Bits       int
	Multiplier float64
	Luck       float64 // compounds multiplicatively; 0 means no change
	Discount   float64
	Shield     bool
}

// IsZero reports whether the delta grants nothing
func (d Delta) IsZero() bool {
	return d.Bits == 0 && d.Multiplier == 0 && d.Luck == 0 && d.Discount == 0 && !d.Shield
}

// Bits applies the hint penalty to a base bit value. The effective penalty
// fraction is hintPenaltyPercent x hintsUsed / 100, capped at 80%, so a
// student always keeps at least round(base x 0.2).
func Bits(base, hintPenaltyPercent, hintsUsed int) int {
	if base <= 0 {
		return 0
	}
	if hintsUsed <= 0 || hintPenaltyPercent <= 0 {
		return base
	}
	penalty := float64(hintPenaltyPercent) * float64(hintsUsed) / 100
	if penalty > models.HintPenaltyCap {
		penalty = models.HintPenaltyCap
	}
	return int(math.Round(float64(base) * (1 - penalty)))
}

// Calculate computes the reward delta for completing the legacy challenge at
// the given kind index. Stat grants apply only when the series' aggregation
// mode for that stat is per-challenge; flat-mode stats are granted once at
// full-series completion via SeriesCompletion.
func Calculate(s models.RewardSettings, kind, hintsUsed int) Delta {
	if kind < 0 || kind >= models.LegacySlots {
		return Delta{}
	}

	var d Delta

	if s.BitsMode == models.RewardModePerChallenge {
		used := hintsUsed
		if !s.HintsEnabled[kind] {
			used = 0
		}
		d.Bits = Bits(s.Bits[kind], s.HintPenaltyPercent, used)
	}
	if s.MultiplierMode == models.RewardModePerChallenge {
		d.Multiplier = s.Multiplier[kind]
	}
	if s.LuckMode == models.RewardModePerChallenge {
		d.Luck = s.Luck[kind]
	}
	if s.DiscountMode == models.RewardModePerChallenge {
		d.Discount = s.Discount[kind]
	}
	if s.ShieldMode == models.RewardModePerChallenge {
		d.Shield = s.Shield[kind]
	}

	return d
}

// CalculateCustom computes the reward delta for completing a custom
// challenge. Custom challenges carry their own reward fields and penalty.
func CalculateCustom(def *models.CustomChallengeDefinition, hintsUsed int) Delta {
	return Delta{
		Bits:       Bits(def.Bits, def.HintPenaltyPercent, hintsUsed),
		Multiplier: def.Multiplier,
		Luck:       def.Luck,
		Discount:   def.Discount,
		Shield:     def.Shield,
	}
}

// SeriesCompletion computes the one-time flat grants applied when the last
// outstanding challenge of a series resolves.
func SeriesCompletion(s models.RewardSettings) Delta {
	var d Delta
	if s.BitsMode == models.RewardModeFlat {
		d.Bits = s.FlatBits
	}
	if s.MultiplierMode == models.RewardModeFlat {
		d.Multiplier = s.FlatMultiplier
	}
	if s.LuckMode == models.RewardModeFlat {
		d.Luck = s.FlatLuck
	}
	if s.DiscountMode == models.RewardModeFlat {
		d.Discount = s.FlatDiscount
	}
	if s.ShieldMode == models.RewardModeFlat {
		d.Shield = s.FlatShield
	}
	return d
}
