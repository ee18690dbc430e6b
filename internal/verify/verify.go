package verify

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"classquest/internal/generator"
	"classquest/internal/models"
)

// Normalize applies the default answer policy: trim and case-fold upward
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Answer compares a submitted answer to the expected answer for a generated
// template type. All generated types share the default policy.
func Answer(templateType models.TemplateType, submitted, expected string) bool {
	switch templateType {
	case models.TemplatePasscode:
		// Passcode answers are never compared in plaintext; see Passcode.
		return false
	default:
		return Normalize(submitted) == Normalize(expected)
	}
}

// Passcode compares a submitted answer against a stored one-way hash
func Passcode(submitted, answerHash string) bool {
	if answerHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(answerHash), []byte(Normalize(submitted)))
	return err == nil
}

// HashPasscode produces the stored hash for a teacher-set passcode answer
func HashPasscode(answer string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(Normalize(answer)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Legacy verifies a legacy challenge answer by recomputing from (token, seed)
// through the kind table. No persisted expected value is consulted.
func Legacy(kind generator.LegacyKind, submitted, token, seedHex string) bool {
	challenge, ok := generator.Legacy(kind)
	if !ok {
		return false
	}
	return challenge.Verify(submitted, token, seedHex)
}
