package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"classquest/internal/models"
	"classquest/internal/seed"
)

const (
	hashCodeMinLength     = 4
	hashCodeMaxLength     = 16
	hashCodeDefaultLength = 8
)

// hashGenerator derives a short alphanumeric code and discloses only its
// one-way hash, the algorithm name and a format hint.
type hashGenerator struct{}

func (g *hashGenerator) Type() models.TemplateType {
	return models.TemplateHash
}

func (g *hashGenerator) Generate(cfg map[string]any, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)

	length := cfgInt(cfg, "length", hashCodeDefaultLength)
	if length < hashCodeMinLength || length > hashCodeMaxLength {
		return nil, fmt.Errorf("hash code length %d out of range [%d, %d]", length, hashCodeMinLength, hashCodeMaxLength)
	}

	code := randomCode(rng, upperAlnum, length)
	digest := sha256.Sum256([]byte(code))

	return &Content{
		DisplayData:    hex.EncodeToString(digest[:]),
		ExpectedAnswer: code,
		Metadata: map[string]string{
			"algorithm": "SHA-256",
			"format":    fmt.Sprintf("%d characters, A-Z and 0-9", length),
		},
	}, nil
}

func (g *hashGenerator) ValidateConfig(cfg map[string]any) []string {
	var errs []string
	if cfg != nil {
		if _, ok := cfg["length"]; ok {
			length := cfgInt(cfg, "length", -1)
			if length < hashCodeMinLength || length > hashCodeMaxLength {
				errs = append(errs, fmt.Sprintf("length: must be between %d and %d", hashCodeMinLength, hashCodeMaxLength))
			}
		}
	}
	return errs
}
