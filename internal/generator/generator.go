package generator

import (
	"fmt"
	"strings"

	"classquest/internal/models"
)

// Content is the output of a template generator: the payload shown to the
// student, the expected answer, and the metadata the template discloses.
// Metadata never contains the answer.
type Content struct {
	DisplayData    string
	ExpectedAnswer string
	Metadata       map[string]string
}

// Generator produces puzzle content deterministically from (config, seed).
// The same inputs always yield the same output, so callers only need to
// store the seed, never the generator's internal randomness.
type Generator interface {
	Type() models.TemplateType
	Generate(cfg map[string]any, seedHex string) (*Content, error)
	ValidateConfig(cfg map[string]any) []string
}

var registry = map[models.TemplateType]Generator{
	models.TemplateCipher:        &cipherGenerator{},
	models.TemplateHash:          &hashGenerator{},
	models.TemplateHiddenMessage: &hiddenMessageGenerator{},
	models.TemplatePatternFind:   &patternFindGenerator{},
	models.TemplatePasscode:      &passcodeGenerator{},
}

// For returns the generator registered for a template type
func For(t models.TemplateType) (Generator, bool) {
	g, ok := registry[t]
	return g, ok
}

// ValidateConfig checks teacher-supplied configuration for a template type
func ValidateConfig(t models.TemplateType, cfg map[string]any) []string {
	g, ok := registry[t]
	if !ok {
		return []string{fmt.Sprintf("templateType: unknown type %q", t)}
	}
	return g.ValidateConfig(cfg)
}

// Generate produces content for a template type
func Generate(t models.TemplateType, cfg map[string]any, seedHex string) (*Content, error) {
	g, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown template type %q", t)
	}
	return g.Generate(cfg, seedHex)
}

// normalize matches the verification engine's default answer policy
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cfgString reads an optional string config value
func cfgString(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// cfgInt reads an optional integer config value. JSON decoding produces
// float64 for numbers, so both are accepted.
func cfgInt(cfg map[string]any, key string, def int) int {
	if cfg == nil {
		return def
	}
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// cfgStrings reads an optional string-list config value
func cfgStrings(cfg map[string]any, key string) []string {
	if cfg == nil {
		return nil
	}
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
