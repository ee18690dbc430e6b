package generator

import (
	"strings"
	"testing"

	"classquest/internal/models"
	"classquest/internal/seed"
)

var generatedTypes = []models.TemplateType{
	models.TemplateCipher,
	models.TemplateHash,
	models.TemplateHiddenMessage,
	models.TemplatePatternFind,
}

func TestGenerateDeterministic(t *testing.T) {
	seedHex := seed.Derive("11", "custom-3", "series-salt")

	for _, templateType := range generatedTypes {
		t.Run(string(templateType), func(t *testing.T) {
			first, err := Generate(templateType, nil, seedHex)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			second, err := Generate(templateType, nil, seedHex)
			if err != nil {
				t.Fatalf("Generate() second call error = %v", err)
			}

			if first.DisplayData != second.DisplayData {
				t.Error("Generate() display data differs between calls with the same seed")
			}
			if first.ExpectedAnswer != second.ExpectedAnswer {
				t.Error("Generate() expected answer differs between calls with the same seed")
			}
		})
	}
}

func TestGenerateVariesBySeed(t *testing.T) {
	a := seed.Derive("11", "custom-3", "series-salt")
	b := seed.Derive("12", "custom-3", "series-salt")

	for _, templateType := range generatedTypes {
		t.Run(string(templateType), func(t *testing.T) {
			first, err := Generate(templateType, nil, a)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			second, err := Generate(templateType, nil, b)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if first.DisplayData == second.DisplayData && first.ExpectedAnswer == second.ExpectedAnswer {
				t.Error("Generate() produced identical content for different seeds")
			}
		})
	}
}

func TestMetadataNeverContainsAnswer(t *testing.T) {
	seedHex := seed.Derive("21", "custom-9", "series-salt")

	for _, templateType := range generatedTypes {
		t.Run(string(templateType), func(t *testing.T) {
			content, err := Generate(templateType, nil, seedHex)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			for key, value := range content.Metadata {
				if strings.Contains(value, content.ExpectedAnswer) {
					t.Errorf("metadata[%s] = %q leaks the expected answer %q", key, value, content.ExpectedAnswer)
				}
			}
		})
	}
}

func TestPasscodeGeneratesNothing(t *testing.T) {
	if _, err := Generate(models.TemplatePasscode, nil, "abcd"); err == nil {
		t.Error("Generate(passcode) should fail: passcode challenges carry no generated content")
	}
}

func TestGenerateUnknownType(t *testing.T) {
	if _, err := Generate(models.TemplateType("riddle"), nil, "abcd"); err == nil {
		t.Error("Generate() should fail for an unknown template type")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name         string
		templateType models.TemplateType
		cfg          map[string]any
		wantErrs     bool
	}{
		{"cipher nil config", models.TemplateCipher, nil, false},
		{"cipher valid scheme", models.TemplateCipher, map[string]any{"scheme": "caesar"}, false},
		{"cipher bad scheme", models.TemplateCipher, map[string]any{"scheme": "enigma"}, true},
		{"cipher empty answers", models.TemplateCipher, map[string]any{"answers": []any{}}, true},
		{"cipher blank answer", models.TemplateCipher, map[string]any{"answers": []any{" "}}, true},
		{"hash valid length", models.TemplateHash, map[string]any{"length": float64(6)}, false},
		{"hash length too small", models.TemplateHash, map[string]any{"length": float64(2)}, true},
		{"hash length too large", models.TemplateHash, map[string]any{"length": float64(40)}, true},
		{"hidden-message valid mode", models.TemplateHiddenMessage, map[string]any{"mode": "filename"}, false},
		{"hidden-message bad mode", models.TemplateHiddenMessage, map[string]any{"mode": "steganography"}, true},
		{"pattern-find valid", models.TemplatePatternFind, map[string]any{"size": float64(1000), "prefix": "AB"}, false},
		{"pattern-find size out of range", models.TemplatePatternFind, map[string]any{"size": float64(10)}, true},
		{"pattern-find bad prefix", models.TemplatePatternFind, map[string]any{"prefix": "A1"}, true},
		{"unknown type", models.TemplateType("riddle"), nil, true},
		{"passcode anything", models.TemplatePasscode, map[string]any{"whatever": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateConfig(tt.templateType, tt.cfg)
			if tt.wantErrs && len(errs) == 0 {
				t.Error("ValidateConfig() = no errors, want at least one")
			}
			if !tt.wantErrs && len(errs) > 0 {
				t.Errorf("ValidateConfig() = %v, want none", errs)
			}
		})
	}
}

func TestPatternFindAnswerInNoise(t *testing.T) {
	seedHex := seed.Derive("5", "custom-1", "salt")
	content, err := Generate(models.TemplatePatternFind, map[string]any{"prefix": "ZZ"}, seedHex)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(content.DisplayData, content.ExpectedAnswer) {
		t.Error("pattern-find noise block does not contain the pattern")
	}
	if !strings.HasPrefix(content.ExpectedAnswer, "ZZ-") {
		t.Errorf("pattern = %q, want prefix ZZ-", content.ExpectedAnswer)
	}
}

func TestHiddenMessageFilenameMode(t *testing.T) {
	seedHex := seed.Derive("5", "custom-2", "salt")
	content, err := Generate(models.TemplateHiddenMessage, map[string]any{"mode": "filename"}, seedHex)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(content.DisplayData, content.ExpectedAnswer) {
		t.Error("filename mode should encode the code, not include it verbatim")
	}
	if len(strings.Split(content.DisplayData, "\n")) != 4 {
		t.Errorf("filename listing should contain 4 entries, got %q", content.DisplayData)
	}
}
