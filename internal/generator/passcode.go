package generator

import (
	"errors"

	"classquest/internal/models"
)

// passcodeGenerator exists so passcode challenges share the config validation
// path. Passcode challenges have no generated content: the teacher sets the
// answer at definition time and only its one-way hash is ever stored.
type passcodeGenerator struct{}

func (g *passcodeGenerator) Type() models.TemplateType {
	return models.TemplatePasscode
}

func (g *passcodeGenerator) Generate(cfg map[string]any, seedHex string) (*Content, error) {
	return nil, errors.New("passcode challenges carry no generated content")
}

func (g *passcodeGenerator) ValidateConfig(cfg map[string]any) []string {
	// The passcode answer travels on the definition itself, not in template
	// config; any config keys here are ignored.
	return nil
}
