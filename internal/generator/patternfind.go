package generator

import (
	"fmt"
	"strconv"
	"strings"

	"classquest/internal/models"
	"classquest/internal/seed"
)

const (
	noiseBlockMinSize     = 500
	noiseBlockMaxSize     = 20000
	noiseBlockDefaultSize = 4000
	patternDefaultPrefix  = "QX"
)

// patternFindGenerator hides a derived alphanumeric pattern at a
// deterministic offset inside a large noise block. Only the full noise block
// and a format hint are disclosed.
type patternFindGenerator struct{}

func (g *patternFindGenerator) Type() models.TemplateType {
	return models.TemplatePatternFind
}

func (g *patternFindGenerator) Generate(cfg map[string]any, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)

	size := cfgInt(cfg, "size", noiseBlockDefaultSize)
	if size < noiseBlockMinSize || size > noiseBlockMaxSize {
		return nil, fmt.Errorf("noise block size %d out of range [%d, %d]", size, noiseBlockMinSize, noiseBlockMaxSize)
	}

	prefix := strings.ToUpper(cfgString(cfg, "prefix"))
	if prefix == "" {
		prefix = patternDefaultPrefix
	}

	pattern := prefix + "-" + randomCode(rng, upperAlnum, 4)

	// Lowercase noise keeps the uppercase pattern findable without making
	// the offset guessable.
	noise := []byte(randomCode(rng, lowerAlnum, size))
	offset := rng.Intn(size - len(pattern))
	copy(noise[offset:], pattern)

	return &Content{
		DisplayData:    string(noise),
		ExpectedAnswer: pattern,
		Metadata: map[string]string{
			"format": prefix + "-????",
			"size":   strconv.Itoa(size),
		},
	}, nil
}

func (g *patternFindGenerator) ValidateConfig(cfg map[string]any) []string {
	var errs []string
	if cfg != nil {
		if _, ok := cfg["size"]; ok {
			size := cfgInt(cfg, "size", -1)
			if size < noiseBlockMinSize || size > noiseBlockMaxSize {
				errs = append(errs, fmt.Sprintf("size: must be between %d and %d", noiseBlockMinSize, noiseBlockMaxSize))
			}
		}
	}
	if prefix := cfgString(cfg, "prefix"); prefix != "" {
		if len(prefix) < 2 || len(prefix) > 4 {
			errs = append(errs, "prefix: must be 2-4 characters")
		}
		for _, r := range strings.ToUpper(prefix) {
			if r < 'A' || r > 'Z' {
				errs = append(errs, "prefix: must contain letters only")
				break
			}
		}
	}
	return errs
}
