package generator

import (
	"encoding/base64"
	"fmt"
	"strings"

	"classquest/internal/models"
	"classquest/internal/seed"
)

// hidden-message container modes
const (
	ContainerMetadata = "metadata"
	ContainerFilename = "filename"
)

var cameraMakes = []string{"PixelForge", "Lumica", "OptiCore", "Fotona"}
var cameraModels = []string{"XR-200", "S9 Prime", "Vista 4", "M60"}

// hiddenMessageGenerator embeds the code either into auxiliary image-metadata
// fields (two independent fields, so stripping one still leaves the other) or
// into an encoded synthetic filename. Only the container kind is disclosed.
type hiddenMessageGenerator struct{}

func (g *hiddenMessageGenerator) Type() models.TemplateType {
	return models.TemplateHiddenMessage
}

func (g *hiddenMessageGenerator) Generate(cfg map[string]any, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)

	code := randomCode(rng, upperAlnum, 6)

	mode := cfgString(cfg, "mode")
	if mode == "" {
		if rng.Intn(2) == 0 {
			mode = ContainerMetadata
		} else {
			mode = ContainerFilename
		}
	}

	switch mode {
	case ContainerMetadata:
		make_ := cameraMakes[rng.Intn(len(cameraMakes))]
		model := cameraModels[rng.Intn(len(cameraModels))]
		lines := []string{
			fmt.Sprintf("Make: %s", make_),
			fmt.Sprintf("Model: %s", model),
			fmt.Sprintf("DateTime: 2024:%02d:%02d %02d:%02d:00", 1+rng.Intn(12), 1+rng.Intn(28), rng.Intn(24), rng.Intn(60)),
			fmt.Sprintf("ExposureTime: 1/%d", 60+rng.Intn(940)),
			fmt.Sprintf("FNumber: f/%d.%d", 1+rng.Intn(8), rng.Intn(10)),
			fmt.Sprintf("Software: %s Studio build %s", make_, code),
			fmt.Sprintf("ISOSpeed: %d", 100*(1+rng.Intn(16))),
			fmt.Sprintf("UserComment: calibration ref %s", code),
		}
		return &Content{
			DisplayData:    strings.Join(lines, "\n"),
			ExpectedAnswer: code,
			Metadata:       map[string]string{"container": "image-metadata"},
		}, nil

	case ContainerFilename:
		encoded := base64.RawStdEncoding.EncodeToString([]byte(code))
		files := []string{
			fmt.Sprintf("IMG_%04d.jpg", 1000+rng.Intn(9000)),
			fmt.Sprintf("IMG_%04d.jpg", 1000+rng.Intn(9000)),
			fmt.Sprintf("IMG_%s.jpg", encoded),
			fmt.Sprintf("IMG_%04d.jpg", 1000+rng.Intn(9000)),
		}
		// Deterministic shuffle so the odd one out is not always third
		rng.Shuffle(len(files), func(i, j int) {
			files[i], files[j] = files[j], files[i]
		})
		return &Content{
			DisplayData:    strings.Join(files, "\n"),
			ExpectedAnswer: code,
			Metadata:       map[string]string{"container": "filename", "encoding": "base64"},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported hidden-message mode %q", mode)
	}
}

func (g *hiddenMessageGenerator) ValidateConfig(cfg map[string]any) []string {
	var errs []string
	if mode := cfgString(cfg, "mode"); mode != "" && mode != ContainerMetadata && mode != ContainerFilename {
		errs = append(errs, fmt.Sprintf("mode: must be %q or %q", ContainerMetadata, ContainerFilename))
	}
	return errs
}
