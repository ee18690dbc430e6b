package artifact

import (
	"bytes"
	"fmt"
	"image/color"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"classquest/internal/seed"
)

const (
	imageWidth  = 640
	imageHeight = 360
)

// ImageRenderer draws the forensics artifact: a noisy PNG with the code
// painted at contrast low enough to need image adjustment to read. Rendering
// is deterministic per seed so a regenerated artifact is identical.
type ImageRenderer struct {
	face font.Face
}

// NewImageRenderer creates a renderer. fontPath may name a TTF file; when
// empty or unreadable the built-in bitmap face is used so rendering never
// depends on deployment assets.
func NewImageRenderer(fontPath string) *ImageRenderer {
	r := &ImageRenderer{face: basicfont.Face7x13}

	if fontPath != "" {
		data, err := os.ReadFile(fontPath)
		if err != nil {
			return r
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			return r
		}
		r.face = truetype.NewFace(parsed, &truetype.Options{Size: 42})
	}

	return r
}

// Render produces the PNG bytes for the given hidden code and seed
func (r *ImageRenderer) Render(code, seedHex string) ([]byte, error) {
	rng := seed.Rand(seedHex + ":artifact")

	dc := gg.NewContext(imageWidth, imageHeight)

	// Mid-gray base so the low-contrast code hides in either direction
	base := 110 + rng.Intn(30)
	dc.SetColor(color.RGBA{uint8(base), uint8(base), uint8(base), 255})
	dc.Clear()

	// Noise rectangles close to the base tone
	for i := 0; i < 400; i++ {
		tone := base - 12 + rng.Intn(24)
		dc.SetColor(color.RGBA{uint8(tone), uint8(tone), uint8(tone), 255})
		x := rng.Float64() * imageWidth
		y := rng.Float64() * imageHeight
		w := 2 + rng.Float64()*14
		h := 2 + rng.Float64()*14
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
	}

	// The code itself, a few tones off the base
	dc.SetFontFace(r.face)
	tone := base + 6
	dc.SetColor(color.RGBA{uint8(tone), uint8(tone), uint8(tone), 255})
	x := float64(imageWidth)/2 + (rng.Float64()-0.5)*120
	y := float64(imageHeight)/2 + (rng.Float64()-0.5)*80
	dc.DrawStringAnchored(code, x, y, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode artifact image: %w", err)
	}
	return buf.Bytes(), nil
}
