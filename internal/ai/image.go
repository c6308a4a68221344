package ai

import (
	"bytes"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
	"github.com/robalyx/imagegate/internal/fingerprint"
	"golang.org/x/image/draw"
)

// DefaultMaxImageSide bounds the longest side sent to the model.
const DefaultMaxImageSide = 1024

// NormalizeImage decodes the upload, shrinks it so its longest side is at
// most maxSide and re-encodes it as lossless WebP.
func NormalizeImage(data []byte, mimeType string, maxSide int) ([]byte, error) {
	img, err := fingerprint.Decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	if maxSide <= 0 {
		maxSide = DefaultMaxImageSide
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if longest := max(width, height); longest > maxSide {
		width = max(1, width*maxSide/longest)
		height = max(1, height*maxSide/longest)

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
