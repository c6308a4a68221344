// Package fingerprint derives exact and perceptual fingerprints from image bytes.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/robalyx/imagegate/internal/database/types"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// HashWidth and HashHeight define the dHash sampling grid.
	HashWidth  = 9
	HashHeight = 8

	// HashHexLen is the length of an encoded perceptual hash.
	HashHexLen = 16
	// PrefixHexLen is the length of the bucket prefix.
	PrefixHexLen = 4

	// MaxPixels bounds the decoded image size.
	MaxPixels = 50_000_000
)

// Supported MIME types.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWebP = "image/webp"
)

type decodeFunc func(r *bytes.Reader) (image.Image, error)

type decoder struct {
	config func(r *bytes.Reader) (image.Config, error)
	decode decodeFunc
}

var decoders = map[string]decoder{
	MIMEPNG: {
		config: func(r *bytes.Reader) (image.Config, error) { return png.DecodeConfig(r) },
		decode: func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
	},
	MIMEJPEG: {
		config: func(r *bytes.Reader) (image.Config, error) { return jpeg.DecodeConfig(r) },
		decode: func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
	},
	MIMEWebP: {
		config: func(r *bytes.Reader) (image.Config, error) { return webp.DecodeConfig(r) },
		decode: func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) },
	},
}

// IsSupportedMIME reports whether the MIME type is on the allow-list.
func IsSupportedMIME(mimeType string) bool {
	_, ok := decoders[mimeType]
	return ok
}

// Generate computes the fingerprint of the given image bytes.
func Generate(data []byte, mimeType string) (types.Fingerprint, error) {
	img, err := Decode(data, mimeType)
	if err != nil {
		return types.Fingerprint{}, err
	}

	hash := DHash(img)
	return types.Fingerprint{
		ExactDigest:      Digest(data),
		PerceptualHash:   hash,
		PerceptualPrefix: hash[:PrefixHexLen],
	}, nil
}

// Decode decodes data with the decoder registered for mimeType.
func Decode(data []byte, mimeType string) (image.Image, error) {
	dec, ok := decoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported mime type %q", types.ErrValidation, mimeType)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", types.ErrValidation)
	}

	cfg, err := dec.config(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s header: %w", types.ErrDecode, mimeType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", types.ErrDecode, cfg.Width, cfg.Height)
	}

	img, err := dec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", types.ErrDecode, mimeType, err)
	}

	return img, nil
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DHash computes the 64-bit difference hash of img as 16 lowercase hex chars.
// The image is scaled to 9x8 ignoring aspect ratio, and each bit records
// whether a pixel is brighter than its right neighbour, row-major, MSB first.
func DHash(img image.Image) string {
	grid := image.NewRGBA(image.Rect(0, 0, HashWidth, HashHeight))
	draw.CatmullRom.Scale(grid, grid.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	for y := range HashHeight {
		for x := range HashWidth - 1 {
			hash <<= 1
			if luminance(grid.At(x, y)) > luminance(grid.At(x+1, y)) {
				hash |= 1
			}
		}
	}

	return fmt.Sprintf("%016x", hash)
}

func luminance(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}
