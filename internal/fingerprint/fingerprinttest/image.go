// Package fingerprinttest builds images with known perceptual hashes for tests.
package fingerprinttest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/require"
)

// ImageForHash returns a 9x8 grayscale image whose dHash equals hash.
func ImageForHash(hash uint64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 9, 8))
	for y := range 8 {
		value := 128
		img.SetGray(0, y, color.Gray{Y: uint8(value)})
		for x := range 8 {
			bit := (hash >> (63 - uint(y*8+x))) & 1
			if bit == 1 {
				value -= 10
			} else {
				value += 10
			}
			img.SetGray(x+1, y, color.Gray{Y: uint8(value)})
		}
	}
	return img
}

// PNGForHash encodes ImageForHash(hash) as PNG.
func PNGForHash(t testing.TB, hash uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, ImageForHash(hash)))
	return buf.Bytes()
}

// WebPForHash encodes ImageForHash(hash) as lossless WebP.
func WebPForHash(t testing.TB, hash uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, nativewebp.Encode(&buf, ImageForHash(hash), nil))
	return buf.Bytes()
}
