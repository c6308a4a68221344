package fingerprint

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/robalyx/imagegate/internal/database/types"
)

// ParseDataURL splits a "data:<mime>;base64,<payload>" envelope into its MIME
// type and decoded bytes. Only allow-listed image types are accepted.
func ParseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data URL scheme", types.ErrValidation)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data URL payload", types.ErrValidation)
	}

	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: data URL must be base64 encoded", types.ErrValidation)
	}

	mimeType = strings.ToLower(mimeType)
	if !IsSupportedMIME(mimeType) {
		return "", nil, fmt.Errorf("%w: unsupported mime type %q", types.ErrValidation, mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 payload: %w", types.ErrValidation, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty image payload", types.ErrValidation)
	}

	return mimeType, data, nil
}
