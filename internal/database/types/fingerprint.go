package types

// Fingerprint identifies image content both exactly and perceptually.
type Fingerprint struct {
	ExactDigest      string `bun:",notnull" json:"exactDigest"`      // SHA-256 of the raw bytes, 64 hex chars
	PerceptualHash   string `bun:",notnull" json:"perceptualHash"`   // dHash, 16 hex chars
	PerceptualPrefix string `bun:",notnull" json:"perceptualPrefix"` // First 4 hex chars of the dHash
}
