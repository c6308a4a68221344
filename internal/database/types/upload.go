package types

import (
	"time"

	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// Upload records a single moderation attempt. Rows are written once and never updated.
type Upload struct {
	ID                string            `bun:",pk"                json:"id"`                        // UUID of the attempt
	UserID            string            `bun:",nullzero"          json:"userId,omitempty"`          // Uploader, empty for anonymous calls
	MIMEType          string            `bun:",notnull"           json:"mimeType"`                  // Declared image type
	Outcome           enum.Outcome      `bun:",notnull"           json:"outcome"`                   // Policy verdict
	MakerTags         []string          `bun:",type:jsonb"        json:"makerTags"`                 // Uploader-declared triggers
	AppliedTriggers   []TriggerScore    `bun:",type:jsonb"        json:"appliedTriggers"`           // Warnings applied to the upload
	SuggestedTriggers []TriggerScore    `bun:",type:jsonb"        json:"suggestedTriggers"`         // Warnings offered to the uploader
	ForbiddenReasons  []ForbiddenReason `bun:",type:jsonb"        json:"forbiddenReasons"`          // Reasons for a forbidden verdict
	ReviewCaseID      string            `bun:",nullzero"          json:"reviewCaseId,omitempty"`    // Linked review case
	Fingerprint       Fingerprint       `bun:"embed:fp_"          json:"fingerprint"`               // Content fingerprint
	MatchedUploadID   string            `bun:",nullzero"          json:"matchedUploadId,omitempty"` // Upload whose verdict was reused
	MatchDistance     int               `bun:",notnull"           json:"matchDistance"`             // Hamming distance to the match, -1 when classified
	CreatedAt         time.Time         `bun:",notnull"           json:"createdAt"`                 // When the attempt was recorded
}

// IsClassified reports whether the verdict came from the scorers rather than a cache hit.
func (u *Upload) IsClassified() bool {
	return u.MatchedUploadID == ""
}
