// Package idgen centralizes the identifier and preview-token formats used
// across the pipeline and offer reconciliation: fallback listing ids
// (HER-<uuid>), dry-run preview ids (PREVIEW-<uuid>), and credential
// preview tokens (first 6 characters).
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// FallbackListingID synthesizes a listing id when a publish call returns an
// empty one.
func FallbackListingID() string {
	return "HER-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PreviewListingID is used for dry-run terminations.
func PreviewListingID() string {
	return "PREVIEW-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewUUID returns a fresh random UUID string, used wherever the original
// substitutes one for a missing sku or job id.
func NewUUID() string {
	return uuid.NewString()
}

// PreviewToken returns the first n characters of a credential, for logging
// without leaking the full value.
func PreviewToken(token string, n int) string {
	if len(token) <= n {
		return token
	}
	return token[:n]
}
