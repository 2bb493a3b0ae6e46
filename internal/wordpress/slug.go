package wordpress

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"autopress/internal/dedup"
	"autopress/internal/textutil"
)

const (
	slugHashLen   = 12
	slugTitleLen  = 40
	searchSlugLen = 60
)

// BuildStablePostSlug derives a deterministic slug from the canonical
// source URL and the title, so retries and duplicate checks converge
// on the same document. With no source URL the title alone seeds the
// hash, which stays deterministic.
func BuildStablePostSlug(title, sourceURL string) string {
	seed := dedup.CanonicalURL(sourceURL)
	if seed == "" {
		seed = textutil.Normalize(title)
	}
	sum := sha1.Sum([]byte(seed))
	hash := hex.EncodeToString(sum[:])[:slugHashLen]

	readable := textutil.Slugify(title, slugTitleLen)
	if readable == "" {
		return hash
	}
	return strings.Trim(hash+"-"+readable, "-")
}

// CandidateSlugs lists the slugs a story could have been published
// under, stable slug first.
func CandidateSlugs(title, sourceURL string) []string {
	stable := BuildStablePostSlug(title, sourceURL)
	slugs := []string{stable}
	if readable := textutil.Slugify(title, searchSlugLen); readable != "" && readable != stable {
		slugs = append(slugs, readable)
	}
	return slugs
}
