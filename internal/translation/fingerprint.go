package translation

import (
	"slices"
	"strings"

	"polyform-sync/pkg/hash"
)

// NormalizeTargets returns the sorted, de-duplicated target set without
// touching the caller's slice.
func NormalizeTargets(targets []string) []string {
	out := slices.Clone(targets)
	slices.Sort(out)
	return slices.Compact(out)
}

// Fingerprint is the cache key for one translation request. It embeds the
// request's version tag and digests of both the texts and the target set, so
// a key never maps to content computed for a different source revision.
func Fingerprint(spaceID, versionTag string, texts, targets []string) string {
	return strings.Join([]string{
		"translation",
		spaceID,
		versionTag,
		hash.Strings(NormalizeTargets(targets)),
		hash.Strings(texts),
	}, ":")
}
