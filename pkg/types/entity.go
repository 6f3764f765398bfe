// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// SplitEntityID separates an entity identifier into its namespace prefix and
// title, e.g. "enwiki:Barack_Obama" into ("enwiki", "Barack_Obama"). An
// identifier without the ":" delimiter is malformed; ok is false and callers
// log and skip it rather than treating it as an error.
func SplitEntityID(id string) (namespace, title string, ok bool) {
	i := strings.Index(id, ":")
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// EntityTitle returns the human-readable title of an entity identifier:
// the namespace prefix stripped and underscore/percent space-encoding
// replaced with plain spaces. A malformed identifier is returned with only
// the space-encoding normalized, so the result is always usable as display
// text or a default anchor.
func EntityTitle(id string) string {
	title := id
	if _, t, ok := SplitEntityID(id); ok {
		title = t
	}
	title = strings.ReplaceAll(title, "%20", " ")
	title = strings.ReplaceAll(title, "_", " ")
	return strings.Join(strings.Fields(title), " ")
}

// CanonicalTitle returns the lowercased comparison form of an entity
// identifier's title.
func CanonicalTitle(id string) string {
	return strings.ToLower(EntityTitle(id))
}

// SameEntity reports whether two entity identifiers refer to the same
// entity: a case-insensitive title comparison after stripping the namespace
// prefix and normalizing space-encoding.
func SameEntity(a, b string) bool {
	if a == b {
		return true
	}
	return CanonicalTitle(a) == CanonicalTitle(b)
}
