// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the support-engine pipeline:
// passages and their entity mentions, entity identifier helpers, and the
// per-stage configuration structs.
package types

// Mention is a single entity mention within a passage. Anchor is the surface
// form that realized the mention; when the corpus carries no distinct surface
// form, Anchor is empty and callers fall back to the entity's title.
type Mention struct {
	// Entity is the mentioned entity's identifier (e.g. "enwiki:Barack_Obama").
	Entity string `json:"entity" yaml:"entity"`

	// Anchor is the span of passage text that realized this mention, if known.
	Anchor string `json:"anchor,omitempty" yaml:"anchor,omitempty"`
}

// AnchorText returns the surface form for the mention, falling back to the
// entity's title when the corpus did not record one.
func (m Mention) AnchorText() string {
	if m.Anchor != "" {
		return m.Anchor
	}
	return EntityTitle(m.Entity)
}

// Passage is one retrievable unit of the collection: an identifier, raw text,
// and the ordered sequence of entity mentions (duplicates allowed, order
// matches mention order). Passages are sourced from the corpus store and are
// never created or mutated by the scoring core.
type Passage struct {
	ID       string    `json:"id" yaml:"id"`
	Text     string    `json:"text" yaml:"text"`
	Mentions []Mention `json:"mentions" yaml:"mentions"`
}

// Entities returns the ordered entity identifier sequence, duplicates
// preserved.
func (p Passage) Entities() []string {
	ids := make([]string, len(p.Mentions))
	for i, m := range p.Mentions {
		ids[i] = m.Entity
	}
	return ids
}

// MentionsEntity reports whether any mention refers to the given entity,
// comparing identifiers after normalization.
func (p Passage) MentionsEntity(entity string) bool {
	for _, m := range p.Mentions {
		if SameEntity(m.Entity, entity) {
			return true
		}
	}
	return false
}
