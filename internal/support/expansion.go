// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package support

import (
	"github.com/pdiddy/support-engine/pkg/types"
)

// DefaultMaxQueryTerms caps the number of clauses in an expansion query.
const DefaultMaxQueryTerms = 64

// Clause is one weighted disjunct of an expansion query.
type Clause struct {
	Field  string
	Term   string
	Weight float64
}

// ExpansionQuery is a weighted disjunction over index fields, built from a
// base query's tokens plus the top entries of a weight distribution. It is
// consumed exactly once by retrieval and then discarded.
type ExpansionQuery struct {
	Clauses []Clause
}

// IsEmpty reports whether the query has no clauses. Callers must skip
// retrieval for empty queries rather than issue them.
func (q ExpansionQuery) IsEmpty() bool {
	return len(q.Clauses) == 0
}

// ExpansionOptions adjusts expansion query construction.
type ExpansionOptions struct {
	// OmitQueryTerms skips the base query's own tokens entirely.
	OmitQueryTerms bool

	// TextField is the index field the term clauses target (default "text").
	TextField string

	// EntityField, when set, additionally emits each entity-valued feature
	// as an exact keyword clause on this field.
	EntityField string

	// MaxTerms caps the total clause count (default DefaultMaxQueryTerms).
	MaxTerms int
}

// BuildExpansionQuery converts a base query string plus the top slice of a
// weight distribution (already sorted by descending weight) into a weighted
// disjunctive query. Base tokens carry weight 1.0. Features are taken from
// the front of top until the term budget (MaxTerms minus base token count)
// is exhausted; a multi-word feature key fans out into one clause per
// constituent word, each sharing the feature's full weight.
func BuildExpansionQuery(baseQuery string, top []WeightedFeature, opts ExpansionOptions) ExpansionQuery {
	field := opts.TextField
	if field == "" {
		field = "text"
	}
	maxTerms := opts.MaxTerms
	if maxTerms <= 0 {
		maxTerms = DefaultMaxQueryTerms
	}

	var q ExpansionQuery

	if !opts.OmitQueryTerms {
		for _, tok := range NormalizeTerms(baseQuery) {
			if len(q.Clauses) >= maxTerms {
				break
			}
			q.Clauses = append(q.Clauses, Clause{Field: field, Term: tok, Weight: 1.0})
		}
	}

	budget := maxTerms - len(q.Clauses)
	groups := len(top)
	if groups > budget {
		groups = budget
	}

	for _, feature := range top[:groups] {
		for _, word := range featureWords(feature.Key) {
			if len(q.Clauses) >= maxTerms {
				return q
			}
			q.Clauses = append(q.Clauses, Clause{Field: field, Term: word, Weight: feature.Weight})
		}
		if opts.EntityField != "" {
			if _, _, ok := types.SplitEntityID(feature.Key); ok {
				if len(q.Clauses) >= maxTerms {
					return q
				}
				q.Clauses = append(q.Clauses, Clause{Field: opts.EntityField, Term: feature.Key, Weight: feature.Weight})
			}
		}
	}

	return q
}

// featureWords tokenizes a feature key the way the index analyzer would:
// entity identifiers contribute their title words, plain keys their own
// words, with underscore and percent encoding treated as spaces.
func featureWords(key string) []string {
	return NormalizeTerms(types.EntityTitle(key))
}
