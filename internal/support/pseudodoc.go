// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package support

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/support-engine/pkg/types"
)

// PassageFetcher resolves a passage identifier to its full record. The
// corpus-backed index implements this; tests supply in-memory fakes.
type PassageFetcher interface {
	GetByID(ctx context.Context, id string) (types.Passage, bool, error)
}

// PseudoDocument is the synthetic context for one target entity: the subset
// of a query's candidate passages that mention the entity, plus the multiset
// of entities (and optionally anchor texts) co-occurring inside that subset.
// A pseudo-document is built fresh per (query, entity) pair and is owned
// exclusively by the unit of work that requested it; it must not be cached
// across entities or queries because the passage pool is query-specific.
type PseudoDocument struct {
	// Entity is the target entity identifier.
	Entity string

	// Passages are the pool passages mentioning Entity, unique by id, in
	// pool order.
	Passages []types.Passage

	// CoOccurring is the multiset of entity identifiers mentioned across
	// Passages, excluding the target and any caller-supplied exclusions.
	// Repeat counts are preserved; several distributions depend on them.
	CoOccurring []string

	// Anchors is the multiset of surface forms for the co-occurring
	// mentions. Populated only when BuildOptions.CollectAnchors is set.
	Anchors []string
}

// PassageIDs returns the identifiers of the pseudo-document's passages in
// pool order.
func (pd *PseudoDocument) PassageIDs() []string {
	ids := make([]string, len(pd.Passages))
	for i, p := range pd.Passages {
		ids[i] = p.ID
	}
	return ids
}

// BuildOptions adjusts pseudo-document construction.
type BuildOptions struct {
	// Exclude lists entities left out of the co-occurrence multiset in
	// addition to the target entity itself.
	Exclude []string

	// CollectAnchors also gathers the surface form of every co-occurring
	// mention, falling back to the entity title when the corpus recorded
	// no distinct anchor.
	CollectAnchors bool
}

// BuildPseudoDocument fetches every candidate passage and keeps those that
// mention the target entity (identifier comparison after normalization).
// It returns nil when no candidate mentions the entity: the caller treats
// that as "no support passage can be produced", not as an error. Candidate
// ids missing from the corpus are reported to diag and skipped; a fetch
// failure aborts the build so the caller can skip the whole unit.
func BuildPseudoDocument(ctx context.Context, entity string, pool []string, fetch PassageFetcher, opts BuildOptions, diag io.Writer) (*PseudoDocument, error) {
	excluded := func(id string) bool {
		if types.SameEntity(id, entity) {
			return true
		}
		for _, e := range opts.Exclude {
			if types.SameEntity(id, e) {
				return true
			}
		}
		return false
	}

	pd := &PseudoDocument{Entity: entity}
	seen := make(map[string]struct{}, len(pool))

	for _, id := range pool {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		p, ok, err := fetch.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching passage %s: %w", id, err)
		}
		if !ok {
			fmt.Fprintf(diag, "warning: entity %s: candidate passage %s not in corpus\n", entity, id)
			continue
		}
		if !p.MentionsEntity(entity) {
			continue
		}

		pd.Passages = append(pd.Passages, p)
		for _, m := range p.Mentions {
			if excluded(m.Entity) {
				continue
			}
			pd.CoOccurring = append(pd.CoOccurring, m.Entity)
			if opts.CollectAnchors {
				pd.Anchors = append(pd.Anchors, m.AnchorText())
			}
		}
	}

	if len(pd.Passages) == 0 {
		return nil, nil
	}
	return pd, nil
}
