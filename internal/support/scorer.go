// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package support

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/support-engine/pkg/types"
)

// FeatureMode selects what a distribution's keys are matched against when
// scoring a passage.
type FeatureMode int

const (
	// FeatureTerms matches distribution keys against normalized text
	// tokens; every occurrence counts.
	FeatureTerms FeatureMode = iota

	// FeatureEntities matches keys against the passage's entity list;
	// each distinct entity counts once per passage.
	FeatureEntities

	// FeatureAnchors counts non-overlapping substring occurrences of each
	// key in the raw passage text.
	FeatureAnchors
)

func (m FeatureMode) String() string {
	switch m {
	case FeatureTerms:
		return "terms"
	case FeatureEntities:
		return "entities"
	case FeatureAnchors:
		return "anchors"
	default:
		return "unknown"
	}
}

// ParseFeatureMode converts a config string into a FeatureMode.
func ParseFeatureMode(s string) (FeatureMode, error) {
	switch strings.ToLower(s) {
	case "terms":
		return FeatureTerms, nil
	case "entities":
		return FeatureEntities, nil
	case "anchors":
		return FeatureAnchors, nil
	default:
		return 0, fmt.Errorf("unknown feature mode %q: use terms, entities, or anchors", s)
	}
}

// ScoredPassage pairs a passage identifier with its accumulated score.
type ScoredPassage struct {
	PassageID string
	Score     float64
}

// SortScored orders scored passages by descending score, ties broken by
// passage id so output is stable across runs.
func SortScored(scored []ScoredPassage) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].PassageID < scored[j].PassageID
	})
}

// FilterPositive returns only the strictly positive scores; a zero score
// means no overlap with the distribution and is never written out.
func FilterPositive(scored []ScoredPassage) []ScoredPassage {
	kept := scored[:0]
	for _, sp := range scored {
		if sp.Score > 0 {
			kept = append(kept, sp)
		}
	}
	return kept
}

// Scorer accumulates passage scores against a weight distribution. It holds
// only the tokenizer and is safe for concurrent use.
type Scorer struct {
	tok *Tokenizer
}

// NewScorer creates a Scorer using tok for Terms-mode tokenization. The
// tokenizer must be the one that built the term distributions being scored.
func NewScorer(tok *Tokenizer) *Scorer {
	return &Scorer{tok: tok}
}

// Score sums distribution weights over the passage's features in the given
// mode. An empty passage or an empty distribution scores 0; the result is
// never negative because distributions hold no negative weights.
func (s *Scorer) Score(p types.Passage, dist WeightDistribution, mode FeatureMode) float64 {
	if len(dist) == 0 {
		return 0
	}

	switch mode {
	case FeatureEntities:
		var score float64
		counted := make(map[string]struct{}, len(p.Mentions))
		for _, m := range p.Mentions {
			if _, done := counted[m.Entity]; done {
				continue
			}
			counted[m.Entity] = struct{}{}
			score += dist.Weight(m.Entity)
		}
		return score

	case FeatureAnchors:
		var score float64
		for anchor, w := range dist {
			if len(anchor) == 0 {
				continue
			}
			// Literal substring counting, including matches inside
			// larger words ("art" in "start"). Historical outputs
			// count exactly this way.
			if n := strings.Count(p.Text, anchor); n > 0 {
				score += float64(n) * w
			}
		}
		return score

	default: // FeatureTerms
		var score float64
		for _, token := range s.tok.Tokenize(p.Text) {
			score += dist.Weight(token)
		}
		return score
	}
}
