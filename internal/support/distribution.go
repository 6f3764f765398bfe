// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package support implements the entity-conditioned candidate passage scoring
// core: pseudo-document construction, weight distribution building, additive
// passage scoring, and expansion query construction. The components here are
// stateless and safe for concurrent use; each (query, entity) unit of work
// owns its pseudo-document and distribution exclusively and discards them
// when the unit completes.
package support

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/support-engine/pkg/types"
)

// WeightDistribution maps feature keys (entity identifiers, terms, or anchor
// strings) to non-negative weights. Distributions built by FromFrequency sum
// to at most 1.0; relatedness- and salience-derived weights are similarity
// scores and carry no such bound.
type WeightDistribution map[string]float64

// Weight returns the weight for key, or 0 when the key is absent.
func (d WeightDistribution) Weight(key string) float64 {
	return d[key]
}

// WeightedFeature is one (feature, weight) entry of a distribution.
type WeightedFeature struct {
	Key    string
	Weight float64
}

// TopK returns the k highest-weighted entries, sorted by descending weight
// with ties broken by key so repeated runs order identically. k <= 0 or
// k >= len returns all entries.
func (d WeightDistribution) TopK(k int) []WeightedFeature {
	features := make([]WeightedFeature, 0, len(d))
	for key, w := range d {
		features = append(features, WeightedFeature{Key: key, Weight: w})
	}
	sort.Slice(features, func(i, j int) bool {
		if features[i].Weight != features[j].Weight {
			return features[i].Weight > features[j].Weight
		}
		return features[i].Key < features[j].Key
	})
	if k > 0 && k < len(features) {
		features = features[:k]
	}
	return features
}

// roundCeil4 rounds up to 4 decimal places. Historical run files were
// produced with ceiling-mode rounding, so a tiny positive ratio can round up
// to 0.0001 while an exact zero stays zero.
func roundCeil4(x float64) float64 {
	return math.Ceil(x*1e4) / 1e4
}

// FromFrequency counts occurrences of each feature in the multiset and
// normalizes by the total count, rounding each weight up to 4 decimals.
// Entries are kept unless their rounded weight is negative, so a weight that
// rounds to exactly 0.0 stays in the distribution. An empty multiset yields
// an empty distribution.
func FromFrequency(features []string) WeightDistribution {
	dist := make(WeightDistribution)
	if len(features) == 0 {
		return dist
	}

	counts := make(map[string]int, len(features))
	for _, f := range features {
		counts[f]++
	}
	total := float64(len(features))

	for key, n := range counts {
		w := roundCeil4(float64(n) / total)
		if !(w < 0) {
			dist[key] = w
		}
	}
	return dist
}

// FromRetrievalWeightedFrequency normalizes the passage retrieval scores by
// their sum, then adds each passage's normalized weight to the running total
// of every feature occurrence in that passage. A feature occurring in a
// high-scoring passage therefore contributes more than the same feature in a
// low-scoring one. There is no further normalization after accumulation.
// A zero score sum yields an empty distribution.
func FromRetrievalWeightedFrequency(passageScores map[string]float64, passageFeatures map[string][]string) WeightDistribution {
	dist := make(WeightDistribution)

	var total float64
	for _, s := range passageScores {
		total += s
	}
	if total == 0 {
		return dist
	}

	for id, score := range passageScores {
		norm := score / total
		for _, f := range passageFeatures[id] {
			dist[f] += norm
		}
	}

	for key, w := range dist {
		if w <= 0 {
			delete(dist, key)
		}
	}
	return dist
}

// RelatednessFunc returns the pairwise relatedness of two entities, 0.0 when
// either entity cannot be resolved by the oracle. An error marks the oracle
// itself as unavailable; the caller skips the (query, entity) unit.
type RelatednessFunc func(ctx context.Context, a, b string) (float64, error)

// FromRelatedness weights every candidate entity by its relatedness to the
// target. A candidate whose title matches the target's (case-insensitive,
// namespace stripped) is weighted 1.0 without consulting the oracle.
// Non-positive relatedness values are dropped.
func FromRelatedness(ctx context.Context, target string, candidates []string, rel RelatednessFunc) (WeightDistribution, error) {
	dist := make(WeightDistribution)
	seen := make(map[string]struct{}, len(candidates))

	for _, cand := range candidates {
		if _, dup := seen[cand]; dup {
			continue
		}
		seen[cand] = struct{}{}

		if types.SameEntity(target, cand) {
			dist[cand] = 1.0
			continue
		}

		w, err := rel(ctx, target, cand)
		if err != nil {
			return nil, fmt.Errorf("relatedness %s / %s: %w", target, cand, err)
		}
		if w > 0 {
			dist[cand] = w
		}
	}
	return dist, nil
}

// SalienceFunc returns the entity salience map for a passage, or ok=false
// when the passage has no salience annotation.
type SalienceFunc func(passageID string) (map[string]float64, bool)

// FromSalience weights each candidate passage by the salience of the target
// entity within it. Passages without an annotation, and passages where the
// entity is not salient, are omitted rather than zero-filled; the result may
// be empty, which downstream scoring treats as no signal.
func FromSalience(entity string, passageIDs []string, salience SalienceFunc) WeightDistribution {
	dist := make(WeightDistribution)
	seen := make(map[string]struct{}, len(passageIDs))

	for _, id := range passageIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		scores, ok := salience(id)
		if !ok {
			continue
		}

		w, present := scores[entity]
		if !present {
			keys := make([]string, 0, len(scores))
			for e := range scores {
				keys = append(keys, e)
			}
			sort.Strings(keys)
			for _, e := range keys {
				if types.SameEntity(e, entity) {
					w, present = scores[e], true
					break
				}
			}
		}
		if present && w > 0 {
			dist[id] = w
		}
	}
	return dist
}
