// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle provides the entity relatedness and salience sources as
// memoization layers over externally computed score files. A cache is
// loaded once before a run, read-only while the run executes, and discarded
// afterwards; the scoring core sees only the narrow lookup functions.
package oracle

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

// relatednessEntry is one memoized pair score in the cache file.
type relatednessEntry struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Score float64 `yaml:"score"`
}

// RelatednessCache holds memoized pairwise relatedness scores keyed
// order-independently by canonical entity titles.
type RelatednessCache struct {
	pairs map[string]float64
}

// pairKey builds the order-independent lookup key for two entities.
func pairKey(a, b string) string {
	ca, cb := types.CanonicalTitle(a), types.CanonicalTitle(b)
	if cb < ca {
		ca, cb = cb, ca
	}
	return ca + "\x00" + cb
}

// LoadRelatednessCache reads a YAML list of {a, b, score} entries from
// path. An empty path yields an empty cache, which scores every pair 0.0.
func LoadRelatednessCache(path string) (*RelatednessCache, error) {
	cache := &RelatednessCache{pairs: make(map[string]float64)}
	if path == "" {
		return cache, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading relatedness cache %s: %w", path, err)
	}

	var entries []relatednessEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing relatedness cache %s: %w", path, err)
	}

	for _, e := range entries {
		cache.pairs[pairKey(e.A, e.B)] = e.Score
	}
	return cache, nil
}

// Len returns the number of memoized pairs.
func (c *RelatednessCache) Len() int {
	return len(c.pairs)
}

// Relatedness returns the memoized score for the pair, or 0.0 when the pair
// was never resolved by the external relatedness service.
func (c *RelatednessCache) Relatedness(_ context.Context, a, b string) (float64, error) {
	return c.pairs[pairKey(a, b)], nil
}

// Func adapts the cache to the scoring core's relatedness contract.
func (c *RelatednessCache) Func() support.RelatednessFunc {
	return c.Relatedness
}
