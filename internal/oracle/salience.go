// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/support-engine/internal/support"
)

// SalienceCache holds memoized per-passage salience annotations: for each
// passage id, the map of entity identifiers to salience scores produced by
// the external annotator.
type SalienceCache struct {
	passages map[string]map[string]float64
}

// LoadSalienceCache reads a YAML mapping of passage id to entity score map
// from path. An empty path yields an empty cache, which reports every
// passage as unannotated.
func LoadSalienceCache(path string) (*SalienceCache, error) {
	cache := &SalienceCache{passages: make(map[string]map[string]float64)}
	if path == "" {
		return cache, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading salience cache %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cache.passages); err != nil {
		return nil, fmt.Errorf("parsing salience cache %s: %w", path, err)
	}
	if cache.passages == nil {
		cache.passages = make(map[string]map[string]float64)
	}
	return cache, nil
}

// Len returns the number of annotated passages.
func (c *SalienceCache) Len() int {
	return len(c.passages)
}

// Salience returns the entity salience map for a passage. ok is false when
// the passage has no annotation; callers omit it rather than zero-fill.
func (c *SalienceCache) Salience(passageID string) (map[string]float64, bool) {
	m, ok := c.passages[passageID]
	return m, ok
}

// Func adapts the cache to the scoring core's salience contract.
func (c *SalienceCache) Func() support.SalienceFunc {
	return c.Salience
}

// Entities returns the annotated entity ids for a passage in sorted order,
// mainly for diagnostics.
func (c *SalienceCache) Entities(passageID string) []string {
	m, ok := c.passages[passageID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
