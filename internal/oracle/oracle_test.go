// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCache(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRelatednessCache(t *testing.T) {
	path := writeCache(t, "relatedness.yaml", `
- a: enwiki:Dog
  b: enwiki:Cat
  score: 0.4
- a: enwiki:Dog
  b: enwiki:Wolf
  score: 0.8
`)

	cache, err := LoadRelatednessCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	ctx := context.Background()

	score, err := cache.Relatedness(ctx, "enwiki:Dog", "enwiki:Cat")
	require.NoError(t, err)
	assert.Equal(t, 0.4, score)

	// Lookup is order-independent and normalizes ids.
	score, err = cache.Relatedness(ctx, "enwiki:cat", "enwiki:Dog")
	require.NoError(t, err)
	assert.Equal(t, 0.4, score)

	// An unresolved pair scores 0.0 without error.
	score, err = cache.Relatedness(ctx, "enwiki:Dog", "enwiki:Xyzzy")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestLoadRelatednessCacheEmptyPath(t *testing.T) {
	cache, err := LoadRelatednessCache("")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())

	score, err := cache.Func()(context.Background(), "enwiki:A", "enwiki:B")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestLoadRelatednessCacheBadYAML(t *testing.T) {
	path := writeCache(t, "bad.yaml", "{not a list")
	_, err := LoadRelatednessCache(path)
	assert.Error(t, err)
}

func TestLoadSalienceCache(t *testing.T) {
	path := writeCache(t, "salience.yaml", `
p1:
  enwiki:Dog: 0.8
  enwiki:Cat: 0.1
p2:
  enwiki:Cat: 0.9
`)

	cache, err := LoadSalienceCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	scores, ok := cache.Salience("p1")
	require.True(t, ok)
	assert.Equal(t, 0.8, scores["enwiki:Dog"])

	_, ok = cache.Salience("p3")
	assert.False(t, ok)

	assert.Equal(t, []string{"enwiki:Cat", "enwiki:Dog"}, cache.Entities("p1"))
	assert.Nil(t, cache.Entities("p3"))
}

func TestLoadSalienceCacheEmptyPath(t *testing.T) {
	cache, err := LoadSalienceCache("")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())

	_, ok := cache.Func()("p1")
	assert.False(t, ok)
}
