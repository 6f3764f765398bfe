// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/support-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := strings.Join([]string{
		`{"id":"p1","text":"a dog and a cat","mentions":[{"entity":"enwiki:Dog","anchor":"dog"},{"entity":"enwiki:Cat","anchor":"cat"}]}`,
		`{"id":"p2","text":"just wolves","entities":["enwiki:Wolf"]}`,
	}, "\n")

	var diag bytes.Buffer
	summary, err := s.IngestJSONL(ctx, strings.NewReader(input), &diag)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Stored)
	assert.Equal(t, 0, summary.Malformed)

	p, ok, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a dog and a cat", p.Text)
	require.Len(t, p.Mentions, 2)
	assert.Equal(t, "dog", p.Mentions[0].Anchor)

	// Flat entity lists become anchor-less mentions.
	p, ok, err = s.Get(ctx, "p2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []types.Mention{{Entity: "enwiki:Wolf"}}, p.Mentions)

	_, ok, err = s.Get(ctx, "p999")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestSkipsMalformed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := strings.Join([]string{
		`{"id":"p1","text":"fine"}`,
		`{broken json`,
		`{"text":"no id"}`,
		``,
		`{"id":"p2","text":"also fine"}`,
	}, "\n")

	var diag bytes.Buffer
	summary, err := s.IngestJSONL(ctx, strings.NewReader(input), &diag)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Stored)
	assert.Equal(t, 2, summary.Malformed)
	assert.Equal(t, 2, strings.Count(diag.String(), "warning:"))
}

func TestIngestUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.IngestJSONL(ctx, strings.NewReader(`{"id":"p1","text":"old"}`), &bytes.Buffer{})
	require.NoError(t, err)
	_, err = s.IngestJSONL(ctx, strings.NewReader(`{"id":"p1","text":"new"}`), &bytes.Buffer{})
	require.NoError(t, err)

	p, ok, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", p.Text)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestForEachOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := strings.Join([]string{
		`{"id":"pc","text":"c"}`,
		`{"id":"pa","text":"a"}`,
		`{"id":"pb","text":"b"}`,
	}, "\n")
	_, err := s.IngestJSONL(ctx, strings.NewReader(input), &bytes.Buffer{})
	require.NoError(t, err)

	var ids []string
	err = s.ForEach(ctx, func(p types.Passage) error {
		ids = append(ids, p.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pa", "pb", "pc"}, ids)
}

func TestSourceFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"p1","text":"x"}`), 0o644))

	unchanged, err := s.SourceUnchanged(ctx, path)
	require.NoError(t, err)
	assert.False(t, unchanged, "never-ingested source must not read as unchanged")

	require.NoError(t, s.RecordSource(ctx, path))

	unchanged, err = s.SourceUnchanged(ctx, path)
	require.NoError(t, err)
	assert.True(t, unchanged)
}
