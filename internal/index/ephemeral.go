// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"

	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

// RescoreWithinPool builds a throwaway in-memory index over exactly the
// given passages (typically one pseudo-document's), executes the expansion
// query against it, and returns up to topK hits by descending BM25 score.
// The index lives only for this call: it is owned by the single
// (query, entity) task that asked for the rescore and is torn down before
// returning. An empty passage set returns an empty result without building
// anything.
func RescoreWithinPool(ctx context.Context, passages []types.Passage, eq support.ExpansionQuery, topK int) ([]Hit, error) {
	if len(passages) == 0 || eq.IsEmpty() {
		return nil, nil
	}

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("opening in-memory index: %w", err)
	}
	defer writer.Close()

	batch := bluge.NewBatch()
	for _, p := range passages {
		doc := passageDocument(p)
		batch.Update(doc.ID(), doc)
	}
	if err := writer.Batch(batch); err != nil {
		return nil, fmt.Errorf("indexing pool passages: %w", err)
	}

	reader, err := writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening in-memory reader: %w", err)
	}
	defer reader.Close()

	return searchReader(ctx, reader, booleanQuery(eq), topK)
}
