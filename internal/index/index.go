// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index wraps the Bluge retrieval index over the passage corpus.
// The index answers field-term and weighted boolean queries with BM25
// ranking; full passage records are resolved back through the corpus store.
package index

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/blugelabs/bluge"

	"github.com/pdiddy/support-engine/internal/corpus"
	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

const (
	blugeDir = "bluge"

	// TextField carries the analyzed passage text.
	TextField = "text"

	// EntityField carries one keyword term per distinct mentioned entity.
	EntityField = "entity"

	idField = "_id"
)

// Hit is one ranked retrieval result.
type Hit struct {
	PassageID string
	Score     float64
}

// Index is a read handle over the corpus retrieval index. It is safe for
// concurrent searches; the corpus store underneath is read-only during a
// run.
type Index struct {
	reader *bluge.Reader
	store  *corpus.Store
}

// Open opens the retrieval index under dir (as written by Build) backed by
// the given corpus store. Failing to open the index is fatal to a run;
// there is no meaningful work without it.
func Open(dir string, store *corpus.Store) (*Index, error) {
	reader, err := bluge.OpenReader(bluge.DefaultConfig(filepath.Join(dir, blugeDir)))
	if err != nil {
		return nil, fmt.Errorf("opening retrieval index: %w", err)
	}
	return &Index{reader: reader, store: store}, nil
}

// Close releases the index reader.
func (ix *Index) Close() error {
	return ix.reader.Close()
}

// GetByID returns the full passage record for id from the corpus store.
// ok is false for an unknown id.
func (ix *Index) GetByID(ctx context.Context, id string) (types.Passage, bool, error) {
	return ix.store.Get(ctx, id)
}

// FieldTermSearch returns the first passage whose field contains the exact
// term. Terms against TextField must be pre-normalized (lowercased) to
// match the analyzer's output.
func (ix *Index) FieldTermSearch(ctx context.Context, field, term string) (types.Passage, bool, error) {
	q := bluge.NewTermQuery(term).SetField(field)
	hits, err := searchReader(ctx, ix.reader, q, 1)
	if err != nil {
		return types.Passage{}, false, err
	}
	if len(hits) == 0 {
		return types.Passage{}, false, nil
	}
	return ix.store.Get(ctx, hits[0].PassageID)
}

// SearchBoolean executes a weighted expansion query against the whole
// collection and returns up to topK hits by descending BM25 score.
func (ix *Index) SearchBoolean(ctx context.Context, eq support.ExpansionQuery, topK int) ([]Hit, error) {
	if eq.IsEmpty() {
		return nil, nil
	}
	return searchReader(ctx, ix.reader, booleanQuery(eq), topK)
}

// booleanQuery converts an expansion query into a Bluge boolean disjunction
// of boosted term clauses.
func booleanQuery(eq support.ExpansionQuery) bluge.Query {
	bq := bluge.NewBooleanQuery()
	for _, c := range eq.Clauses {
		bq.AddShould(bluge.NewTermQuery(c.Term).SetField(c.Field).SetBoost(c.Weight))
	}
	return bq
}

// searchReader runs a query against a reader and collects passage ids and
// scores from the stored _id field.
func searchReader(ctx context.Context, reader *bluge.Reader, q bluge.Query, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	dmi, err := reader.Search(ctx, bluge.NewTopNSearch(topK, q))
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}

	var hits []Hit
	for {
		match, err := dmi.Next()
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		if match == nil {
			break
		}

		var id string
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				id = string(value)
				return false
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("reading stored fields: %w", err)
		}
		if id != "" {
			hits = append(hits, Hit{PassageID: id, Score: match.Score})
		}
	}
	return hits, nil
}

// passageDocument converts a passage into an indexable Bluge document: the
// analyzed text plus one keyword term per distinct mentioned entity.
func passageDocument(p types.Passage) *bluge.Document {
	doc := bluge.NewDocument(p.ID)
	doc.AddField(bluge.NewTextField(TextField, p.Text))

	seen := make(map[string]struct{}, len(p.Mentions))
	for _, m := range p.Mentions {
		if _, dup := seen[m.Entity]; dup {
			continue
		}
		seen[m.Entity] = struct{}{}
		doc.AddField(bluge.NewKeywordField(EntityField, m.Entity))
	}
	return doc
}

const buildBatchSize = 1000

// Build writes a fresh retrieval index under dir from every passage in the
// store. Progress lines go to diag; the count of indexed passages is
// returned.
func Build(ctx context.Context, dir string, store *corpus.Store, diag io.Writer) (int, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(filepath.Join(dir, blugeDir)))
	if err != nil {
		return 0, fmt.Errorf("opening index writer: %w", err)
	}
	defer writer.Close()

	batch := bluge.NewBatch()
	indexed := 0
	pending := 0

	err = store.ForEach(ctx, func(p types.Passage) error {
		doc := passageDocument(p)
		batch.Update(doc.ID(), doc)
		pending++
		indexed++

		if pending >= buildBatchSize {
			if err := writer.Batch(batch); err != nil {
				return fmt.Errorf("writing index batch: %w", err)
			}
			batch.Reset()
			pending = 0
			fmt.Fprintf(diag, "indexed %d passages\n", indexed)
		}
		return nil
	})
	if err != nil {
		return indexed, err
	}

	if pending > 0 {
		if err := writer.Batch(batch); err != nil {
			return indexed, fmt.Errorf("writing index batch: %w", err)
		}
	}
	return indexed, nil
}
