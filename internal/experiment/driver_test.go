// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package experiment

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hscells/trecresults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/support-engine/internal/index"
	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

// fakeRetriever serves passages from memory and answers boolean searches
// with a canned hit list.
type fakeRetriever struct {
	passages map[string]types.Passage
	hits     []index.Hit
}

func (f *fakeRetriever) GetByID(_ context.Context, id string) (types.Passage, bool, error) {
	p, ok := f.passages[id]
	return p, ok, nil
}

func (f *fakeRetriever) SearchBoolean(_ context.Context, _ support.ExpansionQuery, topK int) ([]index.Hit, error) {
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func resultList(qid string, ids ...string) trecresults.ResultList {
	list := make(trecresults.ResultList, len(ids))
	for i, id := range ids {
		list[i] = &trecresults.Result{
			Topic: qid,
			DocId: id,
			Rank:  int64(i + 1),
			Score: float64(len(ids) - i),
		}
	}
	return list
}

func qrels(qid string, rel map[string]int64) trecresults.Qrels {
	out := make(trecresults.Qrels, len(rel))
	for id, score := range rel {
		out[id] = &trecresults.Qrel{Topic: qid, DocId: id, Score: score}
	}
	return out
}

// testSources builds a three-passage fixture with one relevant entity
// (enwiki:Dog) and one irrelevant one (enwiki:Cat) for query q1.
func testSources(ret *fakeRetriever) Sources {
	return Sources{
		Passages: map[string]trecresults.ResultList{
			"q1": resultList("q1", "p1", "p2", "p3"),
		},
		Entities: map[string]trecresults.ResultList{
			"q1": resultList("q1", "enwiki:Dog", "enwiki:Cat"),
		},
		Qrels: map[string]trecresults.Qrels{
			"q1": qrels("q1", map[string]int64{"enwiki:Dog": 1, "enwiki:Cat": 0}),
		},
		Queries:   map[string]string{"q1": "dogs"},
		Index:     ret,
		Tokenizer: support.NewTokenizer("en", nil),
	}
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{passages: map[string]types.Passage{
		"p1": {ID: "p1", Text: "a dog and a cat", Mentions: []types.Mention{
			{Entity: "enwiki:Dog"}, {Entity: "enwiki:Cat"},
		}},
		"p2": {ID: "p2", Text: "just a cat", Mentions: []types.Mention{
			{Entity: "enwiki:Cat"},
		}},
		"p3": {ID: "p3", Text: "dog cat wolf", Mentions: []types.Mention{
			{Entity: "enwiki:Dog"}, {Entity: "enwiki:Cat"}, {Entity: "enwiki:Wolf"},
		}},
	}}
}

func TestRunFrequencyEntitiesPool(t *testing.T) {
	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureEntities,
		Scope:    ScopePool,
		RunTag:   "freq-ent-pool",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, testSources(newFakeRetriever()), &out, &diag, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Queries)
	assert.Equal(t, 1, summary.Units, "only the relevant entity forms a unit")
	assert.Equal(t, 2, summary.Lines)

	// Dog's pseudo-document is {p1, p3}; co-occurring multiset is
	// {Cat, Cat, Wolf}, so Cat weighs 0.6667 and Wolf 0.3334 after
	// ceiling rounding. p3 mentions both, p1 only Cat.
	want := "q1+enwiki:Dog Q0 p3 1 1.0001 freq-ent-pool\n" +
		"q1+enwiki:Dog Q0 p1 2 0.6667 freq-ent-pool\n"
	assert.Equal(t, want, out.String())
}

func TestRunSkipsIrrelevantAndMalformed(t *testing.T) {
	ret := newFakeRetriever()
	src := testSources(ret)
	src.Entities["q1"] = resultList("q1", "enwiki:Dog", "no-namespace", "enwiki:Cat")

	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureEntities,
		Scope:    ScopePool,
		RunTag:   "run",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Units)
	assert.Equal(t, 1, summary.SkippedMalformed)
	assert.Contains(t, diag.String(), "malformed entity id")
	assert.NotContains(t, out.String(), "enwiki:Cat", "irrelevant entity must not produce output")
}

func TestRunNoPseudoDocument(t *testing.T) {
	ret := newFakeRetriever()
	src := testSources(ret)
	src.Entities["q1"] = resultList("q1", "enwiki:Bear")
	src.Qrels["q1"] = qrels("q1", map[string]int64{"enwiki:Bear": 1})

	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureEntities,
		Scope:    ScopePool,
		RunTag:   "run",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedNoPseudo)
	assert.Equal(t, 0, summary.Lines)
	assert.Contains(t, diag.String(), "no candidate passage mentions the entity")
}

func TestRunRelatedness(t *testing.T) {
	src := testSources(newFakeRetriever())
	src.Relatedness = func(_ context.Context, a, b string) (float64, error) {
		if types.SameEntity(b, "enwiki:Wolf") {
			return 0.8, nil
		}
		return 0.2, nil
	}

	cfg := Config{
		Strategy: StrategyRelatedness,
		Features: support.FeatureEntities,
		Scope:    ScopePool,
		RunTag:   "rel",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Lines)

	// p3 carries Cat (0.2) and Wolf (0.8); p1 carries only Cat.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " p3 1 1.0000 ")
	assert.Contains(t, lines[1], " p1 2 0.2000 ")
}

func TestRunSalienceWithPrior(t *testing.T) {
	src := testSources(newFakeRetriever())
	src.Salience = func(id string) (map[string]float64, bool) {
		switch id {
		case "p1":
			return map[string]float64{"enwiki:Dog": 0.5}, true
		case "p3":
			return map[string]float64{"enwiki:Dog": 0.5}, true
		default:
			return nil, false
		}
	}

	cfg := Config{
		Strategy:     StrategySalience,
		Features:     support.FeatureEntities,
		Scope:        ScopePool,
		CombinePrior: true,
		RunTag:       "sal",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Lines)

	// Pool scores are 3 (p1) and 1 (p3); equal salience splits 0.5 by the
	// normalized prior: p1 gets 0.375, p3 gets 0.125.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " p1 1 0.3750 ")
	assert.Contains(t, lines[1], " p3 2 0.1250 ")
}

func TestRunExpandCollection(t *testing.T) {
	ret := newFakeRetriever()
	ret.hits = []index.Hit{
		{PassageID: "p9", Score: 4.2},
		{PassageID: "p1", Score: 1.1},
	}
	src := testSources(ret)

	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureEntities,
		Scope:    ScopeExpandCollection,
		TopTerms: 10,
		TopK:     10,
		RunTag:   "exp",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Lines)

	// Collection-scope results may include passages outside the pool.
	assert.Contains(t, out.String(), "q1+enwiki:Dog Q0 p9 1 4.2000 exp\n")
}

func TestRunExpandPool(t *testing.T) {
	src := testSources(newFakeRetriever())

	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureTerms,
		Scope:    ScopeExpandPool,
		TopTerms: 10,
		TopK:     10,
		RunTag:   "exp-pool",
	}

	var out, diag bytes.Buffer
	summary, err := Run(context.Background(), cfg, src, &out, &diag, nil)
	require.NoError(t, err)

	// Rescoring is confined to the pseudo-document's passages.
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		require.Len(t, fields, 6)
		assert.Contains(t, []string{"p1", "p3"}, fields[2])
	}
	assert.Equal(t, summary.Lines, len(strings.Split(strings.TrimSpace(out.String()), "\n")))
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	ret := newFakeRetriever()
	base := testSources(ret)
	base.Passages["q2"] = resultList("q2", "p2", "p3")
	base.Entities["q2"] = resultList("q2", "enwiki:Cat")
	base.Qrels["q2"] = qrels("q2", map[string]int64{"enwiki:Cat": 2})
	base.Queries["q2"] = "cats"

	run := func(workers int) string {
		cfg := Config{
			Strategy:   StrategyFrequency,
			Features:   support.FeatureEntities,
			Scope:      ScopePool,
			MaxWorkers: workers,
			RunTag:     "det",
		}
		var out, diag bytes.Buffer
		_, err := Run(context.Background(), cfg, base, &out, &diag, nil)
		require.NoError(t, err)
		return out.String() + "\x00" + diag.String()
	}

	serial := run(1)
	parallel := run(4)
	assert.Equal(t, serial, parallel)
}

func TestRunProgressCallback(t *testing.T) {
	src := testSources(newFakeRetriever())
	cfg := Config{
		Strategy: StrategyFrequency,
		Features: support.FeatureEntities,
		Scope:    ScopePool,
		RunTag:   "run",
	}

	calls := 0
	var out, diag bytes.Buffer
	_, err := Run(context.Background(), cfg, src, &out, &diag, func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "one callback per query")
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	FormatSummary(Summary{Queries: 2, Units: 3, Lines: 5, MeanScore: 0.5, StdDevScore: 0.1}, &buf)
	assert.Contains(t, buf.String(), "queries: 2, units: 3, lines written: 5")
	assert.Contains(t, buf.String(), "score mean 0.5000")
}
