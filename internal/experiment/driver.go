// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package experiment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pdiddy/support-engine/internal/index"
	"github.com/pdiddy/support-engine/internal/rank"
	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

// Summary holds counts and score statistics from one experiment run.
type Summary struct {
	Queries          int
	Units            int
	Lines            int
	SkippedNoPseudo  int
	SkippedNoSignal  int
	SkippedExternal  int
	SkippedMalformed int
	MeanScore        float64
	StdDevScore      float64
}

// group is the scored output of one (query, entity) unit.
type group struct {
	topic  string
	scored []support.ScoredPassage
}

// unitStats aggregates per-query outcome counts. Each worker fills its own
// copy; the driver folds them after the pool drains, so no counter is
// shared across goroutines.
type unitStats struct {
	units            int
	skippedNoPseudo  int
	skippedNoSignal  int
	skippedExternal  int
	skippedMalformed int
}

func (s *unitStats) add(o unitStats) {
	s.units += o.units
	s.skippedNoPseudo += o.skippedNoPseudo
	s.skippedNoSignal += o.skippedNoSignal
	s.skippedExternal += o.skippedExternal
	s.skippedMalformed += o.skippedMalformed
}

// queryOutput is everything one query's worker produced: its groups, its
// outcome counts, and its buffered diagnostics (flushed in query order so
// parallel runs log identically to serial ones).
type queryOutput struct {
	groups []group
	stats  unitStats
	diag   bytes.Buffer
}

type runner struct {
	cfg Config
	src Sources
	sc  *support.Scorer
}

// Run executes one experiment over every query with an entity ranking,
// writes the ranked run to out, and reports skips to diag. Queries are
// processed on a bounded worker pool; every (query, entity) unit is
// independent, so output is identical for any worker count.
func Run(ctx context.Context, cfg Config, src Sources, out io.Writer, diag io.Writer, progress func()) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	r := &runner{cfg: cfg, src: src, sc: support.NewScorer(src.Tokenizer)}

	qids := make([]string, 0, len(src.Entities))
	for qid := range src.Entities {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outputs := make([]*queryOutput, len(qids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, qid := range qids {
		i, qid := i, qid
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = r.processQuery(gctx, qid)
			if progress != nil {
				progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	writer := rank.NewRunWriter(out, cfg.RunTag)
	summary := Summary{Queries: len(qids)}
	var stats unitStats
	var written []float64

	for _, qo := range outputs {
		if qo == nil {
			continue
		}
		if _, err := diag.Write(qo.diag.Bytes()); err != nil {
			return summary, fmt.Errorf("writing diagnostics: %w", err)
		}
		stats.add(qo.stats)

		for _, gr := range qo.groups {
			n, err := writer.WriteGroup(gr.topic, gr.scored)
			if err != nil {
				return summary, err
			}
			summary.Lines += n
			for _, sp := range gr.scored[:n] {
				written = append(written, sp.Score)
			}
		}
	}

	summary.Units = stats.units
	summary.SkippedNoPseudo = stats.skippedNoPseudo
	summary.SkippedNoSignal = stats.skippedNoSignal
	summary.SkippedExternal = stats.skippedExternal
	summary.SkippedMalformed = stats.skippedMalformed
	if len(written) > 0 {
		summary.MeanScore = stat.Mean(written, nil)
	}
	if len(written) > 1 {
		summary.StdDevScore = stat.StdDev(written, nil)
	}
	return summary, nil
}

// processQuery runs every relevant-and-retrieved entity of one query
// through the pipeline. External failures skip the affected unit with a
// warning; the rest of the query still completes.
func (r *runner) processQuery(ctx context.Context, qid string) *queryOutput {
	qo := &queryOutput{}

	poolList, ok := r.src.Passages[qid]
	if !ok || len(poolList) == 0 {
		fmt.Fprintf(&qo.diag, "warning: query %s: no candidate passage ranking\n", qid)
		return qo
	}
	pool := rank.TopIDs(poolList, r.cfg.PoolDepth)
	poolScores := rank.Scores(poolList, r.cfg.PoolDepth)

	for _, entity := range r.relevantEntities(qid, &qo.diag, &qo.stats) {
		qo.stats.units++

		scored, skip := r.processUnit(ctx, qid, entity, pool, poolScores, &qo.diag)
		switch skip {
		case skipNone:
			qo.groups = append(qo.groups, group{topic: rank.GroupTopic(qid, entity), scored: scored})
		case skipNoPseudo:
			qo.stats.skippedNoPseudo++
		case skipNoSignal:
			qo.stats.skippedNoSignal++
		case skipExternal:
			qo.stats.skippedExternal++
		}
	}
	return qo
}

// relevantEntities returns the query's ranked entities that appear with a
// positive relevance grade in the ground truth, de-duplicated in rank
// order. Malformed entity identifiers are logged and skipped.
func (r *runner) relevantEntities(qid string, diag io.Writer, stats *unitStats) []string {
	qrels := r.src.Qrels[qid]
	if len(qrels) == 0 {
		fmt.Fprintf(diag, "warning: query %s: no entity ground truth\n", qid)
		return nil
	}

	var entities []string
	seen := make(map[string]struct{})
	for _, res := range r.src.Entities[qid] {
		id := res.DocId
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, _, ok := types.SplitEntityID(id); !ok {
			fmt.Fprintf(diag, "warning: query %s: malformed entity id %q\n", qid, id)
			stats.skippedMalformed++
			continue
		}
		if qrel, ok := qrels[id]; !ok || qrel.Score <= 0 {
			continue
		}
		entities = append(entities, id)
	}
	return entities
}

type skipReason int

const (
	skipNone skipReason = iota
	skipNoPseudo
	skipNoSignal
	skipExternal
)

// processUnit runs the pipeline for one (query, entity) pair:
// pseudo-document, distribution, and either additive pool scoring or an
// expansion retrieval.
func (r *runner) processUnit(ctx context.Context, qid, entity string, pool []string, poolScores map[string]float64, diag io.Writer) ([]support.ScoredPassage, skipReason) {
	opts := support.BuildOptions{CollectAnchors: r.cfg.Features == support.FeatureAnchors}
	pd, err := support.BuildPseudoDocument(ctx, entity, pool, r.src.Index, opts, diag)
	if err != nil {
		fmt.Fprintf(diag, "warning: query %s entity %s: %v\n", qid, entity, err)
		return nil, skipExternal
	}
	if pd == nil {
		fmt.Fprintf(diag, "warning: query %s entity %s: no candidate passage mentions the entity\n", qid, entity)
		return nil, skipNoPseudo
	}

	dist, err := r.buildDistribution(ctx, entity, pd, poolScores)
	if err != nil {
		fmt.Fprintf(diag, "warning: query %s entity %s: %v\n", qid, entity, err)
		return nil, skipExternal
	}
	if len(dist) == 0 {
		fmt.Fprintf(diag, "warning: query %s entity %s: empty distribution, no signal\n", qid, entity)
		return nil, skipNoSignal
	}

	switch r.cfg.Scope {
	case ScopePool:
		return r.scorePool(entity, pd, dist, poolScores), skipNone

	default:
		eq := support.BuildExpansionQuery(r.src.Queries[qid], dist.TopK(r.cfg.TopTerms), r.expansionOptions())
		if eq.IsEmpty() {
			fmt.Fprintf(diag, "warning: query %s entity %s: empty expansion query\n", qid, entity)
			return nil, skipNoSignal
		}

		var hits []index.Hit
		if r.cfg.Scope == ScopeExpandPool {
			hits, err = index.RescoreWithinPool(ctx, pd.Passages, eq, r.cfg.TopK)
		} else {
			hits, err = r.src.Index.SearchBoolean(ctx, eq, r.cfg.TopK)
		}
		if err != nil {
			fmt.Fprintf(diag, "warning: query %s entity %s: expansion retrieval: %v\n", qid, entity, err)
			return nil, skipExternal
		}

		scored := make([]support.ScoredPassage, len(hits))
		for i, h := range hits {
			scored[i] = support.ScoredPassage{PassageID: h.PassageID, Score: h.Score}
		}
		return scored, skipNone
	}
}

// expansionOptions derives the expansion builder options from the run
// configuration. Entity-valued features additionally target the index's
// entity keyword field.
func (r *runner) expansionOptions() support.ExpansionOptions {
	opts := support.ExpansionOptions{
		OmitQueryTerms: r.cfg.OmitQueryTerms,
		TextField:      index.TextField,
		MaxTerms:       support.DefaultMaxQueryTerms,
	}
	if r.cfg.Features == support.FeatureEntities {
		opts.EntityField = index.EntityField
	}
	return opts
}

// buildDistribution converts the pseudo-document into a weight distribution
// per the configured strategy.
func (r *runner) buildDistribution(ctx context.Context, entity string, pd *support.PseudoDocument, poolScores map[string]float64) (support.WeightDistribution, error) {
	switch r.cfg.Strategy {
	case StrategyFrequency:
		all, _ := r.unitFeatures(entity, pd)
		return support.FromFrequency(all), nil

	case StrategyRetrieval:
		_, per := r.unitFeatures(entity, pd)
		scores := make(map[string]float64, len(pd.Passages))
		for _, id := range pd.PassageIDs() {
			scores[id] = poolScores[id]
		}
		return support.FromRetrievalWeightedFrequency(scores, per), nil

	case StrategyRelatedness:
		return support.FromRelatedness(ctx, entity, pd.CoOccurring, r.src.Relatedness)

	case StrategySalience:
		return support.FromSalience(entity, pd.PassageIDs(), r.src.Salience), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", r.cfg.Strategy)
	}
}

// unitFeatures extracts the configured feature multiset from the
// pseudo-document, both pooled and per passage. Entity and anchor features
// exclude the target entity's own mentions, matching the pseudo-document's
// co-occurrence multiset.
func (r *runner) unitFeatures(entity string, pd *support.PseudoDocument) (all []string, per map[string][]string) {
	per = make(map[string][]string, len(pd.Passages))

	for _, p := range pd.Passages {
		var features []string
		switch r.cfg.Features {
		case support.FeatureTerms:
			features = r.src.Tokenizer.Tokenize(p.Text)
		case support.FeatureAnchors:
			for _, m := range p.Mentions {
				if types.SameEntity(m.Entity, entity) {
					continue
				}
				features = append(features, m.AnchorText())
			}
		default: // FeatureEntities
			for _, m := range p.Mentions {
				if types.SameEntity(m.Entity, entity) {
					continue
				}
				features = append(features, m.Entity)
			}
		}
		per[p.ID] = features
		all = append(all, features...)
	}
	return all, per
}

// scorePool scores the pseudo-document's own passages. Salience
// distributions are keyed by passage id, so the passage's score is its own
// weight, optionally multiplied by the normalized retrieval prior; the
// other strategies accumulate feature weights through the scorer.
func (r *runner) scorePool(entity string, pd *support.PseudoDocument, dist support.WeightDistribution, poolScores map[string]float64) []support.ScoredPassage {
	scored := make([]support.ScoredPassage, 0, len(pd.Passages))

	if r.cfg.Strategy == StrategySalience {
		var total float64
		if r.cfg.CombinePrior {
			for _, id := range pd.PassageIDs() {
				total += poolScores[id]
			}
		}
		for _, p := range pd.Passages {
			score := dist.Weight(p.ID)
			if r.cfg.CombinePrior && total > 0 {
				score *= poolScores[p.ID] / total
			}
			scored = append(scored, support.ScoredPassage{PassageID: p.ID, Score: score})
		}
		return scored
	}

	for _, p := range pd.Passages {
		scored = append(scored, support.ScoredPassage{
			PassageID: p.ID,
			Score:     r.sc.Score(p, dist, r.cfg.Features),
		})
	}
	return scored
}

// FormatSummary writes the run summary in the CLI's human-readable form.
func FormatSummary(s Summary, w io.Writer) {
	fmt.Fprintf(w, "\nqueries: %d, units: %d, lines written: %d\n", s.Queries, s.Units, s.Lines)
	fmt.Fprintf(w, "skipped: %d no pseudo-document, %d no signal, %d external failures, %d malformed\n",
		s.SkippedNoPseudo, s.SkippedNoSignal, s.SkippedExternal, s.SkippedMalformed)
	if s.Lines > 0 {
		fmt.Fprintf(w, "score mean %.4f, stddev %.4f\n", s.MeanScore, s.StdDevScore)
	}
}
