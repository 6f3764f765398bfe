// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package experiment composes the scoring core into runnable experiments.
// Every experiment is the same pipeline — pseudo-document, weight
// distribution, passage scoring or query expansion, run output — configured
// by a weighting strategy, a feature mode, and a retrieval scope. New
// experiment variants are configuration values, not new code.
package experiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hscells/trecresults"

	"github.com/pdiddy/support-engine/internal/index"
	"github.com/pdiddy/support-engine/internal/support"
)

// Strategy selects how co-occurrence evidence is converted into a weight
// distribution.
type Strategy string

const (
	// StrategyFrequency divides each feature's occurrence count by the
	// total count.
	StrategyFrequency Strategy = "frequency"

	// StrategyRetrieval weighs each feature occurrence by its passage's
	// normalized retrieval score.
	StrategyRetrieval Strategy = "retrieval"

	// StrategyRelatedness weighs each co-occurring entity by its
	// relatedness to the target entity.
	StrategyRelatedness Strategy = "relatedness"

	// StrategySalience weighs each candidate passage by the target
	// entity's salience within it.
	StrategySalience Strategy = "salience"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyFrequency, StrategyRetrieval, StrategyRelatedness, StrategySalience:
		return Strategy(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown strategy %q: use frequency, retrieval, relatedness, or salience", s)
	}
}

// Scope selects what the distribution is scored against.
type Scope string

const (
	// ScopePool scores the pseudo-document's own passages additively.
	ScopePool Scope = "pool"

	// ScopeExpandCollection builds an expansion query and retrieves from
	// the whole collection.
	ScopeExpandCollection Scope = "expand-collection"

	// ScopeExpandPool builds an expansion query and rescores only the
	// pseudo-document's passages through an ephemeral in-memory index.
	ScopeExpandPool Scope = "expand-pool"
)

// ParseScope converts a config string into a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopePool, ScopeExpandCollection, ScopeExpandPool:
		return Scope(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown scope %q: use pool, expand-collection, or expand-pool", s)
	}
}

// Config selects one experiment variant and its knobs.
type Config struct {
	Strategy Strategy
	Features support.FeatureMode
	Scope    Scope

	// PoolDepth restricts each query's candidate pool to its top-ranked
	// passages.
	PoolDepth int

	// TopTerms is how many distribution entries feed a query expansion.
	TopTerms int

	// TopK caps the ranked results per (query, entity) unit.
	TopK int

	// MaxWorkers caps parallel query processing; 0 = one per CPU, 1 =
	// serial.
	MaxWorkers int

	// OmitQueryTerms drops the base query's own tokens from expansions.
	OmitQueryTerms bool

	// CombinePrior multiplies salience weights with the passage's
	// normalized retrieval score.
	CombinePrior bool

	// RunTag is the run identifier for output lines.
	RunTag string
}

// Validate rejects strategy/feature/scope combinations that can never
// produce a signal.
func (cfg Config) Validate() error {
	if cfg.Strategy == StrategyRelatedness && cfg.Features != support.FeatureEntities {
		return fmt.Errorf("strategy relatedness weighs entities; feature mode must be entities, not %s", cfg.Features)
	}
	if cfg.Strategy == StrategySalience && cfg.Scope != ScopePool {
		return fmt.Errorf("strategy salience weighs the pool's own passages; scope must be pool, not %s", cfg.Scope)
	}
	if cfg.CombinePrior && cfg.Strategy != StrategySalience {
		return fmt.Errorf("combine-prior applies only to strategy salience")
	}
	if cfg.RunTag == "" {
		return fmt.Errorf("run tag must not be empty")
	}
	return nil
}

// Retriever is the slice of the passage index the pipeline needs: record
// lookup for pseudo-document construction and boolean retrieval for
// collection-scope expansion. It must be safe for concurrent reads.
type Retriever interface {
	support.PassageFetcher
	SearchBoolean(ctx context.Context, eq support.ExpansionQuery, topK int) ([]index.Hit, error)
}

// Sources bundles the read-only inputs of a run.
type Sources struct {
	// Passages holds the per-query candidate passage ranking.
	Passages map[string]trecresults.ResultList

	// Entities holds the per-query entity ranking.
	Entities map[string]trecresults.ResultList

	// Qrels holds the per-query entity relevance ground truth.
	Qrels map[string]trecresults.Qrels

	// Queries maps query id to query text, needed for expansion scopes.
	Queries map[string]string

	// Index is the passage index, shared read-only across workers.
	Index Retriever

	// Relatedness and Salience are the oracle lookups.
	Relatedness support.RelatednessFunc
	Salience    support.SalienceFunc

	// Tokenizer normalizes text for Terms-mode features.
	Tokenizer *support.Tokenizer
}
