// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pdiddy/support-engine/internal/corpus"
	"github.com/pdiddy/support-engine/internal/experiment"
	"github.com/pdiddy/support-engine/internal/index"
	"github.com/pdiddy/support-engine/internal/oracle"
	"github.com/pdiddy/support-engine/internal/rank"
	"github.com/pdiddy/support-engine/internal/secrets"
	"github.com/pdiddy/support-engine/internal/support"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one support passage experiment",
	Long: `Run executes one experiment configuration over every query: for each
relevant-and-retrieved entity it builds a pseudo-document from the query's
candidate passage pool, derives a weight distribution per the chosen
strategy, scores passages per the chosen feature mode and scope, and writes
a ranked run file.

Strategies: frequency, retrieval, relatedness, salience.
Feature modes: terms, entities, anchors.
Scopes: pool, expand-collection, expand-pool.`,
	RunE: runExperiment,
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := experimentConfig(cmd)
	if err != nil {
		return err
	}

	dir := stringSetting(cmd, "corpus-dir", "corpus.dir", "corpus")
	passagesPath, _ := cmd.Flags().GetString("passages")
	entitiesPath, _ := cmd.Flags().GetString("entities")
	qrelsPath, _ := cmd.Flags().GetString("qrels")
	queriesPath, _ := cmd.Flags().GetString("queries")
	outputPath, _ := cmd.Flags().GetString("output")

	if passagesPath == "" || entitiesPath == "" || qrelsPath == "" {
		return fmt.Errorf("ranking files required: provide --passages, --entities, and --qrels")
	}
	if outputPath == "" {
		return fmt.Errorf("output required: provide --output for the run file")
	}
	if queriesPath == "" && cfg.Scope != experiment.ScopePool && !cfg.OmitQueryTerms {
		return fmt.Errorf("queries file required: expansion scopes need --queries (or --omit-query-terms)")
	}

	src, cleanup, err := loadSources(cmd, dir, passagesPath, entitiesPath, qrelsPath, queriesPath)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating run file %s: %w", outputPath, err)
	}
	defer out.Close()

	bar := progressbar.Default(int64(len(src.Entities)), "queries")
	summary, err := experiment.Run(context.Background(), cfg, src, out, os.Stderr, func() {
		bar.Add(1)
	})
	if err != nil {
		return err
	}

	experiment.FormatSummary(summary, os.Stdout)
	fmt.Printf("run written to %s\n", outputPath)
	return nil
}

// experimentConfig builds the experiment configuration from flags, with
// config file fallbacks for the numeric knobs.
func experimentConfig(cmd *cobra.Command) (experiment.Config, error) {
	strategyStr, _ := cmd.Flags().GetString("strategy")
	featuresStr, _ := cmd.Flags().GetString("features")
	scopeStr, _ := cmd.Flags().GetString("scope")

	strategy, err := experiment.ParseStrategy(strategyStr)
	if err != nil {
		return experiment.Config{}, err
	}
	features, err := support.ParseFeatureMode(featuresStr)
	if err != nil {
		return experiment.Config{}, err
	}
	scope, err := experiment.ParseScope(scopeStr)
	if err != nil {
		return experiment.Config{}, err
	}

	omitQueryTerms, _ := cmd.Flags().GetBool("omit-query-terms")
	combinePrior, _ := cmd.Flags().GetBool("combine-prior")
	serial, _ := cmd.Flags().GetBool("serial")

	workers := intSetting(cmd, "workers", "run.max_workers", 0)
	if serial {
		workers = 1
	}

	cfg := experiment.Config{
		Strategy:       strategy,
		Features:       features,
		Scope:          scope,
		PoolDepth:      intSetting(cmd, "pool-depth", "run.pool_depth", 100),
		TopTerms:       intSetting(cmd, "top-terms", "run.top_terms", 20),
		TopK:           intSetting(cmd, "top-k", "run.top_k", 100),
		MaxWorkers:     workers,
		OmitQueryTerms: omitQueryTerms,
		CombinePrior:   combinePrior,
		RunTag:         stringSetting(cmd, "tag", "run.run_tag", defaultRunTag(strategy, features, scope)),
	}
	return cfg, cfg.Validate()
}

// relatednessSource picks the relatedness oracle: a remote service when
// --relatedness-url is set (API key from the secrets directory), otherwise
// the local YAML cache.
func relatednessSource(cmd *cobra.Command) (support.RelatednessFunc, error) {
	if baseURL := stringSetting(cmd, "relatedness-url", "oracles.relatedness_url", ""); baseURL != "" {
		keys, err := secrets.Load(stringSetting(cmd, "secrets-dir", "oracles.secrets_dir", "secrets"))
		if err != nil {
			return nil, err
		}
		return oracle.NewRemoteRelatedness(baseURL, keys[secrets.RelatednessAPIKey], nil).Func(), nil
	}

	cache, err := oracle.LoadRelatednessCache(stringSetting(cmd, "relatedness-cache", "oracles.relatedness_cache", ""))
	if err != nil {
		return nil, err
	}
	return cache.Func(), nil
}

// defaultRunTag names a run after its configuration, e.g.
// "frequency-entities-pool".
func defaultRunTag(strategy experiment.Strategy, features support.FeatureMode, scope experiment.Scope) string {
	return fmt.Sprintf("%s-%s-%s", strategy, features, scope)
}

// loadSources opens the corpus index and reads every input file. The
// returned cleanup closes the store and index.
func loadSources(cmd *cobra.Command, dir, passagesPath, entitiesPath, qrelsPath, queriesPath string) (experiment.Sources, func(), error) {
	store, err := corpus.Open(dir)
	if err != nil {
		return experiment.Sources{}, nil, err
	}

	ix, err := index.Open(dir, store)
	if err != nil {
		store.Close()
		return experiment.Sources{}, nil, err
	}
	cleanup := func() {
		ix.Close()
		store.Close()
	}

	passages, err := rank.LoadRanking(passagesPath, os.Stderr)
	if err != nil {
		cleanup()
		return experiment.Sources{}, nil, err
	}
	entities, err := rank.LoadRanking(entitiesPath, os.Stderr)
	if err != nil {
		cleanup()
		return experiment.Sources{}, nil, err
	}
	qrels, err := rank.LoadQrels(qrelsPath, os.Stderr)
	if err != nil {
		cleanup()
		return experiment.Sources{}, nil, err
	}

	queries := map[string]string{}
	if queriesPath != "" {
		queries, err = rank.LoadQueries(queriesPath, os.Stderr)
		if err != nil {
			cleanup()
			return experiment.Sources{}, nil, err
		}
	}

	relatedness, err := relatednessSource(cmd)
	if err != nil {
		cleanup()
		return experiment.Sources{}, nil, err
	}
	salCache, err := oracle.LoadSalienceCache(stringSetting(cmd, "salience-cache", "oracles.salience_cache", ""))
	if err != nil {
		cleanup()
		return experiment.Sources{}, nil, err
	}

	lang := stringSetting(cmd, "stop-words-lang", "run.stop_words_lang", "en")

	return experiment.Sources{
		Passages:    passages,
		Entities:    entities,
		Qrels:       qrels,
		Queries:     queries,
		Index:       ix,
		Relatedness: relatedness,
		Salience:    salCache.Func(),
		Tokenizer:   support.NewTokenizer(lang, nil),
	}, cleanup, nil
}

func init() {
	runCmd.Flags().String("strategy", "frequency", "weighting strategy: frequency, retrieval, relatedness, salience")
	runCmd.Flags().String("features", "entities", "feature mode: terms, entities, anchors")
	runCmd.Flags().String("scope", "pool", "scoring scope: pool, expand-collection, expand-pool")

	runCmd.Flags().String("passages", "", "candidate passage ranking file (6-column run format)")
	runCmd.Flags().String("entities", "", "entity ranking file (6-column run format)")
	runCmd.Flags().String("qrels", "", "entity ground truth file (4-column qrels format)")
	runCmd.Flags().String("queries", "", "tab-separated query id / query text file")
	runCmd.Flags().String("output", "", "run file to write")

	runCmd.Flags().String("corpus-dir", "", "corpus directory (contains passages.db and bluge/)")
	runCmd.Flags().String("relatedness-cache", "", "YAML cache of pairwise entity relatedness scores")
	runCmd.Flags().String("relatedness-url", "", "remote relatedness service endpoint (overrides the cache)")
	runCmd.Flags().String("secrets-dir", "", "directory of API key files for remote oracles")
	runCmd.Flags().String("salience-cache", "", "YAML cache of per-passage salience annotations")

	runCmd.Flags().Int("pool-depth", 100, "candidate passages per query")
	runCmd.Flags().Int("top-terms", 20, "distribution entries per expansion query")
	runCmd.Flags().Int("top-k", 100, "ranked results per (query, entity) unit")
	runCmd.Flags().Int("workers", 0, "parallel query workers (0 = one per CPU)")
	runCmd.Flags().Bool("serial", false, "process queries serially")
	runCmd.Flags().Bool("omit-query-terms", false, "drop base query tokens from expansion queries")
	runCmd.Flags().Bool("combine-prior", false, "multiply salience weights by the retrieval score prior")
	runCmd.Flags().String("tag", "", "run tag (default: strategy-features-scope)")
	runCmd.Flags().String("stop-words-lang", "", "stop-word language code for term tokenization (default en)")

	rootCmd.AddCommand(runCmd)
}
