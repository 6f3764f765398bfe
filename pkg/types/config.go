// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CorpusConfig holds settings for the passage corpus and its retrieval index.
type CorpusConfig struct {
	// Dir is the base directory for the corpus (contains passages.db and bluge/).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// OracleConfig holds settings for the relatedness and salience oracles.
type OracleConfig struct {
	// RelatednessCache is the path to the YAML file of memoized pairwise
	// relatedness scores, consulted before any live oracle call.
	RelatednessCache string `json:"relatedness_cache" yaml:"relatedness_cache" mapstructure:"relatedness_cache"`

	// SalienceCache is the path to the YAML file of memoized per-passage
	// salience annotations.
	SalienceCache string `json:"salience_cache" yaml:"salience_cache" mapstructure:"salience_cache"`

	// RelatednessURL, when set, routes relatedness lookups to a remote
	// service instead of the cache file.
	RelatednessURL string `json:"relatedness_url" yaml:"relatedness_url" mapstructure:"relatedness_url"`

	// SecretsDir is the directory of API key files for remote oracles.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`
}

// RunConfig holds settings for an experiment run.
type RunConfig struct {
	// PoolDepth is the number of top-ranked candidate passages per query
	// that form the pool (default 100).
	PoolDepth int `json:"pool_depth" yaml:"pool_depth" mapstructure:"pool_depth"`

	// TopTerms is the number of top distribution entries fed into a query
	// expansion (default 20).
	TopTerms int `json:"top_terms" yaml:"top_terms" mapstructure:"top_terms"`

	// TopK is the number of ranked results kept per (query, entity) unit
	// (default 100).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// MaxWorkers caps the worker pool for parallel query processing.
	// Zero means one worker per CPU; one forces serial execution.
	MaxWorkers int `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`

	// RunTag is the run identifier written in the last column of run files.
	RunTag string `json:"run_tag" yaml:"run_tag" mapstructure:"run_tag"`

	// StopWordsLang selects the stop-word list used for term tokenization
	// (default "en").
	StopWordsLang string `json:"stop_words_lang" yaml:"stop_words_lang" mapstructure:"stop_words_lang"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Corpus  CorpusConfig `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Oracles OracleConfig `json:"oracles" yaml:"oracles" mapstructure:"oracles"`
	Run     RunConfig    `json:"run" yaml:"run" mapstructure:"run"`
}
