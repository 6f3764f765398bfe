// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/support-engine/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config resolves the pipeline configuration from the config file and
environment and prints it, with defaults filled in. Useful as a starting
point for a support-engine.yaml.`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := types.PipelineConfig{
		Corpus: types.CorpusConfig{Dir: "corpus"},
		Run: types.RunConfig{
			PoolDepth:     100,
			TopTerms:      20,
			TopK:          100,
			StopWordsLang: "en",
		},
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func init() {
	rootCmd.AddCommand(configCmd)
}
