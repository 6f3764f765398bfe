// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the support-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the support-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "support-engine",
	Short: "Entity support passage retrieval experiments",
	Long: `support-engine finds, for each query-relevant entity, the candidate
passages that best support it. Each experiment builds a per-entity
pseudo-document from the candidate pool, derives a weight distribution over
co-occurring entities, terms, or anchor texts, and either scores the pool
additively or expands the query and retrieves again.

Build a corpus first with "corpus build", then execute experiments with
"run". Results are written as standard ranked run files.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./support-engine.yaml or ~/.config/support-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("support-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "support-engine"))
		}
	}

	viper.SetEnvPrefix("SUPPORT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting returns the flag value when set, otherwise the config file
// value for key, otherwise fallback.
func stringSetting(cmd *cobra.Command, flag, key, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

// intSetting returns the flag value when changed, otherwise the config file
// value for key, otherwise fallback.
func intSetting(cmd *cobra.Command, flag, key string, fallback int) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
