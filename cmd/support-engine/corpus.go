// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/support-engine/internal/corpus"
	"github.com/pdiddy/support-engine/internal/index"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the passage corpus and its retrieval index",
}

// --- build subcommand ---

var corpusBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Ingest a passages JSONL file and build the retrieval index",
	Long: `Build reads passage records (one JSON object per line: id, text, and
either a flat entity list or mentions with anchor texts) into the corpus
SQLite store, then writes the Bluge retrieval index from it. An unchanged
input file is skipped on repeat builds unless --force is given.`,
	RunE: runCorpusBuild,
}

func runCorpusBuild(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	force, _ := cmd.Flags().GetBool("force")
	dir := stringSetting(cmd, "dir", "corpus.dir", "corpus")

	if input == "" {
		return fmt.Errorf("input required: provide --input with a passages JSONL file")
	}

	store, err := corpus.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if !force {
		unchanged, err := store.SourceUnchanged(ctx, input)
		if err != nil {
			return err
		}
		if unchanged {
			fmt.Printf("corpus unchanged, skipping (use --force to rebuild)\n")
			return nil
		}
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening corpus input %s: %w", input, err)
	}
	defer f.Close()

	summary, err := store.IngestJSONL(ctx, f, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("stored %d passages (%d malformed lines skipped)\n", summary.Stored, summary.Malformed)

	indexed, err := index.Build(ctx, dir, store, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d passages\n", indexed)

	return store.RecordSource(ctx, input)
}

// --- get subcommand ---

var corpusGetCmd = &cobra.Command{
	Use:   "get [passage-id]",
	Short: "Print one passage record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusGet,
}

func runCorpusGet(cmd *cobra.Command, args []string) error {
	dir := stringSetting(cmd, "dir", "corpus.dir", "corpus")

	store, err := corpus.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	p, ok, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("passage %s not found", args[0])
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func init() {
	corpusCmd.PersistentFlags().String("dir", "", "corpus directory (contains passages.db and bluge/)")

	corpusBuildCmd.Flags().String("input", "", "passages JSONL file to ingest")
	corpusBuildCmd.Flags().Bool("force", false, "rebuild even when the input file is unchanged")

	corpusCmd.AddCommand(corpusBuildCmd)
	corpusCmd.AddCommand(corpusGetCmd)

	rootCmd.AddCommand(corpusCmd)
}
