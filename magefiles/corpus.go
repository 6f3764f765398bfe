//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Corpus ingests corpus/passages.jsonl and builds the retrieval index.
func Corpus() error {
	mg.Deps(Build)

	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, "corpus", "build",
		"--input", filepath.Join("corpus", "passages.jsonl"),
		"--dir", "corpus")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
