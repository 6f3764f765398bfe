//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// experimentVariants is the standard sweep: every strategy in its natural
// feature mode against the pool scope.
var experimentVariants = [][2]string{
	{"frequency", "entities"},
	{"frequency", "terms"},
	{"frequency", "anchors"},
	{"retrieval", "entities"},
	{"relatedness", "entities"},
	{"salience", "entities"},
}

// Experiments runs the standard experiment sweep over the rankings in
// rankings/, writing one run file per variant into runs/.
func Experiments() error {
	mg.Deps(Build)

	bin := filepath.Join(binDir, binName)
	for _, v := range experimentVariants {
		strategy, features := v[0], v[1]
		out := filepath.Join("runs", fmt.Sprintf("%s-%s-pool.run", strategy, features))
		fmt.Printf("== %s / %s ==\n", strategy, features)

		cmd := exec.Command(bin, "run",
			"--strategy", strategy,
			"--features", features,
			"--scope", "pool",
			"--corpus-dir", "corpus",
			"--passages", filepath.Join("rankings", "passages.run"),
			"--entities", filepath.Join("rankings", "entities.run"),
			"--qrels", filepath.Join("rankings", "entities.qrels"),
			"--queries", filepath.Join("rankings", "queries.tsv"),
			"--relatedness-cache", filepath.Join("rankings", "relatedness.yaml"),
			"--salience-cache", filepath.Join("rankings", "salience.yaml"),
			"--output", out)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("variant %s-%s: %w", strategy, features, err)
		}
	}
	return nil
}
