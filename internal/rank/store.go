// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank loads ranking and ground-truth files and writes ranked run
// files in the standard six-column format. Files are line-oriented and
// whitespace-delimited; a malformed line is reported and skipped, never
// fatal to the rest of the file.
package rank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hscells/trecresults"
)

// LoadRanking reads a ranked run file ("qid iter item rank score tag") into
// per-query result lists ordered by ascending rank. Malformed lines are
// reported to diag and skipped.
func LoadRanking(path string, diag io.Writer) (map[string]trecresults.ResultList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ranking file %s: %w", path, err)
	}
	defer f.Close()

	rankings := make(map[string]trecresults.ResultList)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 6 {
			fmt.Fprintf(diag, "warning: %s line %d: expected 6 columns, got %d\n", path, line, len(fields))
			continue
		}

		rnk, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			fmt.Fprintf(diag, "warning: %s line %d: bad rank %q\n", path, line, fields[3])
			continue
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			fmt.Fprintf(diag, "warning: %s line %d: bad score %q\n", path, line, fields[4])
			continue
		}

		qid := fields[0]
		rankings[qid] = append(rankings[qid], &trecresults.Result{
			Topic:     qid,
			Iteration: fields[1],
			DocId:     fields[2],
			Rank:      rnk,
			Score:     score,
			RunName:   fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ranking file %s: %w", path, err)
	}

	for _, list := range rankings {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
	}
	return rankings, nil
}

// TopIDs returns the item ids of the first n results, or all of them when
// n <= 0 or the list is shorter.
func TopIDs(list trecresults.ResultList, n int) []string {
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = list[i].DocId
	}
	return ids
}

// Scores returns the retrieval score per item id for the first n results.
func Scores(list trecresults.ResultList, n int) map[string]float64 {
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	scores := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		scores[list[i].DocId] = list[i].Score
	}
	return scores
}

// LoadQrels reads a ground-truth file ("qid iter item rel") into per-query
// qrel maps. Malformed lines are reported to diag and skipped.
func LoadQrels(path string, diag io.Writer) (map[string]trecresults.Qrels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening qrels file %s: %w", path, err)
	}
	defer f.Close()

	qrels := make(map[string]trecresults.Qrels)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 4 {
			fmt.Fprintf(diag, "warning: %s line %d: expected 4 columns, got %d\n", path, line, len(fields))
			continue
		}

		rel, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			fmt.Fprintf(diag, "warning: %s line %d: bad relevance %q\n", path, line, fields[3])
			continue
		}

		qid := fields[0]
		if qrels[qid] == nil {
			qrels[qid] = make(trecresults.Qrels)
		}
		qrels[qid][fields[2]] = &trecresults.Qrel{
			Topic:     qid,
			Iteration: fields[1],
			DocId:     fields[2],
			Score:     rel,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading qrels file %s: %w", path, err)
	}
	return qrels, nil
}

// LoadQueries reads a tab-separated "qid<TAB>query text" file. Lines
// without a tab are reported to diag and skipped.
func LoadQueries(path string, diag io.Writer) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries file %s: %w", path, err)
	}
	defer f.Close()

	queries := make(map[string]string)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		id, query, found := strings.Cut(text, "\t")
		if !found || strings.TrimSpace(id) == "" {
			fmt.Fprintf(diag, "warning: %s line %d: expected qid<TAB>text\n", path, line)
			continue
		}
		queries[strings.TrimSpace(id)] = strings.TrimSpace(query)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries file %s: %w", path, err)
	}
	return queries, nil
}
