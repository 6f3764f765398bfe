// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"fmt"
	"io"

	"github.com/pdiddy/support-engine/internal/support"
)

// RunWriter formats scored passages into ranked run lines:
//
//	<queryId>+<entityId> Q0 <passageId> <rank> <score> <runTag>
//
// Ranks start at 1 within each (query, entity) group, scores render with 4
// decimal digits, and entries with score <= 0 are omitted.
type RunWriter struct {
	w   io.Writer
	tag string
}

// NewRunWriter creates a RunWriter emitting lines to w with the given run
// tag.
func NewRunWriter(w io.Writer, tag string) *RunWriter {
	return &RunWriter{w: w, tag: tag}
}

// GroupTopic builds the combined topic identifier for a (query, entity)
// group.
func GroupTopic(queryID, entityID string) string {
	return queryID + "+" + entityID
}

// WriteGroup sorts the scored passages descending, drops non-positive
// scores, and writes one line per survivor. It returns the number of lines
// written; zero lines for a group is not an error.
func (rw *RunWriter) WriteGroup(topic string, scored []support.ScoredPassage) (int, error) {
	support.SortScored(scored)
	scored = support.FilterPositive(scored)

	for i, sp := range scored {
		_, err := fmt.Fprintf(rw.w, "%s Q0 %s %d %.4f %s\n", topic, sp.PassageID, i+1, sp.Score, rw.tag)
		if err != nil {
			return i, fmt.Errorf("writing run line: %w", err)
		}
	}
	return len(scored), nil
}
