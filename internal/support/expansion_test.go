// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package support

import (
	"reflect"
	"testing"
)

func TestBuildExpansionQuery(t *testing.T) {
	top := []WeightedFeature{
		{Key: "enwiki:Machine_learning", Weight: 0.6},
		{Key: "enwiki:Statistics", Weight: 0.3},
	}

	q := BuildExpansionQuery("neural networks", top, ExpansionOptions{})

	want := []Clause{
		{Field: "text", Term: "neural", Weight: 1.0},
		{Field: "text", Term: "networks", Weight: 1.0},
		{Field: "text", Term: "machine", Weight: 0.6},
		{Field: "text", Term: "learning", Weight: 0.6},
		{Field: "text", Term: "statistics", Weight: 0.3},
	}
	if !reflect.DeepEqual(q.Clauses, want) {
		t.Errorf("clauses = %v, want %v", q.Clauses, want)
	}
}

func TestBuildExpansionQueryOmitBase(t *testing.T) {
	top := []WeightedFeature{{Key: "wolf", Weight: 0.5}}
	q := BuildExpansionQuery("neural networks", top, ExpansionOptions{OmitQueryTerms: true})

	want := []Clause{{Field: "text", Term: "wolf", Weight: 0.5}}
	if !reflect.DeepEqual(q.Clauses, want) {
		t.Errorf("clauses = %v, want %v", q.Clauses, want)
	}
}

func TestBuildExpansionQueryEmpty(t *testing.T) {
	q := BuildExpansionQuery("", nil, ExpansionOptions{OmitQueryTerms: true})
	if !q.IsEmpty() {
		t.Errorf("q = %v, want empty", q.Clauses)
	}
}

func TestBuildExpansionQueryEntityField(t *testing.T) {
	top := []WeightedFeature{
		{Key: "enwiki:Dog", Weight: 0.5},
		{Key: "plainterm", Weight: 0.2},
	}
	q := BuildExpansionQuery("", top, ExpansionOptions{
		OmitQueryTerms: true,
		EntityField:    "entity",
	})

	want := []Clause{
		{Field: "text", Term: "dog", Weight: 0.5},
		{Field: "entity", Term: "enwiki:Dog", Weight: 0.5},
		{Field: "text", Term: "plainterm", Weight: 0.2},
	}
	if !reflect.DeepEqual(q.Clauses, want) {
		t.Errorf("clauses = %v, want %v", q.Clauses, want)
	}
}

func TestBuildExpansionQueryBudget(t *testing.T) {
	top := []WeightedFeature{
		{Key: "alpha", Weight: 0.9},
		{Key: "beta", Weight: 0.8},
		{Key: "gamma", Weight: 0.7},
	}
	q := BuildExpansionQuery("one two three", top, ExpansionOptions{MaxTerms: 4})

	if got := len(q.Clauses); got != 4 {
		t.Fatalf("len(clauses) = %d, want 4", got)
	}
	// The one remaining slot goes to the highest-weighted feature.
	last := q.Clauses[3]
	if last.Term != "alpha" || last.Weight != 0.9 {
		t.Errorf("clauses[3] = %v, want alpha at 0.9", last)
	}
}

func TestBuildExpansionQueryHardCapMidGroup(t *testing.T) {
	// A multi-word feature that would overflow the cap is cut mid-group.
	top := []WeightedFeature{{Key: "enwiki:One_Two_Three", Weight: 0.5}}
	q := BuildExpansionQuery("", top, ExpansionOptions{OmitQueryTerms: true, MaxTerms: 2})

	if got := len(q.Clauses); got != 2 {
		t.Fatalf("len(clauses) = %d, want 2", got)
	}
	if q.Clauses[0].Term != "one" || q.Clauses[1].Term != "two" {
		t.Errorf("clauses = %v, want one, two", q.Clauses)
	}
}
