// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"reflect"
	"testing"
)

func TestPassageEntities(t *testing.T) {
	p := Passage{
		ID: "p1",
		Mentions: []Mention{
			{Entity: "enwiki:Dog"},
			{Entity: "enwiki:Cat"},
			{Entity: "enwiki:Dog"},
		},
	}
	want := []string{"enwiki:Dog", "enwiki:Cat", "enwiki:Dog"}
	if got := p.Entities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entities() = %v, want %v", got, want)
	}
}

func TestMentionsEntity(t *testing.T) {
	p := Passage{
		ID:       "p1",
		Mentions: []Mention{{Entity: "enwiki:Barack_Obama"}},
	}
	if !p.MentionsEntity("enwiki:barack%20obama") {
		t.Error("MentionsEntity = false for a normalized-identical id")
	}
	if p.MentionsEntity("enwiki:Dog") {
		t.Error("MentionsEntity = true for an unmentioned entity")
	}
}

func TestAnchorText(t *testing.T) {
	m := Mention{Entity: "enwiki:New_York_City", Anchor: "NYC"}
	if got := m.AnchorText(); got != "NYC" {
		t.Errorf("AnchorText = %q, want NYC", got)
	}
	m.Anchor = ""
	if got := m.AnchorText(); got != "New York City" {
		t.Errorf("AnchorText = %q, want the title fallback", got)
	}
}
