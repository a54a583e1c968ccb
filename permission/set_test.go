package permission

import (
	"reflect"
	"testing"
)

func TestSetPredicates(t *testing.T) {
	s := NewSet("audits.view", " audits.edit ", "")

	if s.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", s.Len())
	}
	if !s.Has("audits.edit") {
		t.Fatal("expected trimmed member to be present")
	}
	if s.Has("") {
		t.Fatal("blank items must be skipped")
	}
	if s.HasAny() {
		t.Fatal("HasAny of nothing must be false")
	}
	if !s.HasAll() {
		t.Fatal("HasAll of nothing must be true")
	}
	if !s.HasAny("processes.view", "audits.view") {
		t.Fatal("expected HasAny to match one member")
	}
	if s.HasAll("audits.view", "processes.view") {
		t.Fatal("expected HasAll to fail on a missing member")
	}
}

func TestNilSetIsEmpty(t *testing.T) {
	var s Set
	if s.Has("x") || s.HasAny("x") || s.Len() != 0 {
		t.Fatal("nil set must behave as empty")
	}
	if got := s.Sorted(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if c := s.Clone(); c == nil {
		t.Fatal("clone of nil must be allocated")
	}
}

func TestSetSortedAndClone(t *testing.T) {
	s := NewSet("b", "c", "a")
	if got := s.Sorted(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
	c := s.Clone()
	c.Add("d")
	if s.Has("d") {
		t.Fatal("clone must not alias the original")
	}
	s.Merge(NewSet("z"))
	if !s.Has("z") {
		t.Fatal("merge must add members")
	}
}

func TestSplitCode(t *testing.T) {
	cases := []struct {
		code, resource, action string
		ok                     bool
	}{
		{"audits.view", "audits", "view", true},
		{"audits:view", "audits", "view", true},
		{"sogcs.habilitacion.change", "sogcs.habilitacion", "change", true},
		{"admin", "", "", false},
		{".view", "", "", false},
		{"audits.", "", "", false},
	}
	for _, tc := range cases {
		resource, action, ok := SplitCode(tc.code)
		if resource != tc.resource || action != tc.action || ok != tc.ok {
			t.Fatalf("SplitCode(%q) = %q, %q, %v", tc.code, resource, action, ok)
		}
	}
}
