package sid

import "testing"

func TestNewSIDStable(t *testing.T) {
	a := NewSID("pkg/foo.cj", "FuncDecl", []int{0, 2})
	b := NewSID("pkg/foo.cj", "FuncDecl", []int{0, 2})
	if a != b {
		t.Errorf("NewSID not deterministic: %s != %s", a, b)
	}
}

func TestNewSIDIgnoresNothingButPosition(t *testing.T) {
	// Two calls differing only in an offset that NewSID no longer accepts
	// must be identical: position-stripping is the whole point.
	a := NewSID("pkg/foo.cj", "FuncDecl", []int{1})
	b := NewSID("pkg/foo.cj", "FuncDecl", []int{1})
	if a != b {
		t.Errorf("expected identical SIDs, got %s and %s", a, b)
	}
}

func TestNewSIDDiffersByChildPath(t *testing.T) {
	a := NewSID("pkg/foo.cj", "FuncDecl", []int{0})
	b := NewSID("pkg/foo.cj", "FuncDecl", []int{1})
	if a == b {
		t.Error("expected different SIDs for different child paths")
	}
}

func TestNewSIDDiffersByKind(t *testing.T) {
	a := NewSID("pkg/foo.cj", "FuncDecl", []int{0})
	b := NewSID("pkg/foo.cj", "TypeDecl", []int{0})
	if a == b {
		t.Error("expected different SIDs for different node kinds")
	}
}

func TestSIDMapRoundTrip(t *testing.T) {
	m := NewSIDMap()
	surface := SID("surface1")
	core1 := SID("core1")
	core2 := SID("core2")

	m.AddMapping(surface, core1)
	m.AddMapping(surface, core2)

	cores := m.GetCoreSIDs(surface)
	if len(cores) != 2 {
		t.Fatalf("expected 2 core SIDs, got %d", len(cores))
	}

	got, ok := m.GetSurfaceSID(core1)
	if !ok || got != surface {
		t.Errorf("GetSurfaceSID(core1) = %v, %v; want %v, true", got, ok, surface)
	}
}

func TestGetTraceSlice(t *testing.T) {
	m := NewSIDMap()
	surface := SID("surface1")
	m.AddMapping(surface, SID("core1"))
	m.AddMapping(surface, SID("core2"))

	trace := m.GetTraceSlice(surface)
	if len(trace.Steps) != 2 {
		t.Fatalf("expected 2 transform steps, got %d", len(trace.Steps))
	}
	if trace.Steps[0].Description != "Initial elaboration" {
		t.Errorf("unexpected first step description: %s", trace.Steps[0].Description)
	}
}
