package errors

import "testing"

func TestErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		phase    string
		category string
	}{
		{"HSH001", HSH001, "hasher", "structure"},
		{"HSH003", HSH003, "hasher", "internal"},
		{"MAN001", MAN001, "mangle", "collision"},
		{"CCH002", CCH002, "cachestore", "schema"},
		{"GRF002", GRF002, "graph", "cycle"},
		{"DIF001", DIF001, "astdiff", "alignment"},
		{"POL001", POL001, "pollution", "convergence"},
		{"USG001", USG001, "usage", "attribution"},
		{"CHR002", CHR002, "chir", "devirtualize"},
		{"MRG001", MRG001, "irmerge", "obsoletion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, exists := GetErrorInfo(tt.code)
			if !exists {
				t.Fatalf("error code %s not found in registry", tt.code)
			}
			if info.Code != tt.code {
				t.Errorf("code mismatch: got %s, want %s", info.Code, tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("phase mismatch for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("category mismatch for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestIsPhase(t *testing.T) {
	tests := []struct {
		code  string
		phase string
		want  bool
	}{
		{HSH001, "hasher", true},
		{HSH001, "mangle", false},
		{CCH001, "cachestore", true},
		{MRG003, "irmerge", true},
		{MRG003, "chir", false},
	}
	for _, tt := range tests {
		if got := IsPhase(tt.code, tt.phase); got != tt.want {
			t.Errorf("IsPhase(%s, %s) = %v, want %v", tt.code, tt.phase, got, tt.want)
		}
	}
}

func TestAllErrorCodesInRegistry(t *testing.T) {
	allCodes := []string{
		HSH001, HSH002, HSH003,
		MAN001, MAN002, MAN003,
		CCH001, CCH002, CCH003, CCH004,
		GRF001, GRF002,
		DIF001, DIF002,
		POL001, POL002,
		USG001, USG002,
		CHR001, CHR002, CHR003,
		MRG001, MRG002, MRG003,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			if _, exists := GetErrorInfo(code); !exists {
				t.Errorf("error code %s is defined but not in registry", code)
			}
		})
	}

	if len(ErrorRegistry) < len(allCodes) {
		t.Errorf("registry has %d codes, expected at least %d", len(ErrorRegistry), len(allCodes))
	}
}

func TestErrorInfoConsistency(t *testing.T) {
	validPhases := map[string]bool{
		"hasher": true, "mangle": true, "cachestore": true, "graph": true,
		"astdiff": true, "pollution": true, "usage": true, "chir": true,
		"irmerge": true,
	}

	for code, info := range ErrorRegistry {
		if info.Code != code {
			t.Errorf("code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if len(code) < 4 || len(code) > 6 {
			t.Errorf("invalid code format: %s", code)
		}
		if !validPhases[info.Phase] {
			t.Errorf("invalid phase for %s: %s", code, info.Phase)
		}
		if info.Description == "" {
			t.Errorf("empty description for %s", code)
		}
	}
}
