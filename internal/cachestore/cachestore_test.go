package cachestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sunholo/increc/internal/hasher"
	"github.com/sunholo/increc/internal/mangle"
	"github.com/sunholo/increc/testutil"
	"gopkg.in/yaml.v3"
)

// decodeYAMLForGolden re-decodes a YAML dump into a plain interface{}
// tree that testutil's JSON-based golden comparison can consume.
func decodeYAMLForGolden(data []byte, out *interface{}) error {
	return yaml.Unmarshal(data, out)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg.cache")

	cc := NewCompilationCache()
	cc.SpecsHash = "abc123"
	cc.CompileArgs = []string{"-O2", "--target=x86_64"}
	cc.Fingerprints["_CC$pkg.add(Int):Int"] = hasher.DeclFingerprint{SigHash: 42, ASTKind: "FuncDecl"}
	cc.BitcodeFiles = []string{"pkg.bc"}

	if err := Store(path, cc); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SpecsHash != cc.SpecsHash {
		t.Errorf("SpecsHash = %q, want %q", got.SpecsHash, cc.SpecsHash)
	}
	if got.Fingerprints["_CC$pkg.add(Int):Int"].SigHash != 42 {
		t.Errorf("fingerprint not round-tripped")
	}
}

func TestStoreIsByteEqualForEqualInput(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.cache")
	p2 := filepath.Join(dir, "b.cache")

	mk := func() *CompilationCache {
		cc := NewCompilationCache()
		cc.SpecsHash = "same"
		cc.Fingerprints["x"] = hasher.DeclFingerprint{SigHash: 1}
		return cc
	}
	if err := Store(p1, mk()); err != nil {
		t.Fatal(err)
	}
	if err := Store(p2, mk()); err != nil {
		t.Fatal(err)
	}
	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if string(b1) != string(b2) {
		t.Error("expected byte-equal cache files for hash-equal inputs")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cache"))
	if err == nil || !os.IsNotExist(err) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestLoadIllegalCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.cache")
	if err := os.WriteFile(path, []byte("not a cache blob"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error loading a junk file")
	}
}

func TestDumpYAMLSortsDeclsDeterministically(t *testing.T) {
	cc := NewCompilationCache()
	cc.Fingerprints["zzz"] = hasher.DeclFingerprint{}
	cc.Fingerprints["aaa"] = hasher.DeclFingerprint{}

	out, err := DumpYAML(cc)
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	s := string(out)
	if !(indexOf(s, "aaa") < indexOf(s, "zzz")) {
		t.Errorf("expected sorted decl order in dump, got:\n%s", s)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestDanglingDeletesKeepsOnlyCachedNamesAbsentFromNext(t *testing.T) {
	cc := NewCompilationCache()
	cc.Fingerprints["old"] = hasher.DeclFingerprint{}

	next := map[mangle.RawMangledName]hasher.DeclFingerprint{
		"new": {},
	}
	deleteSet := []mangle.RawMangledName{"old", "neverexisted"}

	got := DanglingDeletes(cc, next, deleteSet)
	if len(got) != 1 || got[0] != "old" {
		t.Errorf("DanglingDeletes = %v, want [old]", got)
	}
}

func TestDumpYAMLDiffIsEmptyForIdenticalCaches(t *testing.T) {
	mk := func() *CompilationCache {
		cc := NewCompilationCache()
		cc.SpecsHash = "same-dump"
		cc.Fingerprints["pkg.add"] = hasher.DeclFingerprint{SigHash: 1, ASTKind: "FuncDecl"}
		cc.Fingerprints["pkg.Point"] = hasher.DeclFingerprint{SigHash: 2, ASTKind: "TypeDecl"}
		return cc
	}

	var a, b interface{}
	outA, err := DumpYAML(mk())
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	outB, err := DumpYAML(mk())
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	if err := decodeYAMLForGolden(outA, &a); err != nil {
		t.Fatalf("decoding dump A: %v", err)
	}
	if err := decodeYAMLForGolden(outB, &b); err != nil {
		t.Fatalf("decoding dump B: %v", err)
	}

	if diff := testutil.DiffJSON(a, b); diff != "JSON Diff:\n" {
		t.Errorf("expected no diff between two dumps of hash-equal caches, got:\n%s", diff)
	}
}

func TestRawMangled2DeclMapFollowsRename(t *testing.T) {
	cc := NewCompilationCache()
	cc.Fingerprints["newName"] = hasher.DeclFingerprint{SigHash: 7}

	rm := mangle.NewRenameMap()
	rm.Record("oldName", "newName")

	fp, ok := RawMangled2DeclMap(cc, rm, "oldName")
	if !ok || fp.SigHash != 7 {
		t.Errorf("expected rename-following lookup to find fingerprint, got %v, %v", fp, ok)
	}
}
