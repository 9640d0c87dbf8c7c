// Package astdiff walks the current elaborated declaration tree in
// deterministic (file, gvid, kind) order against the cached
// fingerprint table and emits the raw ModifiedDecls record (spec.md
// §4.5, §3). It performs no propagation itself — that's
// internal/pollution's job — only the one-pass comparison the
// propagation rules then expand.
//
// Grounded on the teacher's internal/module.Loader's in-memory module
// map (the "present on both sides, compare" shape of validateModule)
// and internal/link/resolver.go's memoized module->name lookup table,
// adapted here to compare two generations of the same package instead
// of resolving a value at runtime.
package astdiff

import (
	"sort"

	"github.com/sunholo/increc/internal/ast"
	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/hasher"
	"github.com/sunholo/increc/internal/mangle"
)

// CommonChange holds the per-axis change flags for a non-type
// declaration (spec.md §3, ModifiedDecls.CommonChange).
type CommonChange struct {
	Sig    bool
	SrcUse bool
	Body   bool
}

// Changed reports whether any axis changed.
func (c CommonChange) Changed() bool { return c.Sig || c.SrcUse || c.Body }

// TypeChange holds the per-axis change flags for a type declaration,
// plus its member added/deleted/changed lists (spec.md §3).
type TypeChange struct {
	CommonChange
	InstVar bool
	VirtFun bool
	Order   bool

	Added   []mangle.RawMangledName
	Deleted []mangle.RawMangledName
	Changed map[mangle.RawMangledName]CommonChange
}

// ModifiedDecls is the raw AST diff output (spec.md §3).
type ModifiedDecls struct {
	Added   []mangle.RawMangledName
	Deleted []mangle.RawMangledName

	// DeletedAliases lists type aliases removed; any non-empty list
	// here forces a ROLLBACK per spec.md §4.5/§7.
	DeletedAliases []string
	ChangedAliases []string

	ImportHashChanged bool
	CompileArgChanged bool

	TypeChanges   map[mangle.RawMangledName]*TypeChange
	CommonChanges map[mangle.RawMangledName]CommonChange

	OrderChanged []mangle.RawMangledName

	// RenamedPairs maps a deleted raw mangled name to the added one it
	// was collapsed into: both sides shared sigHash/bodyHash/astKind,
	// so the pair is treated as one declaration that kept its identity
	// rather than a delete+add (SPEC_FULL.md §6.10, RenameMap).
	RenamedPairs *mangle.RenameMap
}

func newModifiedDecls() *ModifiedDecls {
	return &ModifiedDecls{
		TypeChanges:   map[mangle.RawMangledName]*TypeChange{},
		CommonChanges: map[mangle.RawMangledName]CommonChange{},
		RenamedPairs:  mangle.NewRenameMap(),
	}
}

// ForcesFallback reports whether this diff, on its own, forces a full
// rebuild before propagation even starts (spec.md §4.5: alias change,
// import-hash change, compile-arg change).
func (m *ModifiedDecls) ForcesFallback() bool {
	return len(m.DeletedAliases) > 0 || len(m.ChangedAliases) > 0 ||
		m.ImportHashChanged || m.CompileArgChanged
}

// CurrentDecl is one declaration from the current elaborated tree,
// carrying the identity this differ compares against the cache.
type CurrentDecl struct {
	RawName    mangle.RawMangledName
	Decl       ast.Decl
	FileIdx    int
	CgMangle   string
	IsTypeAlias bool
}

// Diff compares the current tree (in file/gvid/kind order — callers
// must pass decls already sorted that way) against cc's fingerprints.
func Diff(cc *cachestore.CompilationCache, current []CurrentDecl, importHash string, compileArgs []string) *ModifiedDecls {
	out := newModifiedDecls()

	if cc.SpecsHash != "" && cc.SpecsHash != importHash {
		out.ImportHashChanged = true
	}
	if !equalArgs(cc.CompileArgs, compileArgs) {
		out.CompileArgChanged = true
	}

	seen := map[mangle.RawMangledName]bool{}
	addedFps := map[mangle.RawMangledName]hasher.DeclFingerprint{}

	for _, cd := range current {
		seen[cd.RawName] = true
		fp := hasher.HashDecl(cd.Decl, cd.FileIdx, cd.CgMangle)

		cached, wasCached := cc.Fingerprints[cd.RawName]
		if !wasCached {
			out.Added = append(out.Added, cd.RawName)
			addedFps[cd.RawName] = fp
			continue
		}

		chg := commonChangeOf(cached, fp)
		if _, ok := cd.Decl.(*ast.TypeDecl); ok {
			tc := &TypeChange{
				CommonChange: chg,
				InstVar:      !equalHashPtr(cached.InstVarHash, fp.InstVarHash),
				VirtFun:      !equalHashPtr(cached.VirtHash, fp.VirtHash),
				Order:        cached.GVID != fp.GVID,
				Changed:      map[mangle.RawMangledName]CommonChange{},
			}
			if chg.Changed() || tc.InstVar || tc.VirtFun || tc.Order {
				out.TypeChanges[cd.RawName] = tc
			}
			if tc.Order {
				out.OrderChanged = append(out.OrderChanged, cd.RawName)
			}
			continue
		}

		if chg.Changed() {
			out.CommonChanges[cd.RawName] = chg
		}
		if cached.GVID != fp.GVID {
			out.OrderChanged = append(out.OrderChanged, cd.RawName)
		}
	}

	names := make([]mangle.RawMangledName, 0, len(cc.Fingerprints))
	for n := range cc.Fingerprints {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, n := range names {
		if !seen[n] {
			out.Deleted = append(out.Deleted, n)
		}
	}

	out.RenamedPairs = detectRenames(cc, out.Deleted, out.Added, addedFps)
	if len(out.RenamedPairs.OldToNew) > 0 {
		oldNames := map[mangle.RawMangledName]bool{}
		newNames := map[mangle.RawMangledName]bool{}
		for old, newName := range out.RenamedPairs.OldToNew {
			oldNames[old] = true
			newNames[newName] = true
		}
		out.Deleted = filterOut(out.Deleted, oldNames)
		out.Added = filterOut(out.Added, newNames)
	}

	return out
}

// detectRenames pairs a deleted raw mangled name with an added one
// when the two share sigHash/bodyHash/astKind: the only identity
// signal a raw diff has for telling a rename apart from an unrelated
// delete-plus-add (SPEC_FULL.md §6.10, RenameMap). A deleted name
// with more than one such candidate is left as a plain delete+add —
// with no enclosing-scope field on DeclFingerprint to break the tie,
// collapsing an ambiguous match risks the wrong identity more than
// the over-approximation it would otherwise avoid.
func detectRenames(cc *cachestore.CompilationCache, deleted, added []mangle.RawMangledName, addedFps map[mangle.RawMangledName]hasher.DeclFingerprint) *mangle.RenameMap {
	rm := mangle.NewRenameMap()
	used := map[mangle.RawMangledName]bool{}
	for _, old := range deleted {
		cached, ok := cc.Fingerprints[old]
		if !ok {
			continue
		}
		var match mangle.RawMangledName
		matches := 0
		for _, a := range added {
			if used[a] {
				continue
			}
			fp := addedFps[a]
			if fp.SigHash == cached.SigHash && fp.BodyHash == cached.BodyHash && fp.ASTKind == cached.ASTKind {
				match = a
				matches++
			}
		}
		if matches == 1 {
			rm.Record(old, match)
			used[match] = true
		}
	}
	return rm
}

func filterOut(list []mangle.RawMangledName, remove map[mangle.RawMangledName]bool) []mangle.RawMangledName {
	out := make([]mangle.RawMangledName, 0, len(list))
	for _, n := range list {
		if !remove[n] {
			out = append(out, n)
		}
	}
	return out
}

func commonChangeOf(cached, fresh hasher.DeclFingerprint) CommonChange {
	return CommonChange{
		Sig:    cached.SigHash != fresh.SigHash,
		SrcUse: cached.SrcUseHash != fresh.SrcUseHash,
		Body:   cached.BodyHash != fresh.BodyHash,
	}
}

func equalHashPtr(a, b *hasher.Hash64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
