// Package pollution implements the fixed-point propagation that turns
// a raw AST diff into the full recompile and delete sets (spec.md
// §4.6). It owns the per-record state machine
// UNSEEN -> BODY -> API -> INSTANTIATION -> BOX: each transition is
// monotone, so re-visiting an already-polluted record at an
// equal-or-lower category is a no-op (spec.md's "idempotence cache").
//
// Grounded on the teacher's internal/link/module_linker.go (a
// worklist-style resolver that walks import edges exactly once per
// module, memoizing results in a map keyed by identity — the same
// shape this fixed point needs, just over RawMangledName instead of
// module path) and the relation-graph edges internal/graph builds.
package pollution

import (
	"sort"

	"github.com/sunholo/increc/internal/astdiff"
	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/graph"
	"github.com/sunholo/increc/internal/mangle"
)

// Category is a record's position in the UNSEEN -> BODY -> API ->
// INSTANTIATION -> BOX state machine (spec.md §4.6).
type Category int

const (
	Unseen Category = iota
	Body
	API
	Instantiation
	Box
)

// Name is shorthand for a raw mangled name.
type Name = mangle.RawMangledName

// Result is the pollution analyser's output: the recompile set, the
// ordered delete lists, and whether a fallback condition fired
// (spec.md §4.6).
type Result struct {
	Recompile map[Name]Category
	// DeleteRawMangled is the ordered delete list of raw mangled names.
	DeleteRawMangled []Name
	// DeleteCgMangled is the ordered delete list of code-generator
	// mangled names, derived by walking cgMangle in the cached
	// fingerprint tree for every deleted raw mangled name.
	DeleteCgMangled []string

	Fallback       bool
	FallbackReason string
}

// analyser carries the per-run idempotence cache and read-only graph.
type analyser struct {
	g         *graph.Graph
	cc        *cachestore.CompilationCache
	recompile map[Name]Category
	worklist  []Name

	// renameOldName maps a rename's new name back to the old one it
	// replaced, so cache lookups keyed by the previous build's
	// identity (CHIROptEffects, CompilerAddedUsages, ClosureConvertedOut)
	// still resolve for a renamed-but-identity-preserved decl.
	renameOldName map[Name]Name
}

// cachedName resolves name to the identity it was cached under in the
// previous build: itself, unless it is the new side of a rename pair.
func (a *analyser) cachedName(name Name) Name {
	if old, ok := a.renameOldName[name]; ok {
		return old
	}
	return name
}

// Analyse expands diff into the full recompile/delete sets, honouring
// the propagation rules of spec.md §4.6.
func Analyse(cc *cachestore.CompilationCache, g *graph.Graph, diff *astdiff.ModifiedDecls) *Result {
	if diff.ForcesFallback() {
		return &Result{Fallback: true, FallbackReason: "alias or import/compile-arg change forces fallback"}
	}

	a := &analyser{g: g, cc: cc, recompile: map[Name]Category{}, renameOldName: map[Name]Name{}}
	if diff.RenamedPairs != nil {
		for old, newName := range diff.RenamedPairs.OldToNew {
			a.renameOldName[newName] = old
		}
	}

	for _, n := range diff.Added {
		a.promote(n, API)
	}
	for name, chg := range diff.CommonChanges {
		if chg.Sig {
			a.promote(name, API)
			a.propagateSigChange(name)
		} else if chg.Body {
			a.promote(name, Body)
			a.propagateBodyChange(name)
		} else if chg.SrcUse {
			a.promote(name, Body)
		}
	}
	for name, tc := range diff.TypeChanges {
		if tc.Sig {
			a.promote(name, API)
			a.propagateTypeSigChange(name)
		}
		if tc.InstVar {
			a.promote(name, API)
			a.propagateTypeInstVarChange(name)
		}
		if tc.VirtFun {
			a.promote(name, API)
			a.propagateTypeVirtFunChange(name)
		}
		if tc.Body && !tc.Sig {
			a.promote(name, Body)
		}
		for _, added := range tc.Added {
			a.promote(added, API)
		}
		for _, del := range tc.Deleted {
			a.promote(del, API)
		}
	}
	for _, name := range diff.OrderChanged {
		a.promote(name, Instantiation)
	}

	a.drainWorklist()

	for _, name := range diff.Deleted {
		a.propagateExtendDeleted(name)
	}

	if fallback := a.checkClosureConvertedOut(cc); fallback != "" {
		return &Result{Fallback: true, FallbackReason: fallback}
	}

	return a.finish(diff)
}

// promote moves name to cat if cat is strictly further along the
// state machine than its current category, enqueuing it for
// propagation exactly once per transition.
func (a *analyser) promote(name Name, cat Category) {
	if cur, ok := a.recompile[name]; ok && cur >= cat {
		return
	}
	a.recompile[name] = cat
	a.worklist = append(a.worklist, name)
}

func (a *analyser) drainWorklist() {
	for len(a.worklist) > 0 {
		n := a.worklist[0]
		a.worklist = a.worklist[1:]
		a.propagateCHIROpt(n)
		a.propagateGeneric(n)
	}
}

// propagateSigChange implements spec.md §4.6's "Sig change on
// non-type decl" rule: recompile every unqualified use in scope,
// every package-qualified use with a matching package (and its
// aliases), and every qualified use of the same identifier. The LHS
// type of a qualified use is not checked.
func (a *analyser) propagateSigChange(name Name) {
	for _, user := range graph.SortedNames(a.g.APIUses[name]) {
		a.promote(user, API)
	}
	for ident, byScope := range a.g.Unqualified {
		if ident != string(name) {
			continue
		}
		for scope := range byScope {
			a.promote(scope, API)
		}
	}
	for key, users := range a.g.Qualified {
		if key.Ident != string(name) {
			continue
		}
		for _, u := range graph.SortedNames(users) {
			a.promote(u, API)
		}
	}

	pkg := mangle.PackageOf(name)
	if pkg == "" {
		return
	}
	ident := mangle.IdentOf(name)

	packages := map[string]bool{pkg: true}
	for alias := range a.g.PackageAlias[pkg] {
		packages[alias] = true
	}
	for pkgName := range packages {
		key := graph.PackageQualifiedKey{Ident: ident, Package: pkgName}
		for _, u := range graph.SortedNames(a.g.PackageQualified[key]) {
			a.promote(u, API)
		}
	}

	for alias := range a.g.DeclAlias[graph.PackageQualifiedKey{Ident: ident, Package: pkg}] {
		for scope := range a.g.Unqualified[alias] {
			a.promote(scope, API)
		}
	}
}

// propagateBodyChange implements spec.md §4.6's "Body change on
// non-inlinable non-type decl" rule: recompile the decl's CHIR-opt
// clients and every body-level user recorded in the graph. Inlinable
// and non-inlinable declarations are treated alike.
func (a *analyser) propagateBodyChange(name Name) {
	for _, effected := range a.cc.CHIROptEffects[a.cachedName(name)] {
		a.promote(effected, Body)
	}
	for _, user := range graph.SortedNames(a.g.BodyUses[name]) {
		a.promote(user, Body)
	}
}

// propagateTypeSigChange implements the "Type sig change" rule:
// recompile every extend of the type and every box-use site. The
// type's function/property/constructor members are not recompiled
// here: the graph records no type-to-member edges.
func (a *analyser) propagateTypeSigChange(typeName Name) {
	for _, extend := range a.g.Extends[typeName] {
		a.promote(extend, API)
	}
	for _, host := range a.g.BoxUses[typeName] {
		a.promote(host, Box)
	}
}

// propagateTypeInstVarChange implements "Type instVar change":
// propagate API change to direct extends sharing the mangled name.
// Constructors and member variables are not recompiled here: the
// graph records no type-to-member edges.
func (a *analyser) propagateTypeInstVarChange(typeName Name) {
	for _, extend := range a.g.Extends[typeName] {
		a.promote(extend, API)
	}
}

// propagateTypeVirtFunChange implements "Type virtFun change":
// propagate API change downstream to child types and interface-extend
// participants, plus box-uses.
func (a *analyser) propagateTypeVirtFunChange(typeName Name) {
	for _, child := range graph.SortedNames(a.g.InheritChildren[typeName]) {
		a.promote(child, API)
	}
	for _, participants := range a.g.InterfaceExtends {
		if participants[typeName] {
			for _, p := range graph.SortedNames(participants) {
				a.promote(p, API)
			}
		}
	}
	for _, host := range a.g.BoxUses[typeName] {
		a.promote(host, Box)
	}
}

// propagateExtendDeleted implements "Extend deleted": if name was an
// extend whose extended type is a user-defined decl still present,
// trigger API pollution on the type; otherwise (a built-in extended
// type, with no decl to pollute) re-pollute every other extend of the
// same builtin so their inherited interface sets are recomputed.
func (a *analyser) propagateExtendDeleted(name Name) {
	extended, ok := a.g.ExtendOf[name]
	if !ok {
		return // not an extend; ordinary deletion, no extend fallout
	}
	if _, isKnownDecl := a.cc.Fingerprints[extended]; isKnownDecl {
		a.promote(extended, API)
		return
	}
	for _, sibling := range a.g.Extends[extended] {
		if sibling != name {
			a.promote(sibling, API)
		}
	}
}

// propagateCHIROpt implements the "CHIR-opt propagation" rule for a
// single already-polluted record: if it changed in body, recompile
// every effected decl; if the effected decl is itself an extend,
// promote it to API pollution (an extend acts as a box-site host).
func (a *analyser) propagateCHIROpt(name Name) {
	cat := a.recompile[name]
	if cat < Body {
		return
	}
	for _, effected := range a.cc.CHIROptEffects[a.cachedName(name)] {
		target := Body
		if _, isExtend := a.g.ExtendOf[effected]; isExtend {
			target = API
		}
		a.promote(effected, target)
	}
}

// propagateGeneric implements the "Generic/instantiation" rule: any
// already-polluted record additionally pollutes its recorded
// compiler-added instantiation descendants.
func (a *analyser) propagateGeneric(name Name) {
	for _, synthetic := range a.cc.Semantic.CompilerAddedUsages[a.cachedName(name)] {
		a.promote(synthetic, Instantiation)
	}
}

// checkClosureConvertedOut implements the "Closure-converted
// out-function" fallback: if any recompile-targeted decl's mangled
// name appears in the cached closure-convert-out set, incremental
// output for it is unsupported.
func (a *analyser) checkClosureConvertedOut(cc *cachestore.CompilationCache) string {
	ccOut := map[Name]bool{}
	for _, n := range cc.ClosureConvertedOut {
		ccOut[n] = true
	}
	for name := range a.recompile {
		if ccOut[name] || ccOut[a.cachedName(name)] {
			return "MRG-equivalent fallback: recompile set includes a closure-converted-out function"
		}
	}
	return ""
}

func (a *analyser) finish(diff *astdiff.ModifiedDecls) *Result {
	deletes := append([]Name(nil), diff.Deleted...)
	sort.Slice(deletes, func(i, j int) bool { return deletes[i] < deletes[j] })

	cgDeletes := make([]string, 0, len(deletes))
	for _, n := range deletes {
		if fp, ok := a.cc.Fingerprints[n]; ok && fp.CgMangle != "" {
			cgDeletes = append(cgDeletes, fp.CgMangle)
		}
	}

	return &Result{
		Recompile:        a.recompile,
		DeleteRawMangled: deletes,
		DeleteCgMangled:  cgDeletes,
	}
}
