// Package irmerge splices a freshly compiled IR module into the
// previously cached IR module (spec.md §4.9): obsolete definitions and
// their transitive callers are removed, new definitions are spliced
// in, and reflection/codegen-added metadata tables are rebuilt.
//
// This package models the IR module as a symbol table keyed by raw
// mangled name rather than a bitcode/LLVM module — the byte-level
// artefact format is explicitly a collaborator's concern (spec.md §1);
// what this core owns is the merge *algorithm* over that symbol graph.
// Grounded on the teacher's internal/link/env.go (GlobalEnv, a flat
// name->symbol map threaded through linking) and builtin_module.go's
// pattern of seeding a module's symbol table before resolution begins.
package irmerge

import (
	"fmt"
	"sort"

	"github.com/sunholo/increc/internal/mangle"
)

// Name is shorthand for a raw mangled name.
type Name = mangle.RawMangledName

// Linkage mirrors the subset of linkage states the merge algorithm
// distinguishes (spec.md §4.9 steps 2-3).
type Linkage int

const (
	LinkageInternal Linkage = iota
	LinkageExternal
	LinkageUseless // obsoleted, pending physical removal
)

// Symbol is one definition in an IR module: a function or global.
type Symbol struct {
	Name     Name
	Linkage  Linkage
	IsImportedInline bool
	HasBody  bool
	Users    map[Name]bool // names of symbols that reference this one
	UsedByClosure bool
}

// Module is the merge target: the cached IR module, mutated in place
// by Merge.
type Module struct {
	Symbols map[Name]*Symbol
	// ReflectionTables holds the rebuilt reflection tables (spec.md
	// step 9): each maps a table name to the sorted set of symbols
	// still reflected. Only llvm.functions and llvm.globalVars are
	// rebuilt; llvm.types and llvm.typeTemplates are not.
	ReflectionTables map[string][]Name
	// CodeGenAddedForIncr is the synthetic-name tracking table merged
	// at the end of the algorithm (spec.md step 10).
	CodeGenAddedForIncr map[Name][]Name
}

// NewModule returns an empty Module.
func NewModule() *Module {
	return &Module{
		Symbols:             map[Name]*Symbol{},
		ReflectionTables:    map[string][]Name{},
		CodeGenAddedForIncr: map[Name][]Name{},
	}
}

func (m *Module) ensure(n Name) *Symbol {
	s, ok := m.Symbols[n]
	if !ok {
		s = &Symbol{Name: n, Users: map[Name]bool{}}
		m.Symbols[n] = s
	}
	return s
}

// Incremental is the freshly compiled translation unit for only the
// recompile set.
type Incremental struct {
	Symbols             map[Name]*Symbol
	CodeGenAddedForIncr map[Name][]Name
}

// ErrCacheLost is returned when the cached IR module required for a
// merge is absent or unparseable (spec.md §4.9 step 1).
var ErrCacheLost = fmt.Errorf("cache lost/illegal")

// Merge performs the IR-merge algorithm: obsoletion, declaration copy,
// function-body replacement, the transitive-user sweep, lambda GC, and
// reflection-table rebuild (spec.md §4.9 steps 2-9). Step 10 (merging
// CodeGenAddedForIncr) is folded in at the end.
func Merge(cached *Module, deleteSet []Name, incr *Incremental) error {
	if cached == nil {
		return ErrCacheLost
	}

	obsolete := obsolete(cached, deleteSet)

	for name, sym := range incr.Symbols {
		dst := cached.ensure(name)
		dst.HasBody = sym.HasBody
		dst.Linkage = sym.Linkage
		dst.IsImportedInline = sym.IsImportedInline
		dst.UsedByClosure = sym.UsedByClosure
		for u := range sym.Users {
			dst.Users[u] = true
		}
	}

	toRemove := transitiveUserSweep(cached, obsolete)
	for n := range toRemove {
		delete(cached.Symbols, n)
		for _, sym := range cached.Symbols {
			delete(sym.Users, n)
		}
	}

	lambdaGC(cached)

	rebuildReflectionTables(cached)

	mergeCodeGenAdded(cached, incr)

	return nil
}

// obsolete marks every deleted symbol with the LinkageUseless sentinel
// (its name is unchanged) and returns the set of obsoleted names
// (spec.md step 2).
func obsolete(m *Module, deleteSet []Name) map[Name]bool {
	out := make(map[Name]bool, len(deleteSet))
	for _, n := range deleteSet {
		if sym, ok := m.Symbols[n]; ok {
			sym.Linkage = LinkageUseless
		}
		out[n] = true
	}
	return out
}

// transitiveUserSweep walks the users of each obsoleted name: a user
// that is itself a function/global is enqueued for removal too,
// recursively, matching spec.md step 7.
func transitiveUserSweep(m *Module, obsolete map[Name]bool) map[Name]bool {
	toRemove := map[Name]bool{}
	var queue []Name
	for n := range obsolete {
		queue = append(queue, n)
		toRemove[n] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sym, ok := m.Symbols[n]
		if !ok {
			continue
		}
		for u := range sym.Users {
			if !toRemove[u] {
				toRemove[u] = true
				queue = append(queue, u)
			}
		}
	}
	return toRemove
}

// lambdaGC iterates functions attributed used-by-closure, erasing any
// that have become unused under internal/no-external-reference
// linkage, repeating to a fixed point (spec.md step 8).
func lambdaGC(m *Module) {
	for {
		changed := false
		for name, sym := range m.Symbols {
			if !sym.UsedByClosure || sym.Linkage == LinkageExternal {
				continue
			}
			if len(sym.Users) > 0 {
				continue
			}
			delete(m.Symbols, name)
			for _, other := range m.Symbols {
				delete(other.Users, name)
			}
			changed = true
		}
		if !changed {
			return
		}
	}
}

// rebuildReflectionTables scans the merged module and rebuilds the
// reflection tables from symbols still present, sorted for
// determinism (spec.md step 9).
func rebuildReflectionTables(m *Module) {
	var functions, globals []Name
	for name, sym := range m.Symbols {
		if sym.HasBody {
			functions = append(functions, name)
		} else {
			globals = append(globals, name)
		}
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i] < functions[j] })
	sort.Slice(globals, func(i, j int) bool { return globals[i] < globals[j] })
	m.ReflectionTables["llvm.functions"] = functions
	m.ReflectionTables["llvm.globalVars"] = globals
}

// mergeCodeGenAdded unions the cached and incremental
// CodeGenAddedForIncr tables (spec.md step 10).
func mergeCodeGenAdded(m *Module, incr *Incremental) {
	for src, synths := range incr.CodeGenAddedForIncr {
		existing := map[Name]bool{}
		for _, s := range m.CodeGenAddedForIncr[src] {
			existing[s] = true
		}
		for _, s := range synths {
			existing[s] = true
		}
		merged := make([]Name, 0, len(existing))
		for s := range existing {
			merged = append(merged, s)
		}
		sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
		m.CodeGenAddedForIncr[src] = merged
	}
}
