// Package graph builds the relation/usage graph ("PollutionMapGen",
// spec.md §4.4): the forward and reverse edges the pollution analyser
// walks to expand a raw diff into the full recompile/delete sets.
//
// The graph is built once per run from the cached SemanticInfo plus
// the freshly observed source-imported dependencies and the CHIR-opt
// effect map, then treated as read-only for the remainder of the
// analysis (spec.md I6). Cycle detection borrows the teacher's
// DFS-with-in-path-set shape (internal/link/topo.go's TopoSortFromRoot)
// even though this graph need not be acyclic itself — inherits/extends
// chains must be, and a cycle there is reported rather than looped on
// forever.
package graph

import (
	"fmt"
	"sort"

	"github.com/sunholo/increc/internal/mangle"
)

// Name is shorthand for the raw mangled names used as graph node keys.
type Name = mangle.RawMangledName

// NameUsage bundles, for a single identifier, every axis an unqualified
// or qualified reference to it can resolve against (spec.md §3).
type NameUsage struct {
	ParentTypes                map[Name]bool
	PackageQualifiers          map[string]bool
	HasUnqualifiedUsage        bool
	HasUnqualifiedUsageOfImported bool
}

func newNameUsage() *NameUsage {
	return &NameUsage{ParentTypes: map[Name]bool{}, PackageQualifiers: map[string]bool{}}
}

// QualifiedKey is the key for a qualified use: left-hand mangled name
// paired with the identifier accessed on it.
type QualifiedKey struct {
	LHS   Name
	Ident string
}

// PackageQualifiedKey is the key for a package-qualified use.
type PackageQualifiedKey struct {
	Ident   string
	Package string
}

// Graph is the full relation/usage graph for one build (spec.md §4.4).
type Graph struct {
	// APIUses / BodyUses: mangled -> set of decls referencing it at
	// that axis.
	APIUses  map[Name]map[Name]bool
	BodyUses map[Name]map[Name]bool

	// Unqualified: identifier -> (scope decl -> usage).
	Unqualified map[string]map[Name]*NameUsage

	Qualified        map[QualifiedKey]map[Name]bool
	PackageQualified map[PackageQualifiedKey]map[Name]bool

	// BoxUses: mangled type -> ordered list of box-site decls.
	BoxUses map[Name][]Name

	// DeclAlias: (package, identifier) -> set of aliases.
	DeclAlias map[PackageQualifiedKey]map[string]bool
	// PackageAlias: package -> set of aliases.
	PackageAlias map[string]map[string]bool

	// Inherits/Extends form the TypeMap (spec.md §3).
	Inherits         map[Name]Name   // child -> parent
	InheritChildren  map[Name]map[Name]bool // parent -> children
	Extends          map[Name][]Name // extended type -> extend mangled names
	ExtendOf         map[Name]Name   // extend mangled name -> extended type
	InterfaceExtends map[string]map[Name]bool // interface -> participant types

	// CHIROptEffects: src -> effected decls (copied in from the cache).
	CHIROptEffects map[Name][]Name
}

// New returns an empty, ready-to-populate Graph.
func New() *Graph {
	return &Graph{
		APIUses:          map[Name]map[Name]bool{},
		BodyUses:         map[Name]map[Name]bool{},
		Unqualified:      map[string]map[Name]*NameUsage{},
		Qualified:        map[QualifiedKey]map[Name]bool{},
		PackageQualified: map[PackageQualifiedKey]map[Name]bool{},
		BoxUses:          map[Name][]Name{},
		DeclAlias:        map[PackageQualifiedKey]map[string]bool{},
		PackageAlias:     map[string]map[string]bool{},
		Inherits:         map[Name]Name{},
		InheritChildren:  map[Name]map[Name]bool{},
		Extends:          map[Name][]Name{},
		ExtendOf:         map[Name]Name{},
		InterfaceExtends: map[string]map[Name]bool{},
		CHIROptEffects:   map[Name][]Name{},
	}
}

// AddAPIUse records that user references target at the API axis
// (signature, annotation, generic constraint, inherited-type position).
func (g *Graph) AddAPIUse(target, user Name) {
	addEdge(g.APIUses, target, user)
}

// AddBodyUse records that user references target from inside a body.
func (g *Graph) AddBodyUse(target, user Name) {
	addEdge(g.BodyUses, target, user)
}

func addEdge(m map[Name]map[Name]bool, target, user Name) {
	set, ok := m[target]
	if !ok {
		set = map[Name]bool{}
		m[target] = set
	}
	set[user] = true
}

// AddUnqualifiedUse records an unqualified reference to ident inside
// scope (the smallest enclosing top-level declaration, spec.md §4.4),
// optionally of an imported name.
func (g *Graph) AddUnqualifiedUse(ident string, scope Name, ofImported bool, parentType Name, pkgQualifier string) {
	byScope, ok := g.Unqualified[ident]
	if !ok {
		byScope = map[Name]*NameUsage{}
		g.Unqualified[ident] = byScope
	}
	u, ok := byScope[scope]
	if !ok {
		u = newNameUsage()
		byScope[scope] = u
	}
	u.HasUnqualifiedUsage = true
	if ofImported {
		u.HasUnqualifiedUsageOfImported = true
	}
	if parentType != "" {
		u.ParentTypes[parentType] = true
	}
	if pkgQualifier != "" {
		u.PackageQualifiers[pkgQualifier] = true
	}
}

// AddQualifiedUse records a qualified reference `lhs.ident` made from
// user.
func (g *Graph) AddQualifiedUse(lhs Name, ident string, user Name) {
	key := QualifiedKey{LHS: lhs, Ident: ident}
	set, ok := g.Qualified[key]
	if !ok {
		set = map[Name]bool{}
		g.Qualified[key] = set
	}
	set[user] = true
}

// AddPackageQualifiedUse records a reference `pkg.ident` made from user.
func (g *Graph) AddPackageQualifiedUse(ident, pkg string, user Name) {
	key := PackageQualifiedKey{Ident: ident, Package: pkg}
	set, ok := g.PackageQualified[key]
	if !ok {
		set = map[Name]bool{}
		g.PackageQualified[key] = set
	}
	set[user] = true
}

// AddBoxUse records a box-site use of typ from host.
func (g *Graph) AddBoxUse(typ, host Name) {
	g.BoxUses[typ] = append(g.BoxUses[typ], host)
}

// AddDeclAlias records that alias refers to (pkg, ident).
func (g *Graph) AddDeclAlias(pkg, ident, alias string) {
	key := PackageQualifiedKey{Ident: ident, Package: pkg}
	set, ok := g.DeclAlias[key]
	if !ok {
		set = map[string]bool{}
		g.DeclAlias[key] = set
	}
	set[alias] = true
}

// AddPackageAlias records that alias refers to pkg.
func (g *Graph) AddPackageAlias(pkg, alias string) {
	set, ok := g.PackageAlias[pkg]
	if !ok {
		set = map[string]bool{}
		g.PackageAlias[pkg] = set
	}
	set[alias] = true
}

// CycleError reports an inheritance/extension cycle discovered while
// building the TypeMap, following the teacher's CycleError shape
// (internal/link/topo.go).
type CycleError struct {
	Cycle []Name
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		parts[i] = string(n)
	}
	return fmt.Sprintf("GRF002: inheritance cycle detected: %v", parts)
}

// SetInherits records that child inherits from parent, detecting a
// cycle across the whole inheritance forest built so far.
func (g *Graph) SetInherits(child, parent Name) error {
	g.Inherits[child] = parent
	children, ok := g.InheritChildren[parent]
	if !ok {
		children = map[Name]bool{}
		g.InheritChildren[parent] = children
	}
	children[child] = true
	return g.checkInheritCycle(child)
}

func (g *Graph) checkInheritCycle(start Name) error {
	visited := map[Name]bool{}
	path := []Name{start}
	cur := start
	for {
		next, ok := g.Inherits[cur]
		if !ok {
			return nil
		}
		if next == start {
			return &CycleError{Cycle: append(path, next)}
		}
		if visited[next] {
			return nil
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
}

// AddExtend records that extendName extends extendedType, optionally
// through the given sorted interface list.
func (g *Graph) AddExtend(extendedType, extendName Name, interfaces []string) {
	g.Extends[extendedType] = append(g.Extends[extendedType], extendName)
	g.ExtendOf[extendName] = extendedType
	for _, iface := range interfaces {
		set, ok := g.InterfaceExtends[iface]
		if !ok {
			set = map[Name]bool{}
			g.InterfaceExtends[iface] = set
		}
		set[extendedType] = true
	}
}

// SortedNames returns the keys of a Name-set in deterministic order,
// the only iteration order this graph's consumers may rely on
// (spec.md's single-threaded, sorted-order requirement).
func SortedNames(set map[Name]bool) []Name {
	out := make([]Name, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
