// Package usage implements the semantic-usage collector (spec.md
// §4.7): after full semantic analysis completes for a build's
// selected subset, it walks every elaborated declaration once and
// records the usage-graph edges the *next* build's pollution analysis
// will need.
//
// Grounded on the teacher's internal/iface/builder.go, which already
// walks a fully elaborated core.Program once per package to harvest
// its exported surface; this collector performs the same single pass
// but records usage edges instead of export signatures, and walks
// Core expressions (internal/core) rather than typed values.
package usage

import (
	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/core"
	"github.com/sunholo/increc/internal/graph"
	"github.com/sunholo/increc/internal/mangle"
)

// Name is shorthand for a raw mangled name.
type Name = mangle.RawMangledName

// Collector walks elaborated declarations and records usage edges
// into both a cachestore.SemanticInfo (serialized for next build) and
// a graph.Graph (consumed this build, if propagation needs it
// immediately — e.g. in a from-scratch build).
type Collector struct {
	Semantic *cachestore.SemanticInfo
	Graph    *graph.Graph

	// Imported is the set of identifiers visible only via an import,
	// used to distinguish hasUnqualifiedUsage from
	// hasUnqualifiedUsageOfImported.
	Imported map[string]bool
}

// New returns a ready-to-use Collector.
func New(imported map[string]bool) *Collector {
	return &Collector{
		Semantic: cachestore.NewSemanticInfo(),
		Graph:    graph.New(),
		Imported: imported,
	}
}

// CollectDecl walks one declaration's signature and body, recording
// apiUses/bodyUses/boxedTypes against scope, plus the qualified,
// package-qualified, and parent-type axes the next build's sig-change
// propagation needs (spec.md §4.7, §4.6).
func (c *Collector) CollectDecl(scope Name, sigRefs []Name, body core.CoreExpr) {
	apiSet := map[Name]bool{}
	for _, r := range sigRefs {
		apiSet[r] = true
		c.Graph.AddAPIUse(r, scope)
		ident := string(r)
		c.Graph.AddUnqualifiedUse(ident, scope, c.Imported[ident], "", "")
	}

	bodySet := map[Name]bool{}
	boxed := map[Name]bool{}
	if body != nil {
		w := walker{
			onRef: func(ref Name, pkg string) {
				bodySet[ref] = true
				c.Graph.AddBodyUse(ref, scope)
				ident := string(ref)
				c.Graph.AddUnqualifiedUse(ident, scope, c.Imported[ident], "", pkg)
				if pkg != "" {
					c.Graph.AddPackageQualifiedUse(ident, pkg, scope)
				}
			},
			onBox: func(boxedType Name) {
				boxed[boxedType] = true
				c.Graph.AddBoxUse(boxedType, scope)
			},
			onMember: func(parentType Name, field string) {
				c.Graph.AddUnqualifiedUse(field, scope, false, parentType, "")
				c.Graph.AddQualifiedUse(parentType, field, scope)
			},
		}
		w.walk(body)
	}

	c.Semantic.Usages[scope] = cachestore.UsageSet{
		APIUses:    sortedKeys(apiSet),
		BodyUses:   sortedKeys(bodySet),
		BoxedTypes: sortedKeys(boxed),
	}
}

// RecordCompilerAdded records that synthetic is a compiler-added
// declaration attributable to source (a box wrapper, default
// constructor, macro stub, or generic instantiation), so the next
// run knows to delete it when source is deleted (spec.md §4.7, I5).
func (c *Collector) RecordCompilerAdded(source, synthetic Name) {
	c.Semantic.CompilerAddedUsages[source] = append(c.Semantic.CompilerAddedUsages[source], synthetic)
}

// RegisterPackageAlias records that alias is a local name for pkg,
// the way an `import pkg as alias` clause would be recorded by the
// elaborator ahead of this pass, so propagation can follow aliased
// package-qualified uses too (spec.md §4.6's "every alias of the
// package, too").
func (c *Collector) RegisterPackageAlias(pkg, alias string) {
	c.Graph.AddPackageAlias(pkg, alias)
}

// RegisterDeclAlias records that alias is a local name for (pkg,
// ident), as an `import pkg.{ident as alias}` clause would bind it.
func (c *Collector) RegisterDeclAlias(pkg, ident, alias string) {
	c.Graph.AddDeclAlias(pkg, ident, alias)
}

// walker carries the callbacks walk fires while traversing a Core
// expression tree: onRef for a cross-package global reference, onBox
// for a box site, and onMember for a qualified access whose
// left-hand side carries a known concrete type (a core.Box).
type walker struct {
	onRef    func(ref Name, pkg string)
	onBox    func(boxedType Name)
	onMember func(parentType Name, field string)
}

func (w walker) walk(e core.CoreExpr) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *core.VarGlobal:
		w.onRef(Name(v.Ref.Name), v.Ref.Module)
	case *core.Box:
		w.onBox(Name(v.TypeName))
		w.walk(v.Value)
	case *core.Lambda:
		w.walk(v.Body)
	case *core.Let:
		w.walk(v.Value)
		w.walk(v.Body)
	case *core.LetRec:
		for _, b := range v.Bindings {
			w.walk(b.Value)
		}
		w.walk(v.Body)
	case *core.App:
		w.walk(v.Func)
		for _, a := range v.Args {
			w.walk(a)
		}
	case *core.If:
		w.walk(v.Cond)
		w.walk(v.Then)
		w.walk(v.Else)
	case *core.Match:
		w.walk(v.Scrutinee)
		for _, arm := range v.Arms {
			w.walk(arm.Body)
		}
	case *core.BinOp:
		w.walk(v.Left)
		w.walk(v.Right)
	case *core.UnOp:
		w.walk(v.Operand)
	case *core.Record:
		for _, f := range v.Fields {
			w.walk(f)
		}
	case *core.RecordAccess:
		// A member access whose record carries an explicit concrete
		// type (boxed for interface dispatch) resolves to a qualified
		// use of that type's member; an access on a bare variable has
		// no statically known type in this IR and is left unqualified.
		if box, ok := v.Record.(*core.Box); ok {
			w.onMember(Name(box.TypeName), v.Field)
		}
		w.walk(v.Record)
	case *core.List:
		for _, el := range v.Elements {
			w.walk(el)
		}
	case *core.VTableDispatch:
		w.walk(v.Table)
		for _, a := range v.Args {
			w.walk(a)
		}
	}
}

func sortedKeys(m map[Name]bool) []Name {
	return graph.SortedNames(m)
}
