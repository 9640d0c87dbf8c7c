// Package mangle builds the stable external names the rest of the
// cache core keys on: RawMangledName for ordinary declarations, and
// the merged key extends of the same type share (spec.md §4.2).
//
// Mangling is a total function of a declaration's identity path
// (package → parent-type chain → identifier → parameter types →
// return type) plus a fixed prefix encoding its specialisation kind.
// Prefixes follow the teacher's/original's naming scheme
// (original_source/CHIRManglingUtils.h) so the mangled forms read the
// same way a Cangjie binary's symbol table would.
package mangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sunholo/increc/internal/ast"
	"github.com/sunholo/increc/internal/core"
)

// Specialisation-kind prefixes, ported 1:1 from the original compiler's
// CHIRMangling namespace.
const (
	PrefixVirtual             = "_CV"
	PrefixMutable             = "_CM"
	PrefixFunc                = "_CC"
	PrefixExtend              = "$X"
	PrefixInstantiate         = "_CI"
	PrefixLambda              = "_CL"
	PrefixOperator            = "_CO"
	PrefixAnnotationLambda    = "_CA"
	PrefixClosureGeneric      = "$Cg"
	PrefixClosureInstantiate  = "$Ci"
	PrefixClosureFunc         = "$Cf"
	PrefixClosureLambda       = "$Cl"
	PrefixClosureWrapper      = "$Cw"
	PrefixAbstractInst        = "$i"
	PrefixAbstractGeneric     = "$vg"
	PrefixAbstractInstantiated = "$vi"
	PrefixGeneric             = "$g"
)

// RawMangledName is the canonical external name used as a primary key
// across the cache, the relation graph, and IR symbol lookup.
type RawMangledName string

// IdentityPath is the full identity a mangled name is derived from.
type IdentityPath struct {
	Package    string
	ParentType string // empty for top-level declarations
	Name       string
	ParamTypes []string
	ReturnType string
}

// Mangle computes the RawMangledName for an ordinary (non-extend)
// declaration's identity path.
func Mangle(p IdentityPath) RawMangledName {
	var b strings.Builder
	b.WriteString(PrefixFunc)
	b.WriteByte('$')
	b.WriteString(p.Package)
	if p.ParentType != "" {
		b.WriteByte('.')
		b.WriteString(p.ParentType)
	}
	b.WriteByte('.')
	b.WriteString(p.Name)
	b.WriteByte('(')
	b.WriteString(strings.Join(p.ParamTypes, ","))
	b.WriteByte(')')
	if p.ReturnType != "" {
		b.WriteByte(':')
		b.WriteString(p.ReturnType)
	}
	return RawMangledName(b.String())
}

// MangleFunc mangles a FuncDecl's identity path within a package and
// optional enclosing type.
func MangleFunc(pkg, parentType string, fd *ast.FuncDecl) RawMangledName {
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		if p.Type != nil {
			params[i] = p.Type.String()
		}
	}
	ret := ""
	if fd.ReturnType != nil {
		ret = fd.ReturnType.String()
	}
	return Mangle(IdentityPath{
		Package:    pkg,
		ParentType: parentType,
		Name:       fd.Name,
		ParamTypes: params,
		ReturnType: ret,
	})
}

// MangleExtend computes the mangled key for an `extend` block
// (spec.md §3, "Extends are mangled by extended-type tag plus an
// interface list; a direct ... extend merges with every other direct
// extend of the same type under the same key").
//
// A direct extend (Interfaces empty) gets the bare $X<type> key so
// that every direct extend of the same type shares it; an
// interface-bearing extend appends the sorted interface list so
// distinct interface implementations stay distinguishable.
func MangleExtend(e *ast.ExtendDecl) RawMangledName {
	if len(e.Interfaces) == 0 {
		return RawMangledName(PrefixExtend + e.TargetType)
	}
	ifaces := make([]string, len(e.Interfaces))
	copy(ifaces, e.Interfaces)
	sort.Strings(ifaces)
	return RawMangledName(fmt.Sprintf("%s%s<%s>", PrefixExtend, e.TargetType, strings.Join(ifaces, ",")))
}

// MangleVirtual mangles a virtual (overridable) function's wrapper
// name, keyed by its own raw name plus the parent class it's declared
// virtual against.
func MangleVirtual(raw RawMangledName, parentClass string) RawMangledName {
	return RawMangledName(fmt.Sprintf("%s%s@%s", PrefixVirtual, raw, parentClass))
}

// MangleMutable mangles the thunk generated for a `mut func` member
// (spec.md/SPEC_FULL.md's CHIR mutating-method thunks).
func MangleMutable(raw RawMangledName) RawMangledName {
	return RawMangledName(PrefixMutable + string(raw))
}

// MangleInstantiate mangles a generic instantiation site by appending
// the sorted instantiation type arguments to the base name, so that
// instantiating the same generic with the same types always yields the
// same name regardless of call-site order.
func MangleInstantiate(base RawMangledName, typeArgs []string) RawMangledName {
	args := make([]string, len(typeArgs))
	copy(args, typeArgs)
	sort.Strings(args)
	return RawMangledName(fmt.Sprintf("%s%s<%s>", PrefixInstantiate, base, strings.Join(args, ",")))
}

// MangleLambda mangles a lambda lifted out of baseFunc, keyed by its
// enclosing function and a monotonic per-function counter so repeated
// rebuilds of an unchanged function produce the same lambda names.
func MangleLambda(baseFunc RawMangledName, counter int) RawMangledName {
	return RawMangledName(fmt.Sprintf("%s%s#%d", PrefixLambda, baseFunc, counter))
}

// MangleOperator mangles an operator-splitting variant (wrapping,
// throwing, saturating) of a built-in operator function.
func MangleOperator(name string, mode string) RawMangledName {
	return RawMangledName(fmt.Sprintf("%s%s.%s", PrefixOperator, name, mode))
}

// GlobalRefOf derives the core.GlobalRef a VarGlobal should carry for a
// given identity path, so mangling and cross-package reference
// resolution stay in lockstep.
func GlobalRefOf(p IdentityPath) core.GlobalRef {
	name := p.Name
	if p.ParentType != "" {
		name = p.ParentType + "." + name
	}
	return core.GlobalRef{Module: p.Package, Name: name}
}

// PackageOf extracts the package segment from a RawMangledName built
// by Mangle/MangleFunc ("_CC$pkg.parentType.name(...)"), or "" if name
// doesn't carry that shape (an extend, virtual, or lambda key, say).
func PackageOf(n RawMangledName) string {
	s := string(n)
	prefix := PrefixFunc + "$"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	rest := s[len(prefix):]
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		return rest[:i]
	}
	return ""
}

// IdentOf extracts the declaration's own identifier (the final
// dot-separated segment before its parameter list) from a
// RawMangledName built by Mangle/MangleFunc.
func IdentOf(n RawMangledName) string {
	s := string(n)
	prefix := PrefixFunc + "$"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	rest := s[len(prefix):]
	if i := strings.IndexByte(rest, '('); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

// RenameMap records identity-preserving renames discovered by the AST
// differ: when a deleted raw mangled name and an added one share
// sigHash/bodyHash/astKind (enclosing scope is not compared), the pair
// is treated as one declaration that kept its identity rather than a
// delete+add pair (SPEC_FULL.md §6.10).
type RenameMap struct {
	// OldToNew maps a raw mangled name no longer present to the raw
	// mangled name that replaced it.
	OldToNew map[RawMangledName]RawMangledName
}

// NewRenameMap creates an empty rename map.
func NewRenameMap() *RenameMap {
	return &RenameMap{OldToNew: make(map[RawMangledName]RawMangledName)}
}

// Record registers a rename candidate.
func (r *RenameMap) Record(old, new RawMangledName) {
	r.OldToNew[old] = new
}

// Resolve returns the current name for a possibly-renamed raw mangled
// name, following the rename chain to its end.
func (r *RenameMap) Resolve(name RawMangledName) RawMangledName {
	seen := map[RawMangledName]bool{}
	for {
		next, ok := r.OldToNew[name]
		if !ok || seen[next] {
			return name
		}
		seen[name] = true
		name = next
	}
}
