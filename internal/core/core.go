package core

import (
	"fmt"
	"strings"
	"github.com/sunholo/increc/internal/ast"
)

// Core AST - A-Normal Form with explicit recursion
// All complex expressions are decomposed into let-bindings

// CoreNode is the base for all Core AST nodes
type CoreNode struct {
	NodeID   uint64   // Stable identifier assigned by elaborator
	CoreSpan ast.Pos  // Position in Core AST
	OrigSpan ast.Pos  // Original surface position for diagnostics
}

// CoreExpr is the base interface for Core expressions
type CoreExpr interface {
	ID() uint64
	Span() ast.Pos       // Core span
	OriginalSpan() ast.Pos  // Surface origin
	String() string
	coreExpr()
}

// Ensure CoreNode implements base methods
func (n CoreNode) ID() uint64 { return n.NodeID }
func (n CoreNode) Span() ast.Pos { return n.CoreSpan }
func (n CoreNode) OriginalSpan() ast.Pos { return n.OrigSpan }

// Atomic expressions (can appear in any position)

// Var represents a variable reference
type Var struct {
	CoreNode
	Name string
}

func (v *Var) coreExpr() {}
func (v *Var) String() string { return v.Name }

// Lit represents a literal value
type Lit struct {
	CoreNode
	Kind  LitKind
	Value interface{}
}

type LitKind int

const (
	IntLit LitKind = iota
	FloatLit
	StringLit
	BoolLit
	UnitLit
)

func (l *Lit) coreExpr() {}
func (l *Lit) String() string { return fmt.Sprintf("%v", l.Value) }

// Lambda represents a function value
type Lambda struct {
	CoreNode
	Params []string
	Body   CoreExpr
}

func (l *Lambda) coreExpr() {}
func (l *Lambda) String() string {
	return fmt.Sprintf("λ%v. %s", l.Params, l.Body)
}

// Complex expressions (must be let-bound in ANF)

// Let represents a non-recursive let binding
type Let struct {
	CoreNode
	Name  string
	Value CoreExpr  // In ANF: atomic or simple call
	Body  CoreExpr
}

func (l *Let) coreExpr() {}
func (l *Let) String() string {
	return fmt.Sprintf("let %s = %s in %s", l.Name, l.Value, l.Body)
}

// LetRec represents mutually recursive bindings
type LetRec struct {
	CoreNode
	Bindings []RecBinding
	Body     CoreExpr
}

type RecBinding struct {
	Name  string
	Value CoreExpr  // Usually Lambda for recursion
}

func (l *LetRec) coreExpr() {}
func (l *LetRec) String() string {
	return fmt.Sprintf("let rec %v in %s", l.Bindings, l.Body)
}

// App represents function application (in ANF, args are atomic)
type App struct {
	CoreNode
	Func CoreExpr
	Args []CoreExpr  // All must be atomic in ANF
}

func (a *App) coreExpr() {}
func (a *App) String() string {
	return fmt.Sprintf("%s(%v)", a.Func, a.Args)
}

// If represents conditional (in ANF, condition is atomic)
type If struct {
	CoreNode
	Cond CoreExpr  // Must be atomic in ANF
	Then CoreExpr
	Else CoreExpr
}

func (i *If) coreExpr() {}
func (i *If) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Then, i.Else)
}

// Match represents pattern matching
type Match struct {
	CoreNode
	Scrutinee  CoreExpr  // Must be atomic in ANF
	Arms       []MatchArm
	Exhaustive bool  // Set by elaborator/typechecker
}

type MatchArm struct {
	Pattern CorePattern
	Guard   CoreExpr  // Optional, must be atomic
	Body    CoreExpr
}

func (m *Match) coreExpr() {}
func (m *Match) String() string {
	return fmt.Sprintf("match %s { %v }", m.Scrutinee, m.Arms)
}

// BinOp represents binary operations (in ANF, operands are atomic)
type BinOp struct {
	CoreNode
	Op    string
	Left  CoreExpr  // Must be atomic in ANF
	Right CoreExpr  // Must be atomic in ANF
}

func (b *BinOp) coreExpr() {}
func (b *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnOp represents unary operations (in ANF, operand is atomic)
type UnOp struct {
	CoreNode
	Op      string
	Operand CoreExpr  // Must be atomic in ANF
}

func (u *UnOp) coreExpr() {}
func (u *UnOp) String() string {
	return fmt.Sprintf("%s%s", u.Op, u.Operand)
}

// Record represents record construction (fields are atomic in ANF)
type Record struct {
	CoreNode
	Fields map[string]CoreExpr  // All values must be atomic
}

func (r *Record) coreExpr() {}
func (r *Record) String() string {
	return fmt.Sprintf("{%v}", r.Fields)
}

// RecordAccess represents field access (record is atomic in ANF)
type RecordAccess struct {
	CoreNode
	Record CoreExpr  // Must be atomic in ANF
	Field  string
}

func (r *RecordAccess) coreExpr() {}
func (r *RecordAccess) String() string {
	return fmt.Sprintf("%s.%s", r.Record, r.Field)
}

// List represents list construction (elements are atomic in ANF)
type List struct {
	CoreNode
	Elements []CoreExpr  // All must be atomic in ANF
}

func (l *List) coreExpr() {}
func (l *List) String() string {
	return fmt.Sprintf("[%v]", l.Elements)
}

// Patterns for matching

type CorePattern interface {
	patternNode()
	String() string
}

type VarPattern struct {
	Name string
}

func (v *VarPattern) patternNode() {}
func (v *VarPattern) String() string { return v.Name }

type LitPattern struct {
	Value interface{}
}

func (l *LitPattern) patternNode() {}
func (l *LitPattern) String() string { return fmt.Sprintf("%v", l.Value) }

type ConstructorPattern struct {
	Name string
	Args []CorePattern
}

func (c *ConstructorPattern) patternNode() {}
func (c *ConstructorPattern) String() string {
	return fmt.Sprintf("%s(%v)", c.Name, c.Args)
}

type ListPattern struct {
	Elements []CorePattern
	Tail     *CorePattern  // For ... patterns
}

func (l *ListPattern) patternNode() {}
func (l *ListPattern) String() string {
	return fmt.Sprintf("[%v]", l.Elements)
}

type RecordPattern struct {
	Fields map[string]CorePattern
}

func (r *RecordPattern) patternNode() {}
func (r *RecordPattern) String() string {
	return fmt.Sprintf("{%v}", r.Fields)
}

// TuplePattern matches a fixed-arity tuple element-by-element.
type TuplePattern struct {
	Elements []CorePattern
}

func (t *TuplePattern) patternNode() {}
func (t *TuplePattern) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type WildcardPattern struct{}

func (w *WildcardPattern) patternNode() {}
func (w *WildcardPattern) String() string { return "_" }

// Program represents the elaborated declaration tree of a package: the
// input the cache core diffs against the previous build (spec.md §1).
type Program struct {
	Decls []CoreExpr           // Top-level declarations
	Meta  map[string]*DeclMeta // Per-top-level-binding metadata, keyed by name
}

// DeclMeta carries the surface-level facts the hasher and mangler need
// that don't survive ANF lowering on their own (export-ness, purity).
type DeclMeta struct {
	IsExport bool
	IsPure   bool
}

// GlobalRef identifies a declaration across package boundaries: the pair
// a RawMangledName is derived from before any specialisation prefix is
// applied.
type GlobalRef struct {
	Module string
	Name   string
}

func (g GlobalRef) String() string { return g.Module + "." + g.Name }

// VarGlobal references a declaration in another package by its GlobalRef
// rather than by bare name, so that cross-package usage edges are
// unambiguous even when two packages export the same identifier.
type VarGlobal struct {
	CoreNode
	Ref GlobalRef
}

func (v *VarGlobal) coreExpr()      {}
func (v *VarGlobal) String() string { return v.Ref.String() }

// Box wraps a concrete-typed value so it can be stored where an
// interface-typed slot is expected; TypeName names the payload's
// concrete type, which the usage collector records as a box-use site
// against that type (spec.md §3, SemanticInfo.usages.boxedTypes).
type Box struct {
	CoreNode
	TypeName string
	Value    CoreExpr
}

func (b *Box) coreExpr() {}
func (b *Box) String() string {
	return "Box<" + b.TypeName + ">(" + b.Value.String() + ")"
}

// Virtual-dispatch nodes (CHIR's vtable model, §4.8)
//
// These replace the teacher's type-class dictionary-passing nodes:
// where the teacher threaded a runtime dictionary value through
// DictAbs/DictApp/DictRef to resolve an ad-hoc polymorphic
// method, this module threads a vtable slot through the same shape to
// resolve a virtual interface method. The node shapes are identical
// (abstraction over callee-supplied capability, application at a use
// site, reference to a statically known instance); only what the
// "dictionary" denotes has changed, from a typeclass instance to a
// per-(type, interface) vtable.

// VTableAbs binds the vtable parameters a generic or interface-bounded
// function needs before it can be entered; mirrors a type's per-interface
// vtable pointer being passed alongside `this`.
type VTableAbs struct {
	CoreNode
	Params []VTableParam // Vtable parameters in canonical (sorted) order
	Body   CoreExpr       // Body with vtables available
}

func (d *VTableAbs) coreExpr() {}
func (d *VTableAbs) String() string {
	params := ""
	for i, p := range d.Params {
		if i > 0 {
			params += ", "
		}
		params += fmt.Sprintf("%s: %s[%s]", p.Name, p.Iface, p.Type)
	}
	return fmt.Sprintf("VTableAbs([%s], %s)", params, d.Body)
}

// VTableDispatch is an indirect call through a vtable slot: `dispatch
// the interface method named Method on the concrete vtable Table`. This
// is what devirtualisation (§4.8, V5) rewrites into a direct `App` when
// it can speculate the single concrete callee.
type VTableDispatch struct {
	CoreNode
	Table  CoreExpr   // Vtable reference (must be atomic in ANF)
	Method string     // Slot name: "add", "compareTo", "next", ...
	Args   []CoreExpr // Call arguments
}

func (d *VTableDispatch) coreExpr() {}
func (d *VTableDispatch) String() string {
	args := ""
	for i, a := range d.Args {
		if i > 0 {
			args += ", "
		}
		args += a.String()
	}
	return fmt.Sprintf("VTableDispatch(%s.%s, [%s])", d.Table, d.Method, args)
}

// VTableRef is a static reference to the vtable of a known concrete type
// implementing a known interface; the pair (Iface, TypeName) is exactly
// the key CHIR's vtable map is indexed by (spec.md §4.8, V1).
type VTableRef struct {
	CoreNode
	Iface    string // e.g., "Comparable", "Hashable"
	TypeName string // Normalized concrete type: "Int32", "MyStruct", ...
}

func (d *VTableRef) coreExpr() {}
func (d *VTableRef) String() string {
	return fmt.Sprintf("vtable_%s_%s", d.Iface, d.TypeName)
}

// VTableParam is one vtable parameter threaded into a VTableAbs.
type VTableParam struct {
	Name  string // e.g., "vt_Comparable_T"
	Iface string // e.g., "Comparable"
	Type  string // String representation of the bound type variable
}

// Helper to check if expression is atomic (for ANF verification)
func IsAtomic(expr CoreExpr) bool {
	switch expr.(type) {
	case *Var, *Lit, *Lambda, *VTableRef:
		return true
	default:
		return false
	}
}

// Pretty provides a basic string representation of Core programs
// This is a stub implementation for testing purposes
func Pretty(prog *Program) string {
	var parts []string
	for i, decl := range prog.Decls {
		parts = append(parts, fmt.Sprintf("decl_%d: %s", i, decl.String()))
	}
	return fmt.Sprintf("Program(\n  %s\n)", fmt.Sprintf(strings.Join(parts, "\n  ")))
}