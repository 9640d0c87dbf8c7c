// Package hasher computes the per-declaration fingerprints the cache
// core diffs across builds: sigHash, srcUseHash, bodyHash, and (for
// type declarations) instVarHash/virtHash (spec.md §3, DeclFingerprint).
//
// Hashing walks a declaration's AST with position stripped out: the
// two inputs to every hash step are a node's kind tag and the hashes
// of its children, never its Pos/Span. Combination uses a two-round
// mixer derived from the teacher's own hash-combine idiom, so that a
// line-moves-only edit never changes a single fingerprint (spec.md
// §4.1).
package hasher

import (
	"fmt"
	"sort"

	"github.com/sunholo/increc/internal/ast"
	"github.com/sunholo/increc/internal/core"
)

// Hash64 is a 64-bit declaration fingerprint component.
type Hash64 uint64

// mixConstant is the same odd-bit fractional-golden-ratio constant the
// teacher's ASTHasher.CombineHash analogue uses (originally from
// boost::hash_combine); see original_source/ASTHasher.h.
const mixConstant = 0x9e3779b97f4a7c15

// combine folds value into acc using a two-round mixer: the second
// round mixes in a rotated copy of value, so that combine(a, b) != combine(b, a) and
// the result is sensitive to argument order without needing a
// stateful hasher.
func combine(acc, value Hash64) Hash64 {
	acc ^= value + mixConstant + (acc << 6) + (acc >> 2)
	acc ^= rotl(value, 17) + mixConstant + (acc << 6) + (acc >> 2)
	return acc
}

func rotl(v Hash64, k uint) Hash64 {
	return (v << k) | (v >> (64 - k))
}

func hashString(s string) Hash64 {
	var h Hash64 = 1469598103934665603 // FNV offset basis
	for i := 0; i < len(s); i++ {
		h ^= Hash64(s[i])
		h *= 1099511628211 // FNV prime
	}
	return h
}

func hashBool(b bool) Hash64 {
	if b {
		return 1
	}
	return 0
}

// DeclFingerprint is the per-declaration hash record (spec.md §3).
type DeclFingerprint struct {
	SigHash     Hash64
	SrcUseHash  Hash64
	BodyHash    Hash64
	ASTKind     string
	InstVarHash *Hash64 // set only for type declarations
	VirtHash    *Hash64 // set only for type declarations
	GVID        ast.GVID
	CgMangle    string
}

// HashDecl computes the full fingerprint for one declaration. fileIdx
// is the declaration's monotonic index within its file, used for gvid
// (spec.md's "(file, monotonic index within file)").
func HashDecl(d ast.Decl, fileIdx int, cgMangle string) DeclFingerprint {
	fp := DeclFingerprint{
		SigHash:    sigHash(d),
		SrcUseHash: srcUseHash(d),
		BodyHash:   bodyHash(d),
		ASTKind:    astKind(d),
		GVID:       ast.GVID(fmt.Sprintf("%s#%d", declFile(d), fileIdx)),
		CgMangle:   cgMangle,
	}
	if td, ok := d.(*ast.TypeDecl); ok {
		iv := instVarHash(td)
		vh := virtHash(td)
		fp.InstVarHash = &iv
		fp.VirtHash = &vh
	}
	return fp
}

func declFile(d ast.Decl) string {
	return d.Position().File
}

// sigHash captures the API surface: name, typed parameters, declared
// return type, visibility, and the attributes that affect how callers
// must link against or dispatch to this declaration — public/open/
// abstract/static-ness, and for functions the explicit `this`
// mutability (spec.md §4.1, sigHash).
func sigHash(d ast.Decl) Hash64 {
	h := hashString("sig")
	h = combine(h, hashString(d.DeclName()))
	h = combine(h, hashBool(d.Visibility()))

	switch v := d.(type) {
	case *ast.FuncDecl:
		h = combine(h, hashString("func"))
		for _, p := range v.Params {
			h = combine(h, hashString(p.Name))
			h = combine(h, hashType(p.Type))
		}
		h = combine(h, hashType(v.ReturnType))
		for _, e := range sortedCopy(v.Effects) {
			h = combine(h, hashString(e))
		}
		h = combine(h, hashBool(v.IsStatic))
		h = combine(h, hashBool(v.IsOpen))
		h = combine(h, hashBool(v.IsAbstract))
		h = combine(h, hashBool(v.MutatesThis))
	case *ast.TypeDecl:
		h = combine(h, hashString("type"))
		for _, tp := range sortedCopy(v.TypeParams) {
			h = combine(h, hashString(tp))
		}
	case *ast.ExtendDecl:
		h = combine(h, hashString("extend"))
		h = combine(h, hashString(v.TargetType))
		for _, iface := range sortedCopy(v.Interfaces) {
			h = combine(h, hashString(iface))
		}
	}
	return h
}

// srcUseHash captures source-visible traits that can propagate through
// inlining: visibility, inline/const-ness and annotations (spec.md §3,
// srcUseHash). Open/abstract-ness and this-mutability live in sigHash
// instead — they gate linkage/dispatch, not inlining. Visibility is
// hashed into both.
func srcUseHash(d ast.Decl) Hash64 {
	h := hashString("srcuse")
	h = combine(h, hashBool(d.Visibility()))
	if fd, ok := d.(*ast.FuncDecl); ok {
		h = combine(h, hashBool(fd.IsInline))
		h = combine(h, hashBool(fd.IsConst))
		for _, a := range sortedCopy(fd.Annotations) {
			h = combine(h, hashString(a))
		}
	}
	return h
}

// bodyHash captures anything visible only inside a complete body. For
// a declaration with no body (an imported or abstract declaration),
// the hash is zero: inlining cannot occur across it, so no body
// content exists to invalidate on (spec.md §3, bodyHash).
func bodyHash(d ast.Decl) Hash64 {
	fd, ok := d.(*ast.FuncDecl)
	if !ok || fd.Body == nil {
		return 0
	}
	return hashExpr(fd.Body)
}

func astKind(d ast.Decl) string {
	switch d.(type) {
	case *ast.FuncDecl:
		return "FuncDecl"
	case *ast.TypeDecl:
		return "TypeDecl"
	case *ast.ExtendDecl:
		return "ExtendDecl"
	default:
		return "Unknown"
	}
}

// instVarHash hashes instance-variable layout: field names and types in
// declared order, since reordering fields changes layout even when the
// set of fields is unchanged.
func instVarHash(td *ast.TypeDecl) Hash64 {
	h := hashString("instvar")
	rt, ok := td.Definition.(*ast.RecordType)
	if !ok {
		return h
	}
	for _, f := range rt.Fields {
		h = combine(h, hashString(f.Name))
		h = combine(h, hashType(f.Type))
	}
	return h
}

// virtHash hashes an algebraic type's constructors in declared order:
// each constructor's name and field types. A TypeDecl carries no member
// methods, so the order of open/abstract methods is not hashed, and any
// non-algebraic definition gets a constant hash.
func virtHash(td *ast.TypeDecl) Hash64 {
	h := hashString("virt")
	at, ok := td.Definition.(*ast.AlgebraicType)
	if !ok {
		return h
	}
	for _, c := range at.Constructors {
		h = combine(h, hashString(c.Name))
		for _, f := range c.Fields {
			h = combine(h, hashType(f))
		}
	}
	return h
}

func hashType(t ast.Type) Hash64 {
	if t == nil {
		return 0
	}
	return hashString(t.String())
}

// hashExpr hashes a Core expression tree, position-stripped: the two
// inputs at every node are the node's kind tag and the combined hashes
// of its children, never CoreNode.CoreSpan/OrigSpan.
func hashExpr(e interface{ String() string }) Hash64 {
	switch v := e.(type) {
	case *core.Var:
		return combine(hashString("Var"), hashString(v.Name))
	case *core.Lit:
		return combine(hashString("Lit"), hashString(fmt.Sprintf("%v", v.Value)))
	case *core.Lambda:
		h := hashString("Lambda")
		for _, p := range v.Params {
			h = combine(h, hashString(p))
		}
		return combine(h, hashExpr(v.Body))
	case *core.Let:
		h := combine(hashString("Let"), hashString(v.Name))
		h = combine(h, hashExpr(v.Value))
		return combine(h, hashExpr(v.Body))
	case *core.LetRec:
		h := hashString("LetRec")
		for _, b := range v.Bindings {
			h = combine(h, hashString(b.Name))
			h = combine(h, hashExpr(b.Value))
		}
		return combine(h, hashExpr(v.Body))
	case *core.App:
		h := combine(hashString("App"), hashExpr(v.Func))
		for _, a := range v.Args {
			h = combine(h, hashExpr(a))
		}
		return h
	case *core.If:
		h := combine(hashString("If"), hashExpr(v.Cond))
		h = combine(h, hashExpr(v.Then))
		return combine(h, hashExpr(v.Else))
	case *core.BinOp:
		h := combine(hashString("BinOp"), hashString(v.Op))
		h = combine(h, hashExpr(v.Left))
		return combine(h, hashExpr(v.Right))
	case *core.VTableDispatch:
		h := combine(hashString("VTableDispatch"), hashString(v.Method))
		for _, a := range v.Args {
			h = combine(h, hashExpr(a))
		}
		return h
	case *core.VTableRef:
		h := combine(hashString("VTableRef"), hashString(v.Iface))
		return combine(h, hashString(v.TypeName))
	default:
		return hashString(v.String())
	}
}

func sortedCopy(s []string) []string {
	cp := make([]string, len(s))
	copy(cp, s)
	sort.Strings(cp)
	return cp
}
