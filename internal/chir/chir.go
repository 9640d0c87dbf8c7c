// Package chir implements the typed IR's vtable model: slot
// assignment, operator splitting, mutating-method thunks, and
// devirtualisation's instantiation cache (spec.md §4.8).
//
// Grounded on the teacher's internal/types.DictionaryRegistry (a
// map keyed by "namespace::ClassName::TypeName::method" resolving to
// a method implementation) — CHIR's vtable is the same lookup shape,
// keyed by (implementing type, super-interface, slot) instead of a
// typeclass instance lookup key. The registry's Register/Lookup pair
// is mirrored here as VTableSet.Bind/VTableSet.Lookup.
package chir

import (
	"fmt"
	"sort"

	"github.com/sunholo/increc/internal/mangle"
)

// Name is shorthand for a raw mangled name.
type Name = mangle.RawMangledName

// SlotKey identifies one vtable entry: the implementing type, the
// super-interface it satisfies, and the method's stable offset within
// that interface (spec.md V1).
type SlotKey struct {
	Type      Name
	Interface string
	Offset    int
}

// VTableSet is the deterministic (type, interface, offset) -> method
// map built once per CHIR pass and consulted by devirtualisation.
type VTableSet struct {
	slots map[SlotKey]Name
	// interfaceMethodOrder records, per interface, the declared order
	// of virtual methods so every implementer gets the same slot
	// offsets (V1's "stable offset").
	interfaceMethodOrder map[string][]string
}

// NewVTableSet returns an empty VTableSet.
func NewVTableSet() *VTableSet {
	return &VTableSet{
		slots:                map[SlotKey]Name{},
		interfaceMethodOrder: map[string][]string{},
	}
}

// DeclareInterface fixes the slot order for an interface's virtual
// methods; must be called before any Bind against that interface so
// every implementer's table agrees on offsets (V1).
func (v *VTableSet) DeclareInterface(iface string, methodsInDeclOrder []string) {
	v.interfaceMethodOrder[iface] = append([]string(nil), methodsInDeclOrder...)
}

// Bind records that typ implements method (by name) for iface,
// assigning it the interface's fixed offset for that method.
func (v *VTableSet) Bind(typ Name, iface, method string, impl Name) error {
	order, ok := v.interfaceMethodOrder[iface]
	if !ok {
		return fmt.Errorf("CHR001: interface %s has no declared method order", iface)
	}
	offset := -1
	for i, m := range order {
		if m == method {
			offset = i
			break
		}
	}
	if offset < 0 {
		return fmt.Errorf("CHR001: method %s is not a member of interface %s", method, iface)
	}
	v.slots[SlotKey{Type: typ, Interface: iface, Offset: offset}] = impl
	return nil
}

// Lookup resolves the implementation typ provides for iface at the
// method's slot.
func (v *VTableSet) Lookup(typ Name, iface, method string) (Name, bool) {
	order, ok := v.interfaceMethodOrder[iface]
	if !ok {
		return "", false
	}
	for i, m := range order {
		if m == method {
			impl, ok := v.slots[SlotKey{Type: typ, Interface: iface, Offset: i}]
			return impl, ok
		}
	}
	return "", false
}

// OperatorMode names an overflow strategy for a split numeric
// operator (V2).
type OperatorMode string

const (
	ModeWrapping   OperatorMode = "wrapping"
	ModeThrowing   OperatorMode = "throwing"
	ModeSaturating OperatorMode = "saturating"
)

var operatorModes = []OperatorMode{ModeWrapping, ModeThrowing, ModeSaturating}

// SplitOperator synthesises the three slot names an overflow-capable
// integer operator splits into (V2): the slot is renamed per-mode and
// backed by a thin function for the chosen strategy.
func SplitOperator(base Name) map[OperatorMode]Name {
	out := make(map[OperatorMode]Name, len(operatorModes))
	for _, mode := range operatorModes {
		out[mode] = mangle.MangleOperator(string(base), string(mode))
	}
	return out
}

// MutatingThunk names the generated thunk for a mutating method
// inherited from an interface via a non-mut path: it loads, dispatches,
// and stores back every struct field, preserving the mutable-`this`
// calling convention (V3).
func MutatingThunk(raw Name) Name {
	return mangle.MangleMutable(raw)
}

// ShapeKey is the key used by the virtual-method wrapper cache (V4):
// two keys match only when all three names are equal. Generic
// variables are not treated as wildcards, so two instantiations share
// one wrapper only when their names are identical.
type ShapeKey struct {
	RawMethod  Name
	SubDef     Name
	ParentType Name
}

// WrapperCache memoizes the per-(raw-method, sub-def, parent-type)
// thunk generated when a virtual method's receiver shape differs
// between parent and child (V4).
type WrapperCache struct {
	wrappers map[ShapeKey]Name
}

// NewWrapperCache returns an empty WrapperCache.
func NewWrapperCache() *WrapperCache {
	return &WrapperCache{wrappers: map[ShapeKey]Name{}}
}

// GetOrCreate returns the existing wrapper for key, or synthesises and
// caches a fresh one via mangle.MangleVirtual.
func (w *WrapperCache) GetOrCreate(key ShapeKey) Name {
	if existing, ok := w.wrappers[key]; ok {
		return existing
	}
	fresh := mangle.MangleVirtual(key.RawMethod, string(key.ParentType))
	w.wrappers[key] = fresh
	return fresh
}

// DevirtResult is the outcome of attempting to devirtualise a single
// call site (V5): either a concrete callee was found and the call can
// be rewritten from `invoke` to `apply`, or it could not be resolved.
type DevirtResult struct {
	Resolved    bool
	Callee      Name
	Instantiated bool // true if this produced a frozen instantiation
}

// Devirtualise speculates a single concrete callee for a virtual call
// on iface/method, by collecting base and all its transitive subtypes
// (in name order) and looking up each candidate's vtable slot (V5).
// The call resolves only when exactly one candidate has a binding.
// InstantiationName, if non-nil, names the frozen instantiation to
// emit for the winning candidate.
func Devirtualise(v *VTableSet, base Name, children map[Name][]Name, iface, method string, instantiationName func(Name) Name) DevirtResult {
	candidates := collectSubtypes(base, children)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	var resolved Name
	found := 0
	for _, c := range append([]Name{base}, candidates...) {
		if impl, ok := v.Lookup(c, iface, method); ok {
			resolved = impl
			found++
		}
	}
	if found != 1 {
		return DevirtResult{}
	}
	if instantiationName != nil {
		return DevirtResult{Resolved: true, Callee: instantiationName(resolved), Instantiated: true}
	}
	return DevirtResult{Resolved: true, Callee: resolved}
}

func collectSubtypes(base Name, children map[Name][]Name) []Name {
	var out []Name
	var walk func(Name)
	walk = func(n Name) {
		for _, c := range children[n] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(base)
	return out
}
