// Package iface builds a package's exported surface: the subset of a
// declaration tree that other packages can observe. It backs the API
// pollution category (spec.md §4.6) and contributes to a package's
// CompilationCache.specsHash (spec.md §3.3).
//
// This is not a type checker: signatures are recorded as their surface
// text, not resolved types, since type inference is an explicit
// non-goal (spec.md §7).
package iface

import (
	"sort"

	"github.com/sunholo/increc/internal/core"
)

// Iface is a package's exported surface.
type Iface struct {
	Module       string                        // Package path, e.g., "math/gcd"
	Exports      map[string]*IfaceItem         // Exported symbols
	Constructors map[string]*ConstructorScheme // Exported ADT constructors
	Types        map[string]*TypeExport        // Exported type names
	Schema       string                        // Schema version
	Digest       string                        // Deterministic digest of the interface
}

// TypeExport is an exported type name.
type TypeExport struct {
	Name  string // Type name (e.g., "Option", "Result")
	Arity int    // Number of type parameters
}

// IfaceItem is a single exported symbol.
type IfaceItem struct {
	Name      string         // Symbol name
	Signature string         // Surface signature text, e.g. "(Int, Int) -> Int"
	Purity    bool           // Whether the function is declared pure
	Ref       core.GlobalRef // Global reference to this item
}

// ConstructorScheme is the shape of an exported ADT constructor.
type ConstructorScheme struct {
	TypeName   string   // The ADT name (e.g., "Option")
	CtorName   string   // Constructor name (e.g., "Some", "None")
	FieldTypes []string // Field signature text (empty for nullary constructors)
	ResultType string   // Result type signature text
	Arity      int      // Number of fields
}

// NewIface creates an empty package interface.
func NewIface(module string) *Iface {
	return &Iface{
		Module:       module,
		Exports:      make(map[string]*IfaceItem),
		Constructors: make(map[string]*ConstructorScheme),
		Types:        make(map[string]*TypeExport),
		Schema:       "increc.iface/v1",
	}
}

// AddExport records an exported symbol.
func (i *Iface) AddExport(name, signature string, purity bool) {
	i.Exports[name] = &IfaceItem{
		Name:      name,
		Signature: signature,
		Purity:    purity,
		Ref: core.GlobalRef{
			Module: i.Module,
			Name:   name,
		},
	}
}

// GetExport retrieves an exported symbol.
func (i *Iface) GetExport(name string) (*IfaceItem, bool) {
	item, ok := i.Exports[name]
	return item, ok
}

// AddConstructor records an exported ADT constructor.
func (i *Iface) AddConstructor(typeName, ctorName string, fieldTypes []string, resultType string) {
	i.Constructors[ctorName] = &ConstructorScheme{
		TypeName:   typeName,
		CtorName:   ctorName,
		FieldTypes: fieldTypes,
		ResultType: resultType,
		Arity:      len(fieldTypes),
	}
}

// GetConstructor retrieves a constructor scheme.
func (i *Iface) GetConstructor(name string) (*ConstructorScheme, bool) {
	ctor, ok := i.Constructors[name]
	return ctor, ok
}

// AddType records an exported type name.
func (i *Iface) AddType(name string, arity int) {
	i.Types[name] = &TypeExport{
		Name:  name,
		Arity: arity,
	}
}

// GetType retrieves an exported type.
func (i *Iface) GetType(name string) (*TypeExport, bool) {
	typ, ok := i.Types[name]
	return typ, ok
}

// SortedExportNames returns export names in sorted order, for callers
// that must iterate deterministically (spec.md's single-threaded,
// sorted-iteration-order requirement).
func (i *Iface) SortedExportNames() []string {
	names := make([]string, 0, len(i.Exports))
	for n := range i.Exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
