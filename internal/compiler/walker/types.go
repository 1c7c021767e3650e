// Package walker resolves the ancestor chain of a marked type and the
// instance fields each level of that chain declares.
//
// The walker never inspects host-specific type information directly. Hosts
// (Go source packages, YAML manifests) implement Introspector and hand the
// walker Elements; an Element that is not also a Type is not class-like.
package walker

import "strings"

// Element is a declaration that carries the marker directive. Implementations
// must be comparable; passes key their bookkeeping on elements.
type Element interface {
	// Name is the element name used in diagnostics.
	Name() string
	// Pos is a human readable source position, or "" when unknown.
	Pos() string
}

// Type is a class-like Element.
type Type interface {
	Element
	Identity() Identity
}

// Identity locates a type: the package it belongs to and the chain of
// enclosing declarations that leads to it.
type Identity struct {
	// Package is the package clause name used for generated code.
	Package string
	// PkgPath is the qualified package prefix (import path, dotted path).
	PkgPath string
	// Names holds the enclosing names, outermost first; the last element is
	// the type's own simple name.
	Names []string
	// Dir is the directory holding the type's source, if known.
	Dir string
}

// SimpleName returns the last element of Names.
func (id Identity) SimpleName() string {
	if len(id.Names) == 0 {
		return ""
	}
	return id.Names[len(id.Names)-1]
}

// QualifiedName joins the package path and the enclosing names with dots.
func (id Identity) QualifiedName() string {
	local := strings.Join(id.Names, ".")
	if id.PkgPath == "" {
		return local
	}
	return id.PkgPath + "." + local
}

// Storage is the storage kind of a field.
type Storage int

const (
	// StorageInstance fields hold one value per instance.
	StorageInstance Storage = iota
	// StorageClass fields are shared by every instance (static).
	StorageClass
)

func (s Storage) String() string {
	switch s {
	case StorageInstance:
		return "instance"
	case StorageClass:
		return "class"
	default:
		return "unknown"
	}
}

// FieldDecl is a field declared directly by one type.
type FieldDecl struct {
	Name    string
	Storage Storage
	Pos     string
}

// Introspector is the type model a host exposes to the walker.
type Introspector interface {
	// SupertypeOf returns the immediate ancestor of t. It returns false at
	// the root of a hierarchy and when the ancestor cannot be resolved.
	SupertypeOf(t Type) (Type, bool)
	// DeclaredFields returns the fields t declares itself, excluding
	// inherited ones.
	DeclaredFields(t Type) []FieldDecl
}
