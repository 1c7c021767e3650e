// Package codegen turns a finished field-name set into the description of a
// generated holder and renders that description as Go source.
package codegen

import (
	"slices"
	"strings"

	"github.com/conduit-lang/fielder/internal/compiler/collector"
	"github.com/conduit-lang/fielder/internal/compiler/walker"
)

const (
	// Suffix is appended to every generated holder name.
	Suffix = "Fielder"
	// Joiner separates the enclosing names of a nested type.
	Joiner = "_"
	// escapedJoiner replaces a Joiner that is part of a name. Identifiers
	// never start with a digit and local ordinals start at 2, so "_0"
	// cannot be mistaken for a separator.
	escapedJoiner = "_0"
)

// ArtifactSpec describes one generated holder. It is created once by
// Generate and never modified.
type ArtifactSpec struct {
	// Package is the package clause of the generated file.
	Package string
	// Name is the generated holder identifier.
	Name string
	// Origin is the qualified name of the target type.
	Origin string
	// Dir is the directory of the target's source, or "" when unknown.
	Dir string
	// Fields are the field names in lexicographic order.
	Fields []string
}

// GeneratedName derives the holder name from a type identity: the package
// prefix is dropped, underscores inside names are escaped, the enclosing
// names are joined with Joiner and Suffix is appended. Distinct identities
// within a package always produce distinct names.
func GeneratedName(id walker.Identity) string {
	parts := make([]string, 0, len(id.Names)+1)
	for _, name := range id.Names {
		parts = append(parts, strings.ReplaceAll(name, Joiner, escapedJoiner))
	}
	parts = append(parts, Suffix)
	return strings.Join(parts, Joiner)
}

// Generate builds the artifact for one target.
func Generate(id walker.Identity, names collector.NameSet) ArtifactSpec {
	return ArtifactSpec{
		Package: id.Package,
		Name:    GeneratedName(id),
		Origin:  id.QualifiedName(),
		Dir:     id.Dir,
		Fields:  names.Names(),
	}
}

// FileName is the base name of the file holding spec.
func FileName(spec ArtifactSpec) string {
	return spec.Name + ".go"
}

// FieldNames returns a copy of the artifact's field names.
func (s ArtifactSpec) FieldNames() []string {
	return slices.Clone(s.Fields)
}
