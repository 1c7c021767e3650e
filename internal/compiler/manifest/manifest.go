// Package manifest describes type hierarchies in YAML, for sources the Go
// loader cannot read (schemas from other languages, hand-written models).
//
//	package: app
//	path: com.example.app
//	types:
//	  - name: Base
//	    fields: [id, created_at]
//	  - name: User
//	    marked: true
//	    extends: Base
//	    fields:
//	      - email
//	      - {name: registry, static: true}
//	    types:
//	      - name: Profile
//	        marked: true
//	        fields: [bio]
//
// A type's kind defaults to "class"; any other kind is not class-like. An
// extends reference is looked up from the innermost enclosing scope
// outwards, then as a fully qualified name; a reference that cannot be
// found is treated as an opaque ancestor.
package manifest

import (
	"bytes"
	"go/token"
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// KindClass is the only class-like kind.
const KindClass = "class"

// File is one manifest document.
type File struct {
	// Package is the package clause of generated artifacts.
	Package string `yaml:"package"`
	// Path is the qualified package prefix; defaults to Package.
	Path string `yaml:"path"`
	// Output is the directory artifacts for this file are written to.
	Output string     `yaml:"output"`
	Types  []TypeDecl `yaml:"types"`
}

// TypeDecl declares one type and the types nested in it.
type TypeDecl struct {
	Name    string      `yaml:"name"`
	Kind    string      `yaml:"kind"`
	Marked  bool        `yaml:"marked"`
	Extends string      `yaml:"extends"`
	Fields  []FieldSpec `yaml:"fields"`
	Types   []TypeDecl  `yaml:"types"`

	// Line is the line the declaration starts on.
	Line int `yaml:"-"`
}

// UnmarshalYAML records the declaration's line.
func (t *TypeDecl) UnmarshalYAML(node *yaml.Node) error {
	type plain TypeDecl
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = TypeDecl(p)
	t.Line = node.Line
	return nil
}

// IsClass reports whether the declaration is class-like.
func (t TypeDecl) IsClass() bool {
	return t.Kind == "" || t.Kind == KindClass
}

// FieldSpec declares one field. In YAML it is either a bare name or a
// mapping with name and static keys.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Static bool   `yaml:"static"`
}

// UnmarshalYAML accepts the short and the long form.
func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = FieldSpec{}
		return node.Decode(&f.Name)
	}
	type plain FieldSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = FieldSpec(p)
	return nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, errors.Wrap(err, "decode manifest")
	}
	if f.Path == "" {
		f.Path = f.Package
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks names and uniqueness.
func (f *File) Validate() error {
	if !token.IsIdentifier(f.Package) {
		return errors.WithHint(
			errors.Newf("invalid package name %q", f.Package),
			"package must be a Go identifier such as \"models\"",
		)
	}
	return validateScope(f.Types, f.Path)
}

func validateScope(decls []TypeDecl, scope string) error {
	seen := make(map[string]bool, len(decls))
	for _, d := range decls {
		if !token.IsIdentifier(d.Name) {
			return errors.Newf("line %d: invalid type name %q in %s", d.Line, d.Name, scope)
		}
		if seen[d.Name] {
			return errors.Newf("line %d: type %s declared twice in %s", d.Line, d.Name, scope)
		}
		seen[d.Name] = true
		for _, fld := range d.Fields {
			if fld.Name == "" {
				return errors.Newf("line %d: type %s has a field without a name", d.Line, d.Name)
			}
			if !token.IsIdentifier(fld.Name) {
				return errors.Newf("line %d: invalid field name %q in %s.%s", d.Line, fld.Name, scope, d.Name)
			}
		}
		if err := validateScope(d.Types, scope+"."+d.Name); err != nil {
			return err
		}
	}
	return nil
}
