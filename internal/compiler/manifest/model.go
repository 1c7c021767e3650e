package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/conduit-lang/fielder/internal/compiler/walker"
)

// Model is the union of one or more manifests. It implements
// walker.Introspector.
type Model struct {
	// byName maps qualified names to class types and other declarations.
	byName  map[string]walker.Element
	targets []walker.Element
}

var _ walker.Introspector = (*Model)(nil)

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{byName: make(map[string]walker.Element)}
}

// LoadFiles reads, parses and adds each manifest in order.
func LoadFiles(fs afero.Fs, paths ...string) (*Model, error) {
	m := NewModel()
	for _, path := range paths {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "read manifest %s", path)
		}
		f, err := Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %s", path)
		}
		// Artifacts land next to the manifest unless it names a directory.
		switch {
		case f.Output == "":
			f.Output = filepath.Dir(path)
		case !filepath.IsAbs(f.Output):
			f.Output = filepath.Join(filepath.Dir(path), f.Output)
		}
		if err := m.Add(f, path); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers every type of f. source names the file in positions.
func (m *Model) Add(f *File, source string) error {
	return m.addScope(f, source, nil, f.Types)
}

func (m *Model) addScope(f *File, source string, enclosing []string, decls []TypeDecl) error {
	for _, d := range decls {
		names := append(append([]string(nil), enclosing...), d.Name)
		pos := ""
		if source != "" {
			pos = fmt.Sprintf("%s:%d", source, d.Line)
		}

		var el walker.Element
		if d.IsClass() {
			el = &classType{
				decl: d,
				pos:  pos,
				id: walker.Identity{
					Package: f.Package,
					PkgPath: f.Path,
					Names:   names,
					Dir:     f.Output,
				},
			}
		} else {
			el = &otherDecl{name: joinQualified(f.Path, names), kind: d.Kind, pos: pos}
		}

		key := joinQualified(f.Path, names)
		if _, dup := m.byName[key]; dup {
			return errors.Newf("%s: type %s is declared by more than one manifest", pos, key)
		}
		m.byName[key] = el
		if d.Marked {
			m.targets = append(m.targets, el)
		}

		if err := m.addScope(f, source, names, d.Types); err != nil {
			return err
		}
	}
	return nil
}

// Targets returns every marked declaration in manifest order.
func (m *Model) Targets() []walker.Element {
	return append([]walker.Element(nil), m.targets...)
}

// Lookup returns the declaration with the given qualified name.
func (m *Model) Lookup(qualified string) (walker.Element, bool) {
	el, ok := m.byName[qualified]
	return el, ok
}

// SupertypeOf implements walker.Introspector.
func (m *Model) SupertypeOf(t walker.Type) (walker.Type, bool) {
	ct, ok := t.(*classType)
	if !ok || ct.decl.Extends == "" {
		return nil, false
	}
	parent, ok := m.resolve(ct).(*classType)
	if !ok {
		return nil, false
	}
	return parent, true
}

// resolve looks the extends reference up from the innermost enclosing scope
// outwards and finally as a qualified name.
func (m *Model) resolve(ct *classType) walker.Element {
	ref := ct.decl.Extends
	scope := ct.id.Names[:len(ct.id.Names)-1]
	for i := len(scope); i >= 0; i-- {
		names := append(append([]string(nil), scope[:i]...), strings.Split(ref, ".")...)
		if el, ok := m.byName[joinQualified(ct.id.PkgPath, names)]; ok {
			return el
		}
	}
	return m.byName[ref]
}

// DeclaredFields implements walker.Introspector.
func (m *Model) DeclaredFields(t walker.Type) []walker.FieldDecl {
	ct, ok := t.(*classType)
	if !ok {
		return nil
	}
	fields := make([]walker.FieldDecl, 0, len(ct.decl.Fields))
	for _, f := range ct.decl.Fields {
		storage := walker.StorageInstance
		if f.Static {
			storage = walker.StorageClass
		}
		fields = append(fields, walker.FieldDecl{Name: f.Name, Storage: storage, Pos: ct.pos})
	}
	return fields
}

func joinQualified(path string, names []string) string {
	local := strings.Join(names, ".")
	if path == "" {
		return local
	}
	return path + "." + local
}

type classType struct {
	decl TypeDecl
	id   walker.Identity
	pos  string
}

func (c *classType) Name() string              { return c.id.QualifiedName() }
func (c *classType) Pos() string               { return c.pos }
func (c *classType) Identity() walker.Identity { return c.id }

type otherDecl struct {
	name string
	kind string
	pos  string
}

func (o *otherDecl) Name() string { return o.name + " (" + o.kind + ")" }
func (o *otherDecl) Pos() string  { return o.pos }
