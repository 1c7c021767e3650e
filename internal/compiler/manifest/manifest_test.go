package manifest

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fielder/internal/compiler/collector"
	"github.com/conduit-lang/fielder/internal/compiler/walker"
)

const appManifest = `package: app
path: com.example.app
types:
  - name: Base
    fields: [id, created_at]
  - name: User
    marked: true
    extends: Base
    fields:
      - email
      - {name: registry, static: true}
    types:
      - name: Base
        fields: [inner]
      - name: Profile
        marked: true
        extends: Base
        fields: [bio]
  - name: Shape
    kind: interface
    marked: true
`

func collect(t *testing.T, m *Model, el walker.Element) []string {
	t.Helper()
	b := collector.NewBuilder()
	require.NoError(t, walker.New(m, nil).Collect(el, b))
	return b.Build().Names()
}

func mustModel(t *testing.T, src string) *Model {
	t.Helper()
	f, err := Parse([]byte(src))
	require.NoError(t, err)
	m := NewModel()
	require.NoError(t, m.Add(f, "app.yaml"))
	return m
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(appManifest))
	require.NoError(t, err)

	assert.Equal(t, "app", f.Package)
	assert.Equal(t, "com.example.app", f.Path)
	require.Len(t, f.Types, 3)

	user := f.Types[1]
	assert.Equal(t, "User", user.Name)
	assert.True(t, user.Marked)
	assert.Equal(t, "Base", user.Extends)
	assert.Equal(t, []FieldSpec{{Name: "email"}, {Name: "registry", Static: true}}, user.Fields)
	assert.Equal(t, 6, user.Line)
	require.Len(t, user.Types, 2)
	assert.Equal(t, "Profile", user.Types[1].Name)

	assert.True(t, f.Types[0].IsClass())
	assert.False(t, f.Types[2].IsClass())
}

func TestParse_PathDefaultsToPackage(t *testing.T) {
	f, err := Parse([]byte("package: app\ntypes:\n  - name: A\n"))
	require.NoError(t, err)
	assert.Equal(t, "app", f.Path)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains string
	}{
		{"empty", "", "manifest is empty"},
		{"bad package", "package: my-app\n", "invalid package name"},
		{"unknown key", "package: app\ntypez: []\n", "decode manifest"},
		{"bad type name", "package: app\ntypes:\n  - name: 1st\n", "invalid type name"},
		{"duplicate type", "package: app\ntypes:\n  - name: A\n  - name: A\n", "declared twice"},
		{"duplicate nested", "package: app\ntypes:\n  - name: A\n    types:\n      - name: B\n      - name: B\n", "declared twice in app.A"},
		{"unnamed field", "package: app\ntypes:\n  - name: A\n    fields:\n      - {static: true}\n", "field without a name"},
		{"field with space", "package: app\ntypes:\n  - name: A\n    fields: ['first name']\n", `invalid field name "first name" in app.A`},
		{"field starting with digit", "package: app\ntypes:\n  - name: A\n    fields: ['1x']\n", `invalid field name "1x"`},
		{"field with quote", "package: app\ntypes:\n  - name: A\n    fields: ['a\"b']\n", `invalid field name "a\"b"`},
		{"nested field", "package: app\ntypes:\n  - name: A\n    types:\n      - name: B\n        fields: [ok, 'not ok']\n", "line 5: invalid field name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestModel_Targets(t *testing.T) {
	m := mustModel(t, appManifest)

	var names []string
	for _, el := range m.Targets() {
		names = append(names, el.Name())
	}
	assert.Equal(t, []string{
		"com.example.app.User",
		"com.example.app.User.Profile",
		"com.example.app.Shape (interface)",
	}, names)

	shape := m.Targets()[2]
	_, isType := shape.(walker.Type)
	assert.False(t, isType, "non-class declarations are not class-like")
	assert.Equal(t, "app.yaml:19", shape.Pos())
}

func TestModel_CollectsInheritedFields(t *testing.T) {
	m := mustModel(t, appManifest)

	user, ok := m.Lookup("com.example.app.User")
	require.True(t, ok)
	assert.Equal(t, []string{"created_at", "email", "id"}, collect(t, m, user))
}

func TestModel_ExtendsResolvesInnermostScopeFirst(t *testing.T) {
	m := mustModel(t, appManifest)

	profile, ok := m.Lookup("com.example.app.User.Profile")
	require.True(t, ok)
	assert.Equal(t, []string{"bio", "inner"}, collect(t, m, profile))

	id := profile.(walker.Type).Identity()
	assert.Equal(t, []string{"User", "Profile"}, id.Names)
	assert.Equal(t, "app", id.Package)
}

func TestModel_QualifiedExtends(t *testing.T) {
	m := mustModel(t, `package: app
types:
  - name: Base
    fields: [a]
  - name: Outer
    types:
      - name: Base
        fields: [b]
      - name: Leaf
        marked: true
        extends: app.Base
        fields: [c]
`)

	leaf, ok := m.Lookup("app.Outer.Leaf")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, collect(t, m, leaf))
}

func TestModel_UnknownExtendsIsOpaque(t *testing.T) {
	m := mustModel(t, `package: app
types:
  - name: Foo
    marked: true
    extends: external.Thing
    fields: [x]
`)

	foo, ok := m.Lookup("app.Foo")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, collect(t, m, foo))
}

func TestModel_ExtendsNonClassIsOpaque(t *testing.T) {
	m := mustModel(t, `package: app
types:
  - name: Shape
    kind: interface
  - name: Square
    marked: true
    extends: Shape
    fields: [side]
`)

	sq, ok := m.Lookup("app.Square")
	require.True(t, ok)
	_, hasParent := m.SupertypeOf(sq.(walker.Type))
	assert.False(t, hasParent)
	assert.Equal(t, []string{"side"}, collect(t, m, sq))
}

func TestModel_CyclicExtends(t *testing.T) {
	m := mustModel(t, `package: app
types:
  - name: A
    marked: true
    extends: B
    fields: [a]
  - name: B
    extends: A
    fields: [b]
`)

	a, ok := m.Lookup("app.A")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, collect(t, m, a))
}

func TestModel_DeclaredFieldsStorage(t *testing.T) {
	m := mustModel(t, appManifest)

	user, _ := m.Lookup("com.example.app.User")
	fields := m.DeclaredFields(user.(walker.Type))
	require.Len(t, fields, 2)
	assert.Equal(t, walker.StorageInstance, fields[0].Storage)
	assert.Equal(t, walker.StorageClass, fields[1].Storage)
	assert.Equal(t, "app.yaml:6", fields[0].Pos)
}

func TestLoadFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("schemas", "a.yaml"), []byte(`package: app
types:
  - name: Base
    fields: [id]
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join("schemas", "b.yaml"), []byte(`package: app
output: gen
types:
  - name: User
    marked: true
    extends: app.Base
    fields: [name]
`), 0o644))

	m, err := LoadFiles(fs, filepath.Join("schemas", "a.yaml"), filepath.Join("schemas", "b.yaml"))
	require.NoError(t, err)

	targets := m.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, []string{"id", "name"}, collect(t, m, targets[0]))

	id := targets[0].(walker.Type).Identity()
	assert.Equal(t, filepath.Join("schemas", "gen"), id.Dir)

	base, ok := m.Lookup("app.Base")
	require.True(t, ok)
	assert.Equal(t, "schemas", base.(walker.Type).Identity().Dir)
}

func TestLoadFiles_DuplicateAcrossManifests(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := []byte("package: app\ntypes:\n  - name: A\n")
	require.NoError(t, afero.WriteFile(fs, "a.yaml", doc, 0o644))
	require.NoError(t, afero.WriteFile(fs, "b.yaml", doc, 0o644))

	_, err := LoadFiles(fs, "a.yaml", "b.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared by more than one manifest")
}

func TestLoadFiles_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("package: 9\n"), 0o644))

	_, err := LoadFiles(fs, "missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest missing.yaml")

	_, err = LoadFiles(fs, "bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest bad.yaml")
}
