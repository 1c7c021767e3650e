// Package gosource exposes Go packages to the walker. Struct types marked
// with the //fielder:generate directive become targets; an embedded struct
// plays the role of the ancestor.
//
// Ancestor rule: the first embedded field whose type is a named struct (or
// a pointer to one) is the ancestor. Embedded interfaces are capabilities
// and never contribute fields. An embedded field whose type did not
// type-check is opaque and ends the chain. Blank (_) fields are treated as
// class-level storage and skipped.
//
// Function-local types are named by receiver and function. When the same
// name is declared again under that scope (two init bodies, sibling
// blocks) the later declarations get their ordinal as an extra segment,
// e.g. init.setup and init.2.setup.
//
// With Config.Tests a package is scanned through its test variant only, so
// each declaration is seen once.
package gosource

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/conduit-lang/fielder/internal/compiler/processor"
	"github.com/conduit-lang/fielder/internal/compiler/walker"
)

// Directive is the comment line that marks a declaration.
const Directive = "//" + processor.Marker

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Config controls which packages are loaded.
type Config struct {
	// Dir is the directory patterns are resolved in; "" means the
	// working directory.
	Dir string
	// Patterns are go list patterns; empty means "./...".
	Patterns []string
	// Tests includes test files.
	Tests  bool
	Logger *zap.Logger
}

// Source is a set of loaded packages. It implements walker.Introspector.
type Source struct {
	fset    *token.FileSet
	logger  *zap.Logger
	targets []walker.Element

	structs map[*types.TypeName]*structType
	// enclosing records the function (and receiver) names around types
	// declared inside function bodies.
	enclosing map[*types.TypeName][]string
	// locals counts function-local declarations per qualified name.
	locals map[string]int
	dirs   map[*types.Package]string
}

var _ walker.Introspector = (*Source)(nil)

// Load loads the packages matching cfg and scans them for markers. Package
// errors are logged and do not fail the load; the affected declarations
// simply resolve less.
func Load(ctx context.Context, cfg Config) (*Source, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	fset := token.NewFileSet()
	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     cfg.Dir,
		Fset:    fset,
		Tests:   cfg.Tests,
	}, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "load packages %s", strings.Join(patterns, " "))
	}
	if len(pkgs) == 0 {
		return nil, errors.WithHint(
			errors.Newf("no packages found for %s", strings.Join(patterns, " ")),
			"run fielder from inside a Go module or pass package patterns",
		)
	}

	s := &Source{
		fset:      fset,
		logger:    log,
		structs:   make(map[*types.TypeName]*structType),
		enclosing: make(map[*types.TypeName][]string),
		locals:    make(map[string]int),
		dirs:      make(map[*types.Package]string),
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	for _, pkg := range withoutShadowedVariants(pkgs) {
		for _, pkgErr := range pkg.Errors {
			log.Warn("package error", zap.String("package", pkg.PkgPath), zap.String("error", pkgErr.Error()))
		}
		if pkg.Types == nil || pkg.TypesInfo == nil {
			continue
		}
		if len(pkg.GoFiles) > 0 {
			s.dirs[pkg.Types] = filepath.Dir(pkg.GoFiles[0])
		}
		s.scanPackage(pkg)
	}
	return s, nil
}

// withoutShadowedVariants drops packages whose test variant was also
// loaded, and the synthesized test mains. A test variant type-checks the
// package again, so scanning both would report every marked type twice.
func withoutShadowedVariants(pkgs []*packages.Package) []*packages.Package {
	hasVariant := make(map[string]bool)
	for _, pkg := range pkgs {
		if pkg.ID != pkg.PkgPath {
			hasVariant[pkg.PkgPath] = true
		}
	}
	kept := make([]*packages.Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		if pkg.ID == pkg.PkgPath && hasVariant[pkg.PkgPath] {
			continue
		}
		if pkg.Name == "main" && strings.HasSuffix(pkg.PkgPath, ".test") {
			continue
		}
		kept = append(kept, pkg)
	}
	return kept
}

// Targets returns the marked elements in package, file and declaration
// order.
func (s *Source) Targets() []walker.Element {
	return append([]walker.Element(nil), s.targets...)
}

func (s *Source) scanPackage(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		for _, d := range file.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				s.scanGenDecl(pkg, d, nil)
			case *ast.FuncDecl:
				if hasDirective(d.Doc) {
					s.addDecl(pkg, nil, d.Name.Name, d.Name.Pos())
				}
				if d.Body != nil {
					s.scanBody(pkg, funcPath(d), d.Body)
				}
			}
		}
	}
}

func (s *Source) scanBody(pkg *packages.Package, enclosing []string, body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		stmt, ok := n.(*ast.DeclStmt)
		if !ok {
			return true
		}
		if gd, ok := stmt.Decl.(*ast.GenDecl); ok {
			s.scanGenDecl(pkg, gd, enclosing)
		}
		return true
	})
}

func (s *Source) scanGenDecl(pkg *packages.Package, d *ast.GenDecl, enclosing []string) {
	for _, spec := range d.Specs {
		doc := specDoc(d, spec)
		switch spec := spec.(type) {
		case *ast.TypeSpec:
			scope := s.localScope(pkg, enclosing, spec.Name.Name)
			obj, _ := pkg.TypesInfo.Defs[spec.Name].(*types.TypeName)
			if obj != nil && len(scope) > 0 {
				s.enclosing[obj] = scope
			}
			if !hasDirective(doc) {
				continue
			}
			if obj == nil {
				s.addDecl(pkg, scope, spec.Name.Name, spec.Name.Pos())
				continue
			}
			if t := s.typeOf(obj); t != nil {
				s.targets = append(s.targets, t)
			} else {
				s.addDecl(pkg, scope, obj.Name(), obj.Pos())
			}
		case *ast.ValueSpec:
			if !hasDirective(doc) {
				continue
			}
			for _, name := range spec.Names {
				s.addDecl(pkg, enclosing, name.Name, name.Pos())
			}
		}
	}
}

// localScope returns the enclosing names for a type declared in a function
// body. The n-th repeat of a name under the same scope gets "n" appended.
func (s *Source) localScope(pkg *packages.Package, enclosing []string, name string) []string {
	if len(enclosing) == 0 {
		return nil
	}
	key := qualify(append([]string{pkg.PkgPath}, enclosing...), name)
	n := s.locals[key]
	s.locals[key] = n + 1
	if n == 0 {
		return enclosing
	}
	return append(append([]string(nil), enclosing...), strconv.Itoa(n+1))
}

// addDecl records a marked declaration that is not a struct type.
func (s *Source) addDecl(pkg *packages.Package, enclosing []string, name string, pos token.Pos) {
	s.targets = append(s.targets, &decl{
		name: qualify(append([]string{pkg.PkgPath}, enclosing...), name),
		pos:  s.position(pos),
	})
}

// typeOf returns the walker type for a struct declaration, or nil when obj
// is not a struct type.
func (s *Source) typeOf(obj *types.TypeName) *structType {
	if obj.IsAlias() {
		return nil
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil
	}
	return s.wrap(named)
}

// wrap returns the unique structType for named, or nil when its underlying
// type is not a struct.
func (s *Source) wrap(named *types.Named) *structType {
	named = named.Origin()
	obj := named.Obj()
	if t, ok := s.structs[obj]; ok {
		return t
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil
	}

	id := walker.Identity{
		Names: append(append([]string(nil), s.enclosing[obj]...), obj.Name()),
	}
	if pkg := obj.Pkg(); pkg != nil {
		id.Package = pkg.Name()
		id.PkgPath = pkg.Path()
		id.Dir = s.dirs[pkg]
	}

	t := &structType{
		obj: obj,
		st:  st,
		id:  id,
		pos: s.position(obj.Pos()),
	}
	t.parent, t.opaque = ancestorField(st)
	s.structs[obj] = t
	return t
}

// SupertypeOf implements walker.Introspector.
func (s *Source) SupertypeOf(t walker.Type) (walker.Type, bool) {
	st, ok := t.(*structType)
	if !ok || st.parent < 0 || st.opaque {
		return nil, false
	}
	named := namedStruct(st.st.Field(st.parent).Type())
	if named == nil {
		return nil, false
	}
	parent := s.wrap(named)
	if parent == nil {
		return nil, false
	}
	return parent, true
}

// DeclaredFields implements walker.Introspector.
func (s *Source) DeclaredFields(t walker.Type) []walker.FieldDecl {
	st, ok := t.(*structType)
	if !ok {
		return nil
	}
	var fields []walker.FieldDecl
	for i := 0; i < st.st.NumFields(); i++ {
		if i == st.parent {
			continue
		}
		f := st.st.Field(i)
		if f.Embedded() && types.IsInterface(f.Type()) {
			continue
		}
		storage := walker.StorageInstance
		if f.Name() == "_" {
			storage = walker.StorageClass
		}
		fields = append(fields, walker.FieldDecl{
			Name:    f.Name(),
			Storage: storage,
			Pos:     s.position(f.Pos()),
		})
	}
	return fields
}

func (s *Source) position(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return s.fset.Position(pos).String()
}

// ancestorField returns the index of the embedded field acting as the
// ancestor, or -1. opaque is set when that field did not type-check.
func ancestorField(st *types.Struct) (index int, opaque bool) {
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		if isInvalid(f.Type()) {
			return i, true
		}
		if namedStruct(f.Type()) != nil {
			return i, false
		}
	}
	return -1, false
}

// namedStruct unwraps aliases and one pointer level and returns the named
// struct type, or nil.
func namedStruct(typ types.Type) *types.Named {
	typ = types.Unalias(typ)
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = types.Unalias(ptr.Elem())
	}
	named, ok := typ.(*types.Named)
	if !ok {
		return nil
	}
	if _, ok := named.Underlying().(*types.Struct); !ok {
		return nil
	}
	return named
}

func isInvalid(typ types.Type) bool {
	typ = types.Unalias(typ)
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = ptr.Elem()
	}
	basic, ok := typ.(*types.Basic)
	return ok && basic.Kind() == types.Invalid
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(c.Text)
		if text == Directive || strings.HasPrefix(text, Directive+" ") {
			return true
		}
	}
	return false
}

// specDoc returns the doc comment for spec; an unparenthesised declaration
// keeps its comment on the GenDecl.
func specDoc(d *ast.GenDecl, spec ast.Spec) *ast.CommentGroup {
	var doc *ast.CommentGroup
	switch spec := spec.(type) {
	case *ast.TypeSpec:
		doc = spec.Doc
	case *ast.ValueSpec:
		doc = spec.Doc
	}
	if doc == nil && !d.Lparen.IsValid() {
		doc = d.Doc
	}
	return doc
}

// funcPath names the enclosing scope of a function body: the receiver type
// (for methods) followed by the function name.
func funcPath(fn *ast.FuncDecl) []string {
	var path []string
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		if name := receiverName(fn.Recv.List[0].Type); name != "" {
			path = append(path, name)
		}
	}
	return append(path, fn.Name.Name)
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.ParenExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	}
	return ""
}

func qualify(enclosing []string, name string) string {
	if len(enclosing) == 0 {
		return name
	}
	return strings.Join(enclosing, ".") + "." + name
}

// structType is a named struct type. One instance exists per type, so
// values compare equal exactly when they denote the same type.
type structType struct {
	obj    *types.TypeName
	st     *types.Struct
	id     walker.Identity
	pos    string
	parent int
	opaque bool
}

func (t *structType) Name() string              { return t.id.QualifiedName() }
func (t *structType) Pos() string               { return t.pos }
func (t *structType) Identity() walker.Identity { return t.id }

// decl is a marked declaration that is not a struct type.
type decl struct {
	name string
	pos  string
}

func (d *decl) Name() string { return d.name }
func (d *decl) Pos() string  { return d.pos }
