package walker

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/conduit-lang/fielder/internal/compiler/collector"
)

// ErrUnresolvedElement is returned when a marked element is not class-like.
var ErrUnresolvedElement = errors.New("unresolved element")

// Walker ascends ancestor chains through an Introspector.
type Walker struct {
	introspector Introspector
	logger       *zap.Logger
}

// New creates a walker backed by the given introspector.
func New(introspector Introspector, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{introspector: introspector, logger: logger}
}

// AncestorChain returns the target followed by each of its ancestors, nearest
// first. Ascension stops at the root, at an ancestor the introspector cannot
// resolve, or when a type repeats (pointer embedding can form cycles).
func (w *Walker) AncestorChain(target Element) ([]Type, error) {
	t, ok := target.(Type)
	if !ok {
		return nil, errors.WithHint(
			errors.Wrapf(ErrUnresolvedElement, "%s is not a class-like type", target.Name()),
			"the marker can only be applied to struct type declarations",
		)
	}

	chain := []Type{t}
	seen := map[Type]bool{t: true}
	for {
		parent, ok := w.introspector.SupertypeOf(t)
		if !ok {
			w.logger.Debug("no further ancestor", zap.String("type", t.Name()))
			return chain, nil
		}
		if seen[parent] {
			w.logger.Debug("ancestor cycle",
				zap.String("type", t.Name()),
				zap.String("ancestor", parent.Name()))
			return chain, nil
		}
		w.logger.Debug("found ancestor",
			zap.String("type", t.Name()),
			zap.String("ancestor", parent.Name()))
		seen[parent] = true
		chain = append(chain, parent)
		t = parent
	}
}

// DeclaredFields returns the instance fields t declares directly.
func (w *Walker) DeclaredFields(t Type) []FieldDecl {
	all := w.introspector.DeclaredFields(t)
	fields := make([]FieldDecl, 0, len(all))
	for _, f := range all {
		if f.Storage != StorageInstance {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// Collect feeds the instance field names of target and all of its ancestors
// into b.
func (w *Walker) Collect(target Element, b *collector.Builder) error {
	chain, err := w.AncestorChain(target)
	if err != nil {
		return err
	}
	for _, t := range chain {
		for _, f := range w.DeclaredFields(t) {
			w.logger.Debug("adding field",
				zap.String("type", t.Name()),
				zap.String("field", f.Name))
			b.AddName(f.Name)
		}
	}
	return nil
}
