// Package processor runs generation passes: for every marked element it
// collects the field names of the element's ancestor chain, builds the
// artifact description and hands it to a Writer. Failures are confined to
// the target that caused them and reported as diagnostics.
package processor

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/fielder/internal/compiler/codegen"
	"github.com/conduit-lang/fielder/internal/compiler/collector"
	"github.com/conduit-lang/fielder/internal/compiler/diagnostics"
	"github.com/conduit-lang/fielder/internal/compiler/walker"
	"github.com/conduit-lang/fielder/internal/logger"
)

const (
	// Marker is the directive that requests generation for a declaration.
	Marker = "fielder:generate"

	// OptionDebuggable toggles diagnostic verbosity ("false" disables).
	OptionDebuggable = "debuggable"
	// OptionOutput is the output location consumed by the writer.
	OptionOutput = "output"
)

// Writer persists one artifact.
type Writer interface {
	Persist(spec codegen.ArtifactSpec) error
}

// Phase is the state of the current pass.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseGenerating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseGenerating:
		return "generating"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor drives generation passes. Passes run one at a time; a Processor
// must not be used from several goroutines at once.
type Processor struct {
	introspector walker.Introspector
	writer       Writer
	reporter     diagnostics.Reporter
	logger       *zap.Logger
	debuggable   bool
	phase        Phase
}

// New creates a processor.
func New(introspector walker.Introspector, writer Writer, reporter diagnostics.Reporter, opts ...Option) *Processor {
	p := &Processor{
		introspector: introspector,
		writer:       writer,
		reporter:     reporter,
		logger:       zap.NewNop(),
		debuggable:   true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportedOptions lists the option keys Init understands.
func (p *Processor) SupportedOptions() []string {
	return []string{OptionDebuggable, OptionOutput}
}

// Init reads the host options. Only "debuggable" affects the processor;
// "output" belongs to the writer.
func (p *Processor) Init(options map[string]string) {
	p.debuggable = options[OptionDebuggable] != "false"
	p.phase = PhaseIdle
}

// Debuggable reports whether notes and stack traces are emitted.
func (p *Processor) Debuggable() bool {
	return p.debuggable
}

// Phase returns the phase of the running or last pass.
func (p *Processor) Phase() Phase {
	return p.phase
}

// Process runs one pass over targets. It never claims the marker, so it
// always returns false; other consumers may act on the same targets.
func (p *Processor) Process(targets []walker.Element) bool {
	ps := newPass(p)
	ps.log.Info("starting pass", zap.Int(logger.FieldCount, len(targets)))
	p.note(nil, "Starting generation pass over %d marked element(s).", len(targets))

	ps.collect(targets)
	ps.generate()
	ps.persist()

	ps.log.Info("pass finished",
		zap.Int("collected", len(ps.entries)),
		zap.Int("generated", len(ps.specs)),
		zap.Int("persisted", ps.persisted))
	return false
}

func (p *Processor) setPhase(l *zap.Logger, phase Phase) {
	p.phase = phase
	l.Debug("phase change", zap.Stringer(logger.FieldPhase, phase))
}

func (p *Processor) note(e walker.Element, format string, args ...any) {
	if !p.debuggable {
		return
	}
	p.report(diagnostics.SeverityNote, diagnostics.CodeNone, e, "", format, args...)
}

func (p *Processor) fail(code diagnostics.Code, e walker.Element, err error, format string, args ...any) {
	detail := ""
	if p.debuggable && err != nil {
		detail = fmt.Sprintf("%+v", err)
	}
	p.report(diagnostics.SeverityError, code, e, detail, format, args...)
}

func (p *Processor) report(sev diagnostics.Severity, code diagnostics.Code, e walker.Element, detail, format string, args ...any) {
	d := diagnostics.Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Detail:   detail,
	}
	if e != nil {
		d.Element = elementName(e)
		d.Position = e.Pos()
	}
	p.reporter.Report(d)
}

func elementName(e walker.Element) string {
	if t, ok := e.(walker.Type); ok {
		return t.Identity().QualifiedName()
	}
	return e.Name()
}

// entry is one target that survived collection.
type entry struct {
	target  walker.Type
	builder *collector.Builder
}

type artifact struct {
	target walker.Type
	spec   codegen.ArtifactSpec
}

// pass holds everything one Process call accumulates. It is discarded when
// the call returns.
type pass struct {
	p         *Processor
	log       *zap.Logger
	walker    *walker.Walker
	seen      map[walker.Element]bool
	entries   []entry
	specs     []artifact
	persisted int
}

func newPass(p *Processor) *pass {
	log := p.logger.With(zap.String(logger.FieldPassID, uuid.NewString()))
	return &pass{
		p:      p,
		log:    log,
		walker: walker.New(p.introspector, logger.Component(log, "walker")),
		seen:   make(map[walker.Element]bool),
	}
}

func (ps *pass) collect(targets []walker.Element) {
	ps.p.setPhase(ps.log, PhaseCollecting)
	for _, target := range targets {
		if ps.seen[target] {
			ps.log.Debug("skipping repeated target", zap.String(logger.FieldTarget, target.Name()))
			continue
		}
		ps.seen[target] = true

		ps.p.note(target, "Processing marked element: %s.", target.Name())
		b := collector.NewBuilder()
		if err := ps.collectOne(target, b); err != nil {
			ps.log.Debug("target dropped", zap.String(logger.FieldTarget, target.Name()), zap.Error(err))
			if errors.Is(err, walker.ErrUnresolvedElement) {
				ps.p.fail(diagnostics.CodeUnresolvedElement, target, err,
					"Unable to process %s: only struct types can carry the %s marker.", target.Name(), Marker)
			} else {
				ps.p.fail(diagnostics.CodeInternal, target, err,
					"Unable to collect fields of %s: %v.", target.Name(), err)
			}
			continue
		}
		ps.entries = append(ps.entries, entry{target: target.(walker.Type), builder: b})
	}
}

// collectOne walks one target, turning a panic inside the introspector into
// an error for that target alone.
func (ps *pass) collectOne(target walker.Element, b *collector.Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithDetail(errors.Newf("panic: %v", r), string(debug.Stack()))
		}
	}()
	return ps.walker.Collect(target, b)
}

func (ps *pass) generate() {
	ps.p.setPhase(ps.log, PhaseGenerating)
	claimed := make(map[string]walker.Type)
	for _, e := range ps.entries {
		id := e.target.Identity()
		spec := codegen.Generate(id, e.builder.Build())

		key := id.PkgPath + "." + spec.Name
		if prev, ok := claimed[key]; ok {
			ps.p.fail(diagnostics.CodeDuplicateIdentity, e.target, nil,
				"Generated name %s for %s is already used by %s.", spec.Name, id.QualifiedName(), prev.Identity().QualifiedName())
			continue
		}
		claimed[key] = e.target

		ps.log.Debug("artifact generated",
			zap.String(logger.FieldTarget, spec.Origin),
			zap.String(logger.FieldArtifact, spec.Name),
			zap.Int(logger.FieldCount, len(spec.Fields)))
		ps.specs = append(ps.specs, artifact{target: e.target, spec: spec})
	}
}

func (ps *pass) persistOne(spec codegen.ArtifactSpec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithDetail(errors.Newf("panic: %v", r), string(debug.Stack()))
		}
	}()
	return ps.p.writer.Persist(spec)
}

func (ps *pass) persist() {
	ps.p.setPhase(ps.log, PhaseDone)
	for _, a := range ps.specs {
		if err := ps.persistOne(a.spec); err != nil {
			ps.log.Debug("persist failed", zap.String(logger.FieldArtifact, a.spec.Name), zap.Error(err))
			ps.p.fail(diagnostics.CodePersistError, a.target, err,
				"Unable to write fielder for type %s: %v.", a.spec.Origin, err)
			continue
		}
		ps.persisted++
		ps.p.note(a.target, "Wrote %s with %d field(s).", a.spec.Name, len(a.spec.Fields))
	}
}
