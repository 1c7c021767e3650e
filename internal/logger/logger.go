// Package logger builds the zap loggers used by the fielder CLI.
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names shared by every component, so log lines stay greppable.
const (
	FieldPassID    = "pass_id"
	FieldPhase     = "phase"
	FieldTarget    = "target"
	FieldArtifact  = "artifact"
	FieldFile      = "file"
	FieldCount     = "count"
	FieldComponent = "component"
)

// Verbosity levels for the -v flag count.
const (
	VerbosityQuiet = 0 // warnings and errors
	VerbosityInfo  = 1 // -v: + pass summaries
	VerbosityDebug = 2 // -vv: + per-target and per-field tracing
)

// VerbosityToLevel maps -v flag counts to zap levels.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityQuiet:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewWithWriter returns a console logger writing to w.
func NewWithWriter(w io.Writer, verbosity int) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(w),
		VerbosityToLevel(verbosity),
	)
	return zap.New(core)
}

// Component returns a child logger tagged with the component name.
func Component(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.With(zap.String(FieldComponent, name))
}
