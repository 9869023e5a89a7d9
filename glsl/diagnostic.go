// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/shade/ir"
)

// DiagnosticCode identifies a class of user-facing diagnostic.
type DiagnosticCode uint8

const (
	// DiagUnknownSystemValueSemantic reports a system-value semantic the
	// target has no mapping for. The varying gets no global; compilation
	// continues.
	DiagUnknownSystemValueSemantic DiagnosticCode = iota
)

var diagnosticMessages = map[DiagnosticCode]string{
	DiagUnknownSystemValueSemantic: "unknown system value semantic %q",
}

// String returns the code's identifier.
func (c DiagnosticCode) String() string {
	switch c {
	case DiagUnknownSystemValueSemantic:
		return "unknownSystemValueSemantic"
	}
	return fmt.Sprintf("diagnostic(%d)", uint8(c))
}

// Diagnostic is one reported problem with the input program.
type Diagnostic struct {
	Code    DiagnosticCode
	Loc     ir.SourceLoc
	Message string
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Loc.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", d.Loc.File, d.Loc.Line, d.Loc.Column, d.Message)
	}
	return d.Message
}

// Sink collects diagnostics emitted during legalization.
type Sink struct {
	diagnostics []Diagnostic
}

// Diagnose formats and records a diagnostic at loc.
func (s *Sink) Diagnose(loc ir.SourceLoc, code DiagnosticCode, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Code:    code,
		Loc:     loc,
		Message: fmt.Sprintf(diagnosticMessages[code], args...),
	})
}

// Diagnostics returns everything reported so far.
func (s *Sink) Diagnostics() []Diagnostic { return s.diagnostics }

// Count returns the number of diagnostics reported so far.
func (s *Sink) Count() int { return len(s.diagnostics) }
