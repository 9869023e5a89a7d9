// Package shade provides a Pure Go shader compiler middle-end.
//
// shade rewrites shader IR so that entry points written against the
// parameter-and-return-value stage I/O model become legal for GLSL-family
// targets, where stage I/O lives in module-scope variables and the entry
// point is a parameterless void main.
//
// The package provides a high-level API over whole modules as well as
// lower-level access to the individual pieces:
//
//	session := ir.NewSession()
//	module := ir.NewModule(session)
//	// ... build or import an entry point ...
//	info, diags, err := shade.Legalize(module, shade.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control, use the glsl package directly:
//
//	sink := &glsl.Sink{}
//	tracker := glsl.NewUsageTracker(glsl.Version330)
//	glsl.LegalizeEntryPoint(session, module, fn, sink, tracker)
package shade

import (
	"fmt"

	"github.com/gogpu/shade/glsl"
	"github.com/gogpu/shade/ir"
)

// Options configures legalization.
type Options struct {
	// LangVersion is the GLSL version compilation starts from. The
	// required version reported back may be higher if features demand
	// it. Defaults to glsl.Version330 if zero.
	LangVersion glsl.Version

	// Validate checks the rewritten module for structural consistency
	// after the pass runs.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		LangVersion: glsl.Version330,
		Validate:    true,
	}
}

// Info describes what the legalized module requires of its target.
type Info struct {
	// EntryPoints lists the names of the entry points that were
	// rewritten.
	EntryPoints []string

	// RequiredVersion is the minimum GLSL version the module needs.
	RequiredVersion glsl.Version

	// UsedExtensions lists GLSL extensions the module requires.
	UsedExtensions []string
}

// Legalize rewrites every entry point in the module for a GLSL-family
// target. Entry points are the functions carrying an entry-point layout
// decoration; each must be free of callers.
//
// Returns target requirements, any user-facing diagnostics, and an error
// if post-validation was requested and failed.
func Legalize(module *ir.Module, opts Options) (Info, []glsl.Diagnostic, error) {
	if opts.LangVersion.Major == 0 {
		opts.LangVersion = glsl.Version330
	}

	sink := &glsl.Sink{}
	tracker := glsl.NewUsageTracker(opts.LangVersion)

	var info Info
	for inst := module.FirstInst(); inst != nil; inst = inst.Next() {
		if inst.Op != ir.OpFunc {
			continue
		}
		if ir.FindEntryPointLayout(inst) == nil {
			continue
		}

		glsl.LegalizeEntryPoint(module.Session, module, inst, sink, tracker)
		info.EntryPoints = append(info.EntryPoints, inst.Name)
	}

	info.RequiredVersion = tracker.RequiredVersion()
	info.UsedExtensions = tracker.Extensions()

	if opts.Validate {
		validationErrors, err := ir.Validate(module)
		if err != nil {
			return info, sink.Diagnostics(), fmt.Errorf("validation error: %w", err)
		}
		if len(validationErrors) > 0 {
			return info, sink.Diagnostics(), fmt.Errorf("validation failed: %w", validationErrors[0])
		}
	}

	return info, sink.Diagnostics(), nil
}
