// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "github.com/gogpu/shade/ir"

// targetKey tags target-intrinsic decorations belonging to GLSL-family
// targets.
const targetKey = "glsl"

// emitVertexDefinition is the intrinsic definition that identifies a
// geometry stream append call.
const emitVertexDefinition = "EmitVertex()"

// legalizationContext threads the pass's collaborators through the
// rewrite. There is no global state; everything flows through here.
type legalizationContext struct {
	session *ir.Session
	sink    *Sink
	tracker *UsageTracker
	stage   ir.Stage
	builder *ir.Builder
}

func (ctx *legalizationContext) requireExtension(name string) {
	if ctx.tracker != nil {
		ctx.tracker.RequireExtension(name)
	}
}

func (ctx *legalizationContext) requireVersion(v Version) {
	if ctx.tracker != nil {
		ctx.tracker.RequireVersion(v)
	}
}

// legalizeRayTracingEntryPointParameter moves a ray-tracing payload
// parameter to module scope without scalarizing it.
func legalizeRayTracingEntryPointParameter(
	ctx *legalizationContext,
	fn *ir.Inst,
	pp *ir.Inst,
	paramLayout *ir.VarLayout,
) {
	b := ctx.builder
	paramType := pp.Type()

	// The parameter might be an `in` parameter or an `out` / `in out`
	// parameter, and in the latter cases its type includes the wrapping
	// pointer-like type. Global shader parameters are read-only in the
	// same way function parameters are, so allocating a global with
	// exactly the original parameter type covers both.
	globalParam := b.CreateGlobalParam(paramType)
	b.AddLayoutDecoration(globalParam, paramLayout)
	moveValueBefore(globalParam, b.Func())
	pp.ReplaceUsesWith(globalParam)

	// Linkage between ray-tracing shaders is based on the type of the
	// payload and attribute parameters, so the global must survive even
	// if the entry point never touches it. Record the dependency so dead
	// code elimination cannot remove the parameter.
	b.AddDependsOnDecoration(fn, globalParam)
}

// legalizeEntryPointParameter rewrites one entry-point parameter into
// module-scope varyings, choosing the strategy by stage and type.
func legalizeEntryPointParameter(
	ctx *legalizationContext,
	fn *ir.Inst,
	pp *ir.Inst,
	paramLayout *ir.VarLayout,
) {
	b := ctx.builder
	stage := ctx.stage
	paramType := pp.Type()

	// Special-case stage I/O that doesn't fit the standard varying
	// model: geometry shader output streams.
	if paramType.Op == ir.OpOutType || paramType.Op == ir.OpInOutType {
		valueType := paramType.ValueType()
		if valueType.Op == ir.OpStreamOutputType {
			// An output stream like TriangleStream<V> translates to
			// out V, plus scalarization.
			globalOutputVal := createGlobalVaryings(
				ctx, b, valueType, paramLayout, ir.ResourceVaryingOutput, stage)

			// A stream might also be passed on to other functions, which
			// would need the same treatment. For now only the append
			// calls made directly in the entry point are handled.
			for bb := fn.FirstBlock(); bb != nil; bb = bb.NextBlock() {
				for inst := bb.FirstChild(); inst != nil; inst = inst.Next() {
					if inst.Op != ir.OpCall {
						continue
					}

					// Resolve the callee through specialize wrappers and
					// generic bodies.
					callee := inst.Operand(0)
					for {
						if callee.Op == ir.OpSpecialize {
							callee = callee.Operand(0)
							continue
						}
						if callee.Op == ir.OpGeneric {
							if result := ir.FindGenericReturnVal(callee); result != nil {
								callee = result
								continue
							}
						}
						break
					}
					if callee.Op != ir.OpFunc {
						continue
					}

					// The append operation is identified by the
					// target-intrinsic definition given to it.
					decoration := ir.FindTargetIntrinsicDecoration(callee, targetKey)
					if decoration == nil || decoration.Definition != emitVertexDefinition {
						continue
					}

					if globalOutputVal.flavor == flavorNone {
						continue
					}
					b.SetInsertBefore(inst)
					assign(b, globalOutputVal, scalarizedValue(inst.Operand(2)))
				}
			}

			// The append calls still reference the parameter, and nothing
			// with the right type exists to stand in for it, so replace
			// it with an undefined value that the emitter will never
			// actually print.
			b.SetInsertBefore(fn.FirstBlock().FirstOrdinaryInst())
			undefinedVal := b.EmitUndefined(pp.Type())
			pp.ReplaceUsesWith(undefinedVal)

			return
		}
	}

	// Ray-tracing stages keep struct-typed payloads: their inputs and
	// outputs are packaged types shared between stages, not scalarized
	// varyings, and an `in out` payload legalizes to a single variable.
	if stage.IsRayTracing() {
		legalizeRayTracingEntryPointParameter(ctx, fn, pp, paramLayout)
		return
	}

	if paramType.Op == ir.OpOutType || paramType.Op == ir.OpInOutType {
		// The parameter is passed by reference. Create a local variable
		// of the pointed-to type to replace it, along with one or more
		// globals for the actual input/output.
		valueType := paramType.ValueType()

		localVariable := b.EmitVar(valueType)
		localVal := scalarizedAddress(localVariable)

		if paramType.Op == ir.OpInOutType {
			// `in out` needs two sets of globals: one for the input side
			// and one for the output side.
			globalInputVal := createGlobalVaryings(
				ctx, b, valueType, paramLayout, ir.ResourceVaryingInput, stage)

			if globalInputVal.flavor != flavorNone {
				assign(b, localVal, globalInputVal)
			}
		}

		// Uses of the parameter switch over to the local variable; the
		// parameter was a pointer, and the variable is a pointer too.
		pp.ReplaceUsesWith(localVariable)

		globalOutputVal := createGlobalVaryings(
			ctx, b, valueType, paramLayout, ir.ResourceVaryingOutput, stage)
		if globalOutputVal.flavor == flavorNone {
			return
		}

		// Write the local out to the globals at every return site.
		for bb := fn.FirstBlock(); bb != nil; bb = bb.NextBlock() {
			terminator := bb.Terminator()
			if terminator == nil {
				continue
			}

			switch terminator.Op {
			case ir.OpReturnVal, ir.OpReturnVoid:
			default:
				continue
			}

			// A nested builder, so the outer builder keeps its insertion
			// point for parameter initialization at the top of the
			// function.
			terminatorBuilder := ir.NewBuilder(b.Module())
			terminatorBuilder.SetFunc(fn)
			terminatorBuilder.SetInsertBefore(terminator)

			assign(terminatorBuilder, globalOutputVal, localVal)
		}
	} else {
		// Plain input. Create the globals, materialize them once at the
		// top of the function, and replace uses of the parameter with
		// the materialized value.
		globalValue := createGlobalVaryings(
			ctx, b, paramType, paramLayout, ir.ResourceVaryingInput, stage)

		var materialized *ir.Inst
		if globalValue.flavor != flavorNone {
			materialized = materializeValue(b, globalValue)
		} else {
			// The varying was diagnosed and has no global to read from;
			// stand in an undefined value so the body stays well formed.
			materialized = b.EmitUndefined(paramType)
		}

		pp.ReplaceUsesWith(materialized)
	}
}

// LegalizeEntryPoint rewrites an entry-point function for a GLSL-family
// target: every varying parameter and the return value move to decorated
// module-scope parameters, and the function's signature becomes () -> void.
//
// The function must carry an entry-point layout decoration and must have
// no callers; a function used both as an entry point and as an ordinary
// callee has to be duplicated before this pass runs.
//
// Unknown system-value semantics are reported to sink; extension and
// version requirements of recognized semantics are recorded on tracker.
func LegalizeEntryPoint(
	session *ir.Session,
	module *ir.Module,
	fn *ir.Inst,
	sink *Sink,
	tracker *UsageTracker,
) {
	entryPointLayout := ir.FindEntryPointLayout(fn)
	if entryPointLayout == nil {
		unexpected("entry point has no entry-point layout decoration")
	}

	// Rewriting the signature would invalidate every call site, so the
	// function must not have any.
	if fn.HasUses() {
		unexpected("entry point has uses")
	}

	stage := entryPointLayout.Stage

	builder := ir.NewBuilder(module)
	builder.SetFunc(fn)

	ctx := &legalizationContext{
		session: session,
		sink:    sink,
		tracker: tracker,
		stage:   stage,
		builder: builder,
	}

	// Start with the return type: a void-returning function needs no
	// return-site rewriting, and if it also has no parameters the whole
	// function is already legal and there is nothing to do.
	resultType := fn.ResultType()
	if resultType.Op == ir.OpVoidType {
		if fn.ParamCount() == 0 {
			return
		}
	} else {
		// The function returns a value, so introduce globals to hold it
		// and replace every return-with-value with a write to those
		// globals followed by a void return.
		resultGlobal := createGlobalVaryings(
			ctx, builder, resultType, entryPointLayout.Result, ir.ResourceVaryingOutput, stage)

		for bb := fn.FirstBlock(); bb != nil; bb = bb.NextBlock() {
			for inst := bb.FirstChild(); inst != nil; inst = inst.Next() {
				if inst.Op != ir.OpReturnVal {
					continue
				}

				returnValue := inst.Operand(0)

				builder.SetInsertInto(bb)

				if resultGlobal.flavor != flavorNone {
					assign(builder, resultGlobal, scalarizedValue(returnValue))
				}

				returnVoid := builder.EmitReturn()

				inst.Destroy()

				// Resume iteration at the new terminator; the old
				// instruction is gone.
				inst = returnVoid
			}
		}
	}

	// Turn each parameter into global variables.
	if firstBlock := fn.FirstBlock(); firstBlock != nil {
		// Parameter initialization code goes at the start of the
		// ordinary instructions in the entry block.
		builder.SetInsertBefore(firstBlock.FirstOrdinaryInst())

		for pp := firstBlock.FirstParam(); pp != nil; pp = pp.NextParam() {
			paramLayout := ir.FindVarLayout(pp)
			if paramLayout == nil {
				unexpected("entry point parameter has no layout decoration")
			}

			legalizeEntryPointParameter(ctx, fn, pp, paramLayout)
		}

		// All uses of the parameters are rewritten by now, and the entry
		// block cannot be a branch target, so the parameters themselves
		// can go.
		for pp := firstBlock.FirstParam(); pp != nil; {
			next := pp.NextParam()
			pp.Destroy()
			pp = next
		}
	}

	// Patch up the type of the entry point; it is no longer accurate.
	fn.SetType(builder.FuncType(builder.VoidType()))
}
