// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"

	"github.com/gogpu/shade/ir"
)

// systemValueInfo describes how a system-value semantic maps onto the
// target.
type systemValueInfo struct {
	// name of the built-in GLSL variable
	name string

	// name of an outer array that wraps the variable, in the case of a
	// geometry shader input
	outerArrayName string

	// required type of the built-in variable; nil preserves the declared
	// type
	requiredType *ir.Inst
}

// getSystemValueInfo maps a layout's system-value semantic to the GLSL
// built-in it corresponds to, recording any extension or version
// requirements along the way. Returns nil info for non-system values and
// for semantics the target treats as ordinary location-based varyings. An
// unrecognized semantic is diagnosed and reported through the second
// result; the caller creates no global for it.
func getSystemValueInfo(ctx *legalizationContext, varLayout *ir.VarLayout, kind ir.ResourceKind, stage ir.Stage) (*systemValueInfo, bool) {
	semanticNameSpelling := varLayout.SystemValueSemantic
	if semanticNameSpelling == "" {
		return nil, false
	}

	semanticName := strings.ToLower(semanticNameSpelling)

	b := ctx.builder
	var info systemValueInfo

	switch semanticName {
	case "sv_position":
		// This semantic can either work like gl_FragCoord when used as a
		// fragment shader input, or like gl_Position in other stages.
		//
		// Note: this isn't as simple as testing input-vs-output, because
		// a user might have a VS output SV_Position and then pass it
		// along to a GS that reads it as input.
		switch {
		case stage == ir.StageFragment && kind == ir.ResourceVaryingInput:
			info.name = "gl_FragCoord"
		case stage == ir.StageGeometry && kind == ir.ResourceVaryingInput:
			// As a GS input the correct syntax is gl_in[...].gl_Position,
			// which is not compatible with picking the array dimension
			// later, so the outer array is recorded separately.
			info.outerArrayName = "gl_in"
			info.name = "gl_Position"
		default:
			info.name = "gl_Position"
		}
		info.requiredType = b.VectorType(b.FloatType(), b.IntValue(4))

	case "sv_target":
		// Fragment-shader outputs need no gl_ builtin: they are ordinary
		// out variables with ordinary locations as far as GLSL is
		// concerned.
		return nil, false

	case "sv_clipdistance":
		info.name = "gl_ClipDistance"
		info.requiredType = b.FloatType()

	case "sv_culldistance":
		ctx.requireExtension("ARB_cull_distance")
		info.name = "gl_CullDistance"
		info.requiredType = b.FloatType()

	case "sv_coverage":
		// uint in the source model, int in GLSL.
		info.name = "gl_SampleMask"
		info.requiredType = b.IntType()

	case "sv_depth":
		info.name = "gl_FragDepth"
		info.requiredType = b.FloatType()

	case "sv_depthgreaterequal":
		// TODO: layout(depth_greater) out float gl_FragDepth;
		info.name = "gl_FragDepth"
		info.requiredType = b.FloatType()

	case "sv_depthlessequal":
		// TODO: layout(depth_less) out float gl_FragDepth;
		info.name = "gl_FragDepth"
		info.requiredType = b.FloatType()

	case "sv_dispatchthreadid":
		info.name = "gl_GlobalInvocationID"
		info.requiredType = b.VectorType(b.UIntType(), b.IntValue(3))

	case "sv_domainlocation":
		info.name = "gl_TessCoord"
		info.requiredType = b.VectorType(b.FloatType(), b.IntValue(3))

	case "sv_groupid":
		info.name = "gl_WorkGroupID"
		info.requiredType = b.VectorType(b.UIntType(), b.IntValue(3))

	case "sv_groupindex":
		info.name = "gl_LocalInvocationIndex"
		info.requiredType = b.UIntType()

	case "sv_groupthreadid":
		info.name = "gl_LocalInvocationID"
		info.requiredType = b.VectorType(b.UIntType(), b.IntValue(3))

	case "sv_gsinstanceid":
		info.name = "gl_InvocationID"
		info.requiredType = b.IntType()

	case "sv_instanceid":
		info.name = "gl_InstanceIndex"
		info.requiredType = b.IntType()

	case "sv_isfrontface":
		info.name = "gl_FrontFacing"
		info.requiredType = b.BoolType()

	case "sv_outputcontrolpointid":
		info.name = "gl_InvocationID"
		info.requiredType = b.IntType()

	case "sv_pointsize":
		info.name = "gl_PointSize"
		info.requiredType = b.FloatType()

	case "sv_primitiveid":
		info.name = "gl_PrimitiveID"
		info.requiredType = b.IntType()

	case "sv_rendertargetarrayindex":
		switch stage {
		case ir.StageGeometry:
			ctx.requireVersion(Version150)
		case ir.StageFragment:
			ctx.requireVersion(Version430)
		default:
			ctx.requireVersion(Version450)
			ctx.requireExtension("GL_ARB_shader_viewport_layer_array")
		}
		info.name = "gl_Layer"
		info.requiredType = b.IntType()

	case "sv_sampleindex":
		info.name = "gl_SampleID"
		info.requiredType = b.IntType()

	case "sv_stencilref":
		ctx.requireExtension("ARB_shader_stencil_export")
		info.name = "gl_FragStencilRef"
		info.requiredType = b.IntType()

	case "sv_tessfactor":
		// The source-model declaration may be a float array shorter than
		// four; GLSL always uses float[4]. Arrays shorter than four run
		// through the SOA path and are not converted correctly yet.
		info.name = "gl_TessLevelOuter"
		info.requiredType = b.ArrayType(b.FloatType(), b.IntValue(4))

	case "sv_vertexid":
		info.name = "gl_VertexIndex"
		info.requiredType = b.IntType()

	case "sv_viewportarrayindex":
		info.name = "gl_ViewportIndex"
		info.requiredType = b.IntType()

	case "nv_x_right":
		ctx.requireVersion(Version450)
		ctx.requireExtension("GL_NVX_multiview_per_view_attributes")
		// The actual GLSL output is vec4 gl_PositionPerViewNV[] meant to
		// support an arbitrary number of views, while the source model
		// just defines a second position output. Map the output to one
		// element of the array.
		info.name = "gl_PositionPerViewNV[1]"

	case "nv_viewport_mask":
		ctx.requireVersion(Version450)
		ctx.requireExtension("GL_NVX_multiview_per_view_attributes")
		// Neither the presented nor the required type is overridden here;
		// this relies on the source type being compatible with
		// highp int gl_ViewportMaskPerViewNV[].
		info.name = "gl_ViewportMaskPerViewNV"

	default:
		var loc ir.SourceLoc
		if varLayout.Decl != nil {
			loc = varLayout.Decl.Loc
		}
		ctx.sink.Diagnose(loc, DiagUnknownSystemValueSemantic, semanticNameSpelling)
		return nil, true
	}

	return &info, false
}
