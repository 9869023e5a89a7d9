// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "github.com/gogpu/shade/ir"

// globalVaryingDeclarator is one pending wrapper to apply when a leaf
// varying is created. The stack is a forward-linked list living on the
// recursion's own stack; only array declarators exist today.
type globalVaryingDeclarator struct {
	flavor       declaratorFlavor
	elementCount *ir.Inst
	next         *globalVaryingDeclarator
}

type declaratorFlavor uint8

const (
	declaratorArray declaratorFlavor = iota
)

// moveValueBefore re-anchors a module-scope value ahead of placeBefore.
func moveValueBefore(valueToMove, placeBefore *ir.Inst) {
	valueToMove.RemoveFromParent()
	valueToMove.InsertBefore(placeBefore)
}

// createSimpleGlobalVarying creates one module-scope parameter for a leaf
// varying: applies any system-value mapping, wraps the type in the pending
// array declarators, builds a fresh per-kind layout, and decorates the
// global.
func createSimpleGlobalVarying(
	ctx *legalizationContext,
	b *ir.Builder,
	inType *ir.Inst,
	inVarLayout *ir.VarLayout,
	inTypeLayout ir.TypeLayout,
	kind ir.ResourceKind,
	stage ir.Stage,
	bindingIndex int,
	declarator *globalVaryingDeclarator,
) scalarizedVal {
	// Check if we have a system value on our hands. An unrecognized
	// system-value semantic has already been diagnosed; it gets no
	// global, and the varying stays unbound.
	systemValueInfo, unknown := getSystemValueInfo(ctx, inVarLayout, kind, stage)
	if unknown {
		return scalarizedVal{}
	}

	typ := inType

	// A system-value semantic might need to override the type that the
	// user declared.
	if systemValueInfo != nil && systemValueInfo.requiredType != nil {
		typ = systemValueInfo.requiredType
	}

	// Construct the actual type and type layout for the global variable,
	// innermost declarator first.
	typeLayout := inTypeLayout
	for dd := declarator; dd != nil; dd = dd.next {
		if dd.flavor != declaratorArray {
			unexpected("unhandled declarator flavor %d", dd.flavor)
		}

		arrayType := b.ArrayType(typ, dd.elementCount)

		arrayTypeLayout := &ir.ArrayTypeLayout{ElementTypeLayout: typeLayout}
		if typeLayout != nil {
			arrayTypeLayout.LayoutRules = typeLayout.Rules()
		}
		if inTypeLayout != nil {
			if usage := inTypeLayout.FindResourceUsage(kind); usage != nil {
				elementCount := int(ir.GetIntVal(dd.elementCount))
				arrayTypeLayout.AddResourceUsage(kind, usage.Count*elementCount)
			}
		}

		typ = arrayType
		typeLayout = arrayTypeLayout
	}

	// We need a fresh layout for the variable even though the original
	// had one, because an `in out` parameter is visited once per kind and
	// each visit must carry only the resource info for that kind.
	varLayout := &ir.VarLayout{
		Decl:                     inVarLayout.Decl,
		TypeLayout:               typeLayout,
		Flags:                    inVarLayout.Flags,
		SemanticName:             inVarLayout.SemanticName,
		SemanticIndex:            inVarLayout.SemanticIndex,
		SystemValueSemantic:      inVarLayout.SystemValueSemantic,
		SystemValueSemanticIndex: inVarLayout.SystemValueSemanticIndex,
		Stage:                    inVarLayout.Stage,
	}
	varLayout.AddResourceInfo(kind).Index = bindingIndex

	// Global shader parameters are read-only the way function parameters
	// are, so a varying output needs an out-wrapper around its type.
	isOutput := kind == ir.ResourceVaryingOutput
	paramType := typ
	if isOutput {
		paramType = b.OutType(typ)
	}

	globalParam := b.CreateGlobalParam(paramType)
	moveValueBefore(globalParam, b.Func())

	var val scalarizedVal
	if isOutput {
		val = scalarizedAddress(globalParam)
	} else {
		val = scalarizedValue(globalParam)
	}

	if systemValueInfo != nil {
		b.AddImportDecoration(globalParam, systemValueInfo.name)

		if fromType := systemValueInfo.requiredType; fromType != nil {
			// We may need to adapt between the declared type and the
			// actual type of the GLSL global.
			toType := inType

			if fromType != toType {
				val = scalarizedTypeAdapter(&scalarizedTypeAdapterImpl{
					val:         val,
					actualType:  fromType,
					pretendType: toType,
				})
			}
		}

		if systemValueInfo.outerArrayName != "" {
			b.AddOuterArrayDecoration(globalParam, systemValueInfo.outerArrayName)
		}
	}

	b.AddLayoutDecoration(globalParam, varLayout)

	return val
}

// createGlobalVaryingsImpl recursively scalarizes a varying type into
// module-scope parameters, fanning structs out into tuples and pushing
// array dimensions onto the declarator stack so leaves come out as
// struct-of-arrays.
func createGlobalVaryingsImpl(
	ctx *legalizationContext,
	b *ir.Builder,
	typ *ir.Inst,
	varLayout *ir.VarLayout,
	typeLayout ir.TypeLayout,
	kind ir.ResourceKind,
	stage ir.Stage,
	bindingIndex int,
	declarator *globalVaryingDeclarator,
) scalarizedVal {
	switch typ.Op {
	case ir.OpVoidType:
		return scalarizedVal{}

	case ir.OpBoolType, ir.OpIntType, ir.OpUIntType, ir.OpFloatType, ir.OpVectorType, ir.OpMatrixType:
		// TODO: a matrix varying should probably be handled like an
		// array of rows.
		return createSimpleGlobalVarying(
			ctx, b, typ, varLayout, typeLayout, kind, stage, bindingIndex, declarator)

	case ir.OpArrayType:
		// SOA-ize any nested types.
		elementType := typ.Operand(0)
		elementCount := typ.Operand(1)

		var elementTypeLayout ir.TypeLayout
		if typeLayout != nil {
			arrayLayout, ok := typeLayout.(*ir.ArrayTypeLayout)
			if !ok {
				unexpected("array type carries %T layout", typeLayout)
			}
			elementTypeLayout = arrayLayout.ElementTypeLayout
		}

		arrayDeclarator := globalVaryingDeclarator{
			flavor:       declaratorArray,
			elementCount: elementCount,
			next:         declarator,
		}

		return createGlobalVaryingsImpl(
			ctx, b, elementType, varLayout, elementTypeLayout, kind, stage, bindingIndex, &arrayDeclarator)

	case ir.OpStreamOutputType:
		// A stream output scalarizes as its element type.
		elementType := typ.Operand(0)

		var elementTypeLayout ir.TypeLayout
		if typeLayout != nil {
			streamLayout, ok := typeLayout.(*ir.StreamOutputTypeLayout)
			if !ok {
				unexpected("stream output type carries %T layout", typeLayout)
			}
			elementTypeLayout = streamLayout.ElementTypeLayout
		}

		return createGlobalVaryingsImpl(
			ctx, b, elementType, varLayout, elementTypeLayout, kind, stage, bindingIndex, declarator)

	case ir.OpStructType:
		// Recurse into the individual fields and generate a variable for
		// each.
		structTypeLayout, ok := typeLayout.(*ir.StructTypeLayout)
		if !ok {
			unexpected("struct type carries %T layout", typeLayout)
		}

		tupleValImpl := &scalarizedTupleImpl{}

		// The tuple's type is the aggregate including any outer arrays.
		fullType := typ
		for dd := declarator; dd != nil; dd = dd.next {
			if dd.flavor != declaratorArray {
				unexpected("unhandled declarator flavor %d", dd.flavor)
			}
			fullType = b.ArrayType(fullType, dd.elementCount)
		}
		tupleValImpl.typ = fullType

		for fieldIndex, field := range typ.Fields() {
			fieldLayout := structTypeLayout.Fields[fieldIndex]

			fieldBindingIndex := bindingIndex
			if fieldResInfo := fieldLayout.FindResourceInfo(kind); fieldResInfo != nil {
				fieldBindingIndex += fieldResInfo.Index
			}

			fieldVal := createGlobalVaryingsImpl(
				ctx, b, field.FieldType(), fieldLayout, fieldLayout.TypeLayout, kind, stage, fieldBindingIndex, declarator)
			if fieldVal.flavor != flavorNone {
				tupleValImpl.elements = append(tupleValImpl.elements, scalarizedTupleElement{
					key: field.Key(),
					val: fieldVal,
				})
			}
		}

		return scalarizedTuple(tupleValImpl)
	}

	// Anything else (resource handles and the like) occupies a single
	// varying slot.
	return createSimpleGlobalVarying(
		ctx, b, typ, varLayout, typeLayout, kind, stage, bindingIndex, declarator)
}

// createGlobalVaryings scalarizes one varying (a parameter or the result)
// into module-scope parameters for the given resource kind.
func createGlobalVaryings(
	ctx *legalizationContext,
	b *ir.Builder,
	typ *ir.Inst,
	layout *ir.VarLayout,
	kind ir.ResourceKind,
	stage ir.Stage,
) scalarizedVal {
	bindingIndex := 0
	if rr := layout.FindResourceInfo(kind); rr != nil {
		bindingIndex = rr.Index
	}
	return createGlobalVaryingsImpl(
		ctx, b, typ, layout, layout.TypeLayout, kind, stage, bindingIndex, nil)
}
