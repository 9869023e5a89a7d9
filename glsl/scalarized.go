// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/shade/ir"
)

// When scalarizing shader inputs/outputs for GLSL, we need a way to refer
// to a conceptual "value" that may comprise multiple IR-level values. The
// scalarizedVal type deals with the "tuple or single value?" question, and
// also the "l-value or r-value?" question.
type scalarizedVal struct {
	flavor  scalarizedFlavor
	irValue *ir.Inst
	impl    scalarizedImpl
}

type scalarizedFlavor uint8

const (
	// no value
	flavorNone scalarizedFlavor = iota

	// a single instruction that is the actual value
	flavorValue

	// a single instruction that is the address of the actual value
	flavorAddress

	// a tuple of zero or more scalarizedVals
	flavorTuple

	// a single scalarizedVal with an implicit type conversion applied to
	// it on read or write
	flavorTypeAdapter
)

// scalarizedImpl is the boxed payload of the tuple and typeAdapter
// flavors. Impls may be shared between several scalarizedVal handles.
type scalarizedImpl interface {
	scalarizedImpl()
}

// scalarizedTupleImpl is a tuple of keyed sub-values standing in for a
// scalarized struct (possibly wrapped in outer arrays).
type scalarizedTupleImpl struct {
	// typ is the aggregate type the tuple presents, including any outer
	// array wrappers accumulated by declarators.
	typ      *ir.Inst
	elements []scalarizedTupleElement
}

// scalarizedTupleElement pairs a sub-value with the struct key of the
// field it came from.
type scalarizedTupleElement struct {
	key *ir.Inst
	val scalarizedVal
}

func (*scalarizedTupleImpl) scalarizedImpl() {}

// scalarizedTypeAdapterImpl wraps a value that is stored with one type but
// needs to present itself as having a different type.
type scalarizedTypeAdapterImpl struct {
	val         scalarizedVal
	actualType  *ir.Inst // the actual type of val
	pretendType *ir.Inst // the type this value pretends to have
}

func (*scalarizedTypeAdapterImpl) scalarizedImpl() {}

func scalarizedValue(inst *ir.Inst) scalarizedVal {
	return scalarizedVal{flavor: flavorValue, irValue: inst}
}

func scalarizedAddress(inst *ir.Inst) scalarizedVal {
	return scalarizedVal{flavor: flavorAddress, irValue: inst}
}

func scalarizedTuple(impl *scalarizedTupleImpl) scalarizedVal {
	return scalarizedVal{flavor: flavorTuple, impl: impl}
}

func scalarizedTypeAdapter(impl *scalarizedTypeAdapterImpl) scalarizedVal {
	return scalarizedVal{flavor: flavorTypeAdapter, impl: impl}
}

// unexpected aborts on an impossible IR shape or precondition breach.
// These indicate bugs in upstream passes, not user errors.
func unexpected(format string, args ...any) {
	panic("glsl: " + fmt.Sprintf(format, args...))
}

// getFieldType returns the type of the field named by fieldKey in a
// struct type.
func getFieldType(baseType, fieldKey *ir.Inst) *ir.Inst {
	if baseType.Op == ir.OpStructType {
		for _, field := range baseType.Fields() {
			if field.Key() == fieldKey {
				return field.FieldType()
			}
		}
	}
	unexpected("no such field %q in %s", fieldKey.Name, ir.TypeString(baseType))
	return nil
}

// extractField projects out one field of a scalarized aggregate.
func extractField(b *ir.Builder, val scalarizedVal, fieldIndex int, fieldKey *ir.Inst) scalarizedVal {
	switch val.flavor {
	case flavorValue:
		return scalarizedValue(b.EmitFieldExtract(
			getFieldType(val.irValue.Type(), fieldKey),
			val.irValue,
			fieldKey))

	case flavorAddress:
		ptrType := val.irValue.Type()
		if !ptrType.IsPtrType() {
			unexpected("field address of non-pointer %s", ir.TypeString(ptrType))
		}
		valType := ptrType.ValueType()
		fieldType := getFieldType(valType, fieldKey)
		fieldPtrType := b.PtrTypeWithOp(ptrType.Op, fieldType)
		return scalarizedAddress(b.EmitFieldAddress(fieldPtrType, val.irValue, fieldKey))

	case flavorTuple:
		tupleVal := val.impl.(*scalarizedTupleImpl)
		return tupleVal.elements[fieldIndex].val

	default:
		// The typeAdapter flavor never reaches field extraction because
		// scalarization bottoms out before adapters are introduced.
		unexpected("cannot extract field from scalarized value flavor %d", val.flavor)
		return scalarizedVal{}
	}
}

// adaptTypeInst converts a raw value from fromType to toType.
func adaptTypeInst(b *ir.Builder, val *ir.Inst, toType, _ *ir.Inst) scalarizedVal {
	// A constructor-style conversion. This is intentionally coarse: the
	// target's implicit scalar conversions cover the common cases, and
	// finer per-case handling is left for when it proves necessary.
	return scalarizedValue(b.EmitConstruct(toType, val))
}

// adaptType converts a scalarized value from fromType to toType.
func adaptType(b *ir.Builder, val scalarizedVal, toType, fromType *ir.Inst) scalarizedVal {
	switch val.flavor {
	case flavorValue:
		return adaptTypeInst(b, val.irValue, toType, fromType)

	case flavorAddress:
		loaded := b.EmitLoad(val.irValue)
		return adaptTypeInst(b, loaded, toType, fromType)

	default:
		unexpected("cannot adapt scalarized value flavor %d", val.flavor)
		return scalarizedVal{}
	}
}

// assign stores right into left, descending through tuples and adapters.
func assign(b *ir.Builder, left, right scalarizedVal) {
	switch left.flavor {
	case flavorAddress:
		switch right.flavor {
		case flavorValue:
			b.EmitStore(left.irValue, right.irValue)

		case flavorAddress:
			val := b.EmitLoad(right.irValue)
			b.EmitStore(left.irValue, val)

		case flavorTuple:
			// Assigning from a tuple to a destination that is not a
			// tuple: assign element by element.
			rightTupleVal := right.impl.(*scalarizedTupleImpl)
			for i, rightElement := range rightTupleVal.elements {
				leftElementVal := extractField(b, left, i, rightElement.key)
				assign(b, leftElementVal, rightElement.val)
			}

		default:
			unexpected("cannot assign from scalarized value flavor %d", right.flavor)
		}

	case flavorTuple:
		// Assign to each of the tuple's constituent fields.
		leftTupleVal := left.impl.(*scalarizedTupleImpl)
		for i, leftElement := range leftTupleVal.elements {
			rightElementVal := extractField(b, right, i, leftElement.key)
			assign(b, leftElement.val, rightElementVal)
		}

	case flavorTypeAdapter:
		// The destination had its type adjusted, so adjust the right-hand
		// side: convert to the actual type of the GLSL variable from the
		// pretend type it had in the IR.
		typeAdapter := left.impl.(*scalarizedTypeAdapterImpl)
		adaptedRight := adaptType(b, right, typeAdapter.actualType, typeAdapter.pretendType)
		assign(b, typeAdapter.val, adaptedRight)

	default:
		unexpected("cannot assign to scalarized value flavor %d", left.flavor)
	}
}

// getSubscriptValInst indexes a scalarized array value with an index
// instruction.
func getSubscriptValInst(b *ir.Builder, elementType *ir.Inst, val scalarizedVal, indexVal *ir.Inst) scalarizedVal {
	switch val.flavor {
	case flavorValue:
		return scalarizedValue(b.EmitElementExtract(elementType, val.irValue, indexVal))

	case flavorAddress:
		return scalarizedAddress(b.EmitElementAddress(
			b.PtrType(elementType),
			val.irValue,
			indexVal))

	case flavorTuple:
		// A scalarized array of structs is a tuple of per-leaf arrays, so
		// subscripting yields a tuple of the same shape over the element
		// struct type.
		inputTuple := val.impl.(*scalarizedTupleImpl)

		resultTuple := &scalarizedTupleImpl{typ: elementType}

		if elementType.Op != ir.OpStructType {
			unexpected("subscripted tuple element type %s is not a struct", ir.TypeString(elementType))
		}
		fields := elementType.Fields()
		if len(fields) != len(inputTuple.elements) {
			unexpected("tuple has %d elements for struct with %d fields", len(inputTuple.elements), len(fields))
		}
		for i, field := range fields {
			inputElement := inputTuple.elements[i]
			resultTuple.elements = append(resultTuple.elements, scalarizedTupleElement{
				key: inputElement.key,
				val: getSubscriptValInst(b, field.FieldType(), inputElement.val, indexVal),
			})
		}
		return scalarizedTuple(resultTuple)

	default:
		unexpected("cannot subscript scalarized value flavor %d", val.flavor)
		return scalarizedVal{}
	}
}

// getSubscriptVal indexes a scalarized array value with a constant index.
func getSubscriptVal(b *ir.Builder, elementType *ir.Inst, val scalarizedVal, index int64) scalarizedVal {
	return getSubscriptValInst(b, elementType, val, b.IntValue(index))
}

// materializeTupleValue assembles a single IR value from a scalarized
// tuple.
func materializeTupleValue(b *ir.Builder, val scalarizedVal) *ir.Inst {
	tupleVal, ok := val.impl.(*scalarizedTupleImpl)
	if !ok {
		unexpected("materializeTupleValue on non-tuple")
	}

	typ := tupleVal.typ
	if typ.Op == ir.OpArrayType {
		// The tuple represents an array, so the individual elements are
		// expected to yield arrays as well. Extract a value for each
		// array element and construct the result from those.
		elementType := typ.Operand(0)
		elementCount := ir.GetIntVal(typ.Operand(1))

		var arrayElementVals []*ir.Inst
		for i := int64(0); i < elementCount; i++ {
			elementVal := getSubscriptVal(b, elementType, val, i)
			arrayElementVals = append(arrayElementVals, materializeValue(b, elementVal))
		}
		return b.EmitMakeArray(typ, arrayElementVals...)
	}

	// The tuple represents a value of some aggregate type, so materialize
	// the elements and construct a value of that type.
	var elementVals []*ir.Inst
	for _, element := range tupleVal.elements {
		elementVals = append(elementVals, materializeValue(b, element.val))
	}
	return b.EmitConstruct(typ, elementVals...)
}

// materializeValue produces a single IR value for reads of a scalarized
// value.
func materializeValue(b *ir.Builder, val scalarizedVal) *ir.Inst {
	switch val.flavor {
	case flavorValue:
		return val.irValue

	case flavorAddress:
		return b.EmitLoad(val.irValue)

	case flavorTuple:
		return materializeTupleValue(b, val)

	case flavorTypeAdapter:
		// The value's actual type doesn't match the type it pretends to
		// have, so adapt from actual over to pretend before reading.
		typeAdapter := val.impl.(*scalarizedTypeAdapterImpl)
		adapted := adaptType(b, typeAdapter.val, typeAdapter.pretendType, typeAdapter.actualType)
		return materializeValue(b, adapted)

	default:
		unexpected("cannot materialize scalarized value flavor %d", val.flavor)
		return nil
	}
}
