package ir

// Builder constructs and inserts instructions.
//
// The insertion point is either "before an instruction" or "at the end of
// a block"; every Emit* call inserts at the current point. Type getters
// intern structural types on the module, so equal types compare as equal
// pointers. Function types with parameters are the exception: each
// FuncType call with parameters creates a new type.
type Builder struct {
	module *Module

	fn           *Inst
	insertBefore *Inst
	insertInto   *Inst
}

// NewBuilder creates a builder for module with no insertion point.
func NewBuilder(module *Module) *Builder {
	return &Builder{module: module}
}

// Module returns the module the builder emits into.
func (b *Builder) Module() *Module { return b.module }

// Func returns the function the builder is working inside, if any.
func (b *Builder) Func() *Inst { return b.fn }

// SetFunc records the function the builder is working inside. Newly
// created module-scope values are placed relative to it by callers.
func (b *Builder) SetFunc(fn *Inst) { b.fn = fn }

// SetInsertBefore arranges for subsequent emits to insert before inst.
func (b *Builder) SetInsertBefore(inst *Inst) {
	b.insertBefore = inst
	b.insertInto = nil
}

// SetInsertInto arranges for subsequent emits to append to block.
func (b *Builder) SetInsertInto(block *Inst) {
	b.insertBefore = nil
	b.insertInto = block
}

// InsertionPoint returns the instruction emits insert before, or nil when
// appending.
func (b *Builder) InsertionPoint() *Inst { return b.insertBefore }

func (b *Builder) insert(inst *Inst) *Inst {
	switch {
	case b.insertBefore != nil:
		inst.InsertBefore(b.insertBefore)
	case b.insertInto != nil:
		inst.InsertAtEnd(b.insertInto)
	default:
		panic("ir: builder has no insertion point")
	}
	return inst
}

// Type getters. Structural types are interned per module.

// VoidType returns the void type.
func (b *Builder) VoidType() *Inst {
	return b.module.intern(typeKey{op: OpVoidType}, func() *Inst { return newInst(OpVoidType, nil) })
}

// BoolType returns the bool type.
func (b *Builder) BoolType() *Inst {
	return b.module.intern(typeKey{op: OpBoolType}, func() *Inst { return newInst(OpBoolType, nil) })
}

// IntType returns the 32-bit signed integer type.
func (b *Builder) IntType() *Inst {
	return b.module.intern(typeKey{op: OpIntType}, func() *Inst { return newInst(OpIntType, nil) })
}

// UIntType returns the 32-bit unsigned integer type.
func (b *Builder) UIntType() *Inst {
	return b.module.intern(typeKey{op: OpUIntType}, func() *Inst { return newInst(OpUIntType, nil) })
}

// FloatType returns the 32-bit float type.
func (b *Builder) FloatType() *Inst {
	return b.module.intern(typeKey{op: OpFloatType}, func() *Inst { return newInst(OpFloatType, nil) })
}

// IntValue returns an interned integer literal of IntType.
func (b *Builder) IntValue(value int64) *Inst {
	intType := b.IntType()
	return b.module.intern(typeKey{op: OpIntLit, a: intType, n: value}, func() *Inst {
		lit := newInst(OpIntLit, intType)
		lit.IntVal = value
		return lit
	})
}

// VectorType returns the vector type with the given element type and
// element count literal.
func (b *Builder) VectorType(elem, count *Inst) *Inst {
	return b.module.intern(typeKey{op: OpVectorType, a: elem, b: count}, func() *Inst {
		return newInst(OpVectorType, nil, elem, count)
	})
}

// MatrixType returns the matrix type with the given element type and
// row/column count literals.
func (b *Builder) MatrixType(elem, rows, cols *Inst) *Inst {
	return b.module.intern(typeKey{op: OpMatrixType, a: elem, b: rows, n: GetIntVal(cols)}, func() *Inst {
		return newInst(OpMatrixType, nil, elem, rows, cols)
	})
}

// ArrayType returns the array type with the given element type and element
// count literal.
func (b *Builder) ArrayType(elem, count *Inst) *Inst {
	return b.module.intern(typeKey{op: OpArrayType, a: elem, b: count}, func() *Inst {
		return newInst(OpArrayType, nil, elem, count)
	})
}

// PtrType returns the plain pointer type to valueType.
func (b *Builder) PtrType(valueType *Inst) *Inst {
	return b.ptrType(OpPtrType, valueType)
}

// OutType returns the out-wrapping pointer type to valueType.
func (b *Builder) OutType(valueType *Inst) *Inst {
	return b.ptrType(OpOutType, valueType)
}

// InOutType returns the in/out-wrapping pointer type to valueType.
func (b *Builder) InOutType(valueType *Inst) *Inst {
	return b.ptrType(OpInOutType, valueType)
}

// PtrTypeWithOp returns a pointer type of the given flavor to valueType.
// The flavor of an existing pointer is preserved when deriving a pointer
// to one of its fields.
func (b *Builder) PtrTypeWithOp(op Op, valueType *Inst) *Inst {
	switch op {
	case OpPtrType, OpOutType, OpInOutType:
		return b.ptrType(op, valueType)
	}
	panic("ir: not a pointer opcode: " + op.String())
}

func (b *Builder) ptrType(op Op, valueType *Inst) *Inst {
	return b.module.intern(typeKey{op: op, a: valueType}, func() *Inst {
		return newInst(op, nil, valueType)
	})
}

// StreamOutputType returns the geometry stream output type over elem.
func (b *Builder) StreamOutputType(elem *Inst) *Inst {
	return b.module.intern(typeKey{op: OpStreamOutputType, a: elem}, func() *Inst {
		return newInst(OpStreamOutputType, nil, elem)
	})
}

// FuncType returns a function type. Parameterless types are interned.
func (b *Builder) FuncType(result *Inst, params ...*Inst) *Inst {
	if len(params) == 0 {
		return b.module.intern(typeKey{op: OpFuncType, a: result}, func() *Inst {
			return newInst(OpFuncType, nil, result)
		})
	}
	operands := append([]*Inst{result}, params...)
	return newInst(OpFuncType, nil, operands...)
}

// StructKey creates a fresh struct key with the given field name. Keys are
// identities: two keys with the same name are distinct fields.
func (b *Builder) StructKey(name string) *Inst {
	key := newInst(OpStructKey, nil)
	key.Name = name
	return key
}

// StructField creates a field carrying key and type, for use in StructType.
func (b *Builder) StructField(key, fieldType *Inst) *Inst {
	return newInst(OpStructField, nil, key, fieldType)
}

// StructType creates a nominal struct type from fields. Struct types are
// not interned.
func (b *Builder) StructType(name string, fields ...*Inst) *Inst {
	st := newInst(OpStructType, nil, fields...)
	st.Name = name
	return st
}

// Value and instruction creation.

// CreateGlobalParam creates a module-scope shader parameter of valueType,
// appended at module scope. Callers reposition it with InsertBefore.
func (b *Builder) CreateGlobalParam(valueType *Inst) *Inst {
	param := newInst(OpGlobalParam, valueType)
	param.InsertAtEnd(b.module.root)
	return param
}

// CreateFunc creates a function of the given function type at module scope.
func (b *Builder) CreateFunc(funcType *Inst) *Inst {
	fn := newInst(OpFunc, funcType)
	fn.InsertAtEnd(b.module.root)
	return fn
}

// CreateGeneric creates a generic at module scope.
func (b *Builder) CreateGeneric() *Inst {
	g := newInst(OpGeneric, nil)
	g.InsertAtEnd(b.module.root)
	return g
}

// CreateBlock appends a new block to fn.
func (b *Builder) CreateBlock(fn *Inst) *Inst {
	block := newInst(OpBlock, nil)
	block.InsertAtEnd(fn)
	return block
}

// CreateParam appends a parameter of the given type to block, after any
// existing parameters and before the ordinary instructions.
func (b *Builder) CreateParam(block, paramType *Inst) *Inst {
	param := newInst(OpParam, paramType)
	if at := block.FirstOrdinaryInst(); at != nil {
		param.InsertBefore(at)
	} else {
		param.InsertAtEnd(block)
	}
	return param
}

// EmitVar emits a local variable holding a value of valueType. The
// variable's own type is a pointer to valueType.
func (b *Builder) EmitVar(valueType *Inst) *Inst {
	return b.insert(newInst(OpVar, b.PtrType(valueType)))
}

// EmitLoad emits a load through ptr.
func (b *Builder) EmitLoad(ptr *Inst) *Inst {
	return b.insert(newInst(OpLoad, ptr.Type().ValueType(), ptr))
}

// EmitStore emits a store of value through ptr.
func (b *Builder) EmitStore(ptr, value *Inst) *Inst {
	return b.insert(newInst(OpStore, b.VoidType(), ptr, value))
}

// EmitFieldExtract emits extraction of the field named by key from a
// struct value.
func (b *Builder) EmitFieldExtract(fieldType, base, key *Inst) *Inst {
	return b.insert(newInst(OpFieldExtract, fieldType, base, key))
}

// EmitFieldAddress emits the address of the field named by key within a
// struct pointed to by base.
func (b *Builder) EmitFieldAddress(fieldPtrType, base, key *Inst) *Inst {
	return b.insert(newInst(OpFieldAddress, fieldPtrType, base, key))
}

// EmitElementExtract emits extraction of an element of an array value.
func (b *Builder) EmitElementExtract(elementType, base, index *Inst) *Inst {
	return b.insert(newInst(OpElementExtract, elementType, base, index))
}

// EmitElementAddress emits the address of an element of an array pointed
// to by base.
func (b *Builder) EmitElementAddress(elementPtrType, base, index *Inst) *Inst {
	return b.insert(newInst(OpElementAddress, elementPtrType, base, index))
}

// EmitMakeArray emits construction of an array value from elements.
func (b *Builder) EmitMakeArray(arrayType *Inst, elements ...*Inst) *Inst {
	return b.insert(newInst(OpMakeArray, arrayType, elements...))
}

// EmitConstruct emits a constructor producing a value of resultType from
// the arguments. A single-argument constructor doubles as a conversion.
func (b *Builder) EmitConstruct(resultType *Inst, args ...*Inst) *Inst {
	return b.insert(newInst(OpConstruct, resultType, args...))
}

// EmitCall emits a call to callee with the given arguments.
func (b *Builder) EmitCall(resultType, callee *Inst, args ...*Inst) *Inst {
	operands := append([]*Inst{callee}, args...)
	return b.insert(newInst(OpCall, resultType, operands...))
}

// EmitSpecialize emits specialization of a generic with the given
// arguments.
func (b *Builder) EmitSpecialize(resultType, generic *Inst, args ...*Inst) *Inst {
	operands := append([]*Inst{generic}, args...)
	return b.insert(newInst(OpSpecialize, resultType, operands...))
}

// EmitUndefined emits an undefined value of the given type.
func (b *Builder) EmitUndefined(typ *Inst) *Inst {
	return b.insert(newInst(OpUndefined, typ))
}

// EmitReturn emits a void return.
func (b *Builder) EmitReturn() *Inst {
	return b.insert(newInst(OpReturnVoid, b.VoidType()))
}

// EmitReturnVal emits a return of value.
func (b *Builder) EmitReturnVal(value *Inst) *Inst {
	return b.insert(newInst(OpReturnVal, b.VoidType(), value))
}
