package ir

import "fmt"

// Op identifies the opcode of an instruction. Types and integer literals
// are instructions too, so opcodes cover values, types, and structure.
type Op uint8

const (
	// OpModule is the root instruction of a Module. Its children are the
	// module-scope values: functions, global parameters, and generics.
	OpModule Op = iota

	// Literals

	// OpIntLit is an integer literal. The value is in Inst.IntVal.
	OpIntLit

	// Types

	OpVoidType
	OpBoolType
	OpIntType
	OpUIntType
	OpFloatType
	OpVectorType       // operands: element type, element count literal
	OpMatrixType       // operands: element type, row count, column count
	OpArrayType        // operands: element type, element count literal
	OpStructType       // operands: struct fields
	OpStructField      // operands: struct key, field type
	OpStructKey        // field identity; Inst.Name carries the field name
	OpPtrType          // operands: value type
	OpOutType          // operands: value type
	OpInOutType        // operands: value type
	OpStreamOutputType // operands: element type
	OpFuncType         // operands: result type, then parameter types

	// Module-scope values

	OpFunc        // children: blocks
	OpGlobalParam // a module-scope shader parameter
	OpGeneric     // children: blocks; the body returns the specialized value

	// Function structure

	OpBlock // children: params, then ordinary instructions
	OpParam

	// Ordinary instructions

	OpVar // a local variable; its type is a pointer to the value type
	OpLoad
	OpStore
	OpFieldExtract   // operands: base value, struct key
	OpFieldAddress   // operands: base address, struct key
	OpElementExtract // operands: base value, index
	OpElementAddress // operands: base address, index
	OpMakeArray
	OpConstruct
	OpCall       // operands: callee, then arguments
	OpSpecialize // operands: generic, then specialization arguments
	OpUndefined
	OpReturnVal // operands: returned value
	OpReturnVoid
)

var opNames = [...]string{
	OpModule:           "module",
	OpIntLit:           "int_lit",
	OpVoidType:         "void",
	OpBoolType:         "bool",
	OpIntType:          "int",
	OpUIntType:         "uint",
	OpFloatType:        "float",
	OpVectorType:       "vector",
	OpMatrixType:       "matrix",
	OpArrayType:        "array",
	OpStructType:       "struct",
	OpStructField:      "field",
	OpStructKey:        "key",
	OpPtrType:          "ptr",
	OpOutType:          "out",
	OpInOutType:        "inout",
	OpStreamOutputType: "stream_output",
	OpFuncType:         "func_type",
	OpFunc:             "func",
	OpGlobalParam:      "global_param",
	OpGeneric:          "generic",
	OpBlock:            "block",
	OpParam:            "param",
	OpVar:              "var",
	OpLoad:             "load",
	OpStore:            "store",
	OpFieldExtract:     "field_extract",
	OpFieldAddress:     "field_address",
	OpElementExtract:   "element_extract",
	OpElementAddress:   "element_address",
	OpMakeArray:        "make_array",
	OpConstruct:        "construct",
	OpCall:             "call",
	OpSpecialize:       "specialize",
	OpUndefined:        "undefined",
	OpReturnVal:        "return_val",
	OpReturnVoid:       "return_void",
}

// String returns the mnemonic for the opcode.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Use records a single use of an instruction's value: the using
// instruction and which of its operand slots holds the reference.
type Use struct {
	user  *Inst
	index int

	prev, next *Use
}

// User returns the instruction that holds the reference.
func (u *Use) User() *Inst { return u.user }

// OperandIndex returns the operand slot of the user holding the reference.
func (u *Use) OperandIndex() int { return u.index }

// Inst is a node in the IR graph.
//
// The graph links (parent, siblings, children, uses) are maintained by the
// mutation methods; operands must be changed through SetOperand so the use
// lists stay consistent.
type Inst struct {
	// Op is the opcode. It is fixed at creation.
	Op Op

	// IntVal carries the value of an OpIntLit.
	IntVal int64

	// Name carries a debug or identity name where one exists: struct key
	// names, function names, declaration names.
	Name string

	typ      *Inst
	operands []*Inst

	parent     *Inst
	prev, next *Inst

	firstChild, lastChild *Inst

	firstUse *Use

	decorations []Decoration
}

func newInst(op Op, typ *Inst, operands ...*Inst) *Inst {
	inst := &Inst{Op: op, typ: typ}
	inst.operands = make([]*Inst, len(operands))
	for i, operand := range operands {
		inst.operands[i] = operand
		if operand != nil {
			operand.addUse(inst, i)
		}
	}
	return inst
}

// Type returns the data type of the instruction's value, or nil for types
// and structural instructions.
func (inst *Inst) Type() *Inst { return inst.typ }

// OperandCount returns the number of operands.
func (inst *Inst) OperandCount() int { return len(inst.operands) }

// Operand returns the i'th operand.
func (inst *Inst) Operand(i int) *Inst { return inst.operands[i] }

// SetOperand replaces the i'th operand, updating use lists.
func (inst *Inst) SetOperand(i int, value *Inst) {
	if old := inst.operands[i]; old != nil {
		old.removeUse(inst, i)
	}
	inst.operands[i] = value
	if value != nil {
		value.addUse(inst, i)
	}
}

func (inst *Inst) addUse(user *Inst, index int) {
	use := &Use{user: user, index: index, next: inst.firstUse}
	if inst.firstUse != nil {
		inst.firstUse.prev = use
	}
	inst.firstUse = use
}

func (inst *Inst) removeUse(user *Inst, index int) {
	for use := inst.firstUse; use != nil; use = use.next {
		if use.user != user || use.index != index {
			continue
		}
		if use.prev != nil {
			use.prev.next = use.next
		} else {
			inst.firstUse = use.next
		}
		if use.next != nil {
			use.next.prev = use.prev
		}
		return
	}
}

// FirstUse returns the head of the use list, or nil if the value is unused.
func (inst *Inst) FirstUse() *Use { return inst.firstUse }

// Next returns the next use in the list.
func (u *Use) Next() *Use { return u.next }

// HasUses reports whether any instruction references this value.
func (inst *Inst) HasUses() bool { return inst.firstUse != nil }

// UseCount returns the number of operand slots referencing this value.
func (inst *Inst) UseCount() int {
	n := 0
	for use := inst.firstUse; use != nil; use = use.next {
		n++
	}
	return n
}

// ReplaceUsesWith rewrites every use of inst to reference other instead.
func (inst *Inst) ReplaceUsesWith(other *Inst) {
	for inst.firstUse != nil {
		use := inst.firstUse
		inst.firstUse = use.next
		if inst.firstUse != nil {
			inst.firstUse.prev = nil
		}

		use.user.operands[use.index] = other
		use.prev = nil
		use.next = other.firstUse
		if other.firstUse != nil {
			other.firstUse.prev = use
		}
		other.firstUse = use
	}
}

// Parent returns the enclosing instruction (block, function, or module
// root), or nil for detached instructions and types.
func (inst *Inst) Parent() *Inst { return inst.parent }

// Next returns the next sibling.
func (inst *Inst) Next() *Inst { return inst.next }

// Prev returns the previous sibling.
func (inst *Inst) Prev() *Inst { return inst.prev }

// FirstChild returns the first child instruction.
func (inst *Inst) FirstChild() *Inst { return inst.firstChild }

// LastChild returns the last child instruction.
func (inst *Inst) LastChild() *Inst { return inst.lastChild }

// InsertAtEnd appends inst as the last child of parent.
func (inst *Inst) InsertAtEnd(parent *Inst) {
	inst.RemoveFromParent()
	inst.parent = parent
	inst.prev = parent.lastChild
	if parent.lastChild != nil {
		parent.lastChild.next = inst
	} else {
		parent.firstChild = inst
	}
	parent.lastChild = inst
}

// InsertBefore places inst immediately before other, under other's parent.
func (inst *Inst) InsertBefore(other *Inst) {
	inst.RemoveFromParent()
	parent := other.parent
	inst.parent = parent
	inst.next = other
	inst.prev = other.prev
	if other.prev != nil {
		other.prev.next = inst
	} else if parent != nil {
		parent.firstChild = inst
	}
	other.prev = inst
}

// RemoveFromParent detaches inst from its parent's child list. Operand and
// use links are untouched.
func (inst *Inst) RemoveFromParent() {
	parent := inst.parent
	if parent == nil {
		return
	}
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		parent.firstChild = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		parent.lastChild = inst.prev
	}
	inst.parent = nil
	inst.prev = nil
	inst.next = nil
}

// Destroy removes inst from its parent and releases its operand
// references. The caller must have rewritten or abandoned all uses of the
// instruction's own value first.
func (inst *Inst) Destroy() {
	inst.RemoveFromParent()
	for i, operand := range inst.operands {
		if operand != nil {
			operand.removeUse(inst, i)
			inst.operands[i] = nil
		}
	}
}

// Function and block structure helpers.

// FirstBlock returns the first block of a function or generic.
func (inst *Inst) FirstBlock() *Inst {
	for child := inst.firstChild; child != nil; child = child.next {
		if child.Op == OpBlock {
			return child
		}
	}
	return nil
}

// NextBlock returns the next block after a block.
func (inst *Inst) NextBlock() *Inst {
	for sib := inst.next; sib != nil; sib = sib.next {
		if sib.Op == OpBlock {
			return sib
		}
	}
	return nil
}

// FirstParam returns the first parameter of a block, or nil.
func (inst *Inst) FirstParam() *Inst {
	if child := inst.firstChild; child != nil && child.Op == OpParam {
		return child
	}
	return nil
}

// NextParam returns the next parameter after a parameter, or nil.
func (inst *Inst) NextParam() *Inst {
	if sib := inst.next; sib != nil && sib.Op == OpParam {
		return sib
	}
	return nil
}

// FirstOrdinaryInst returns the first non-parameter child of a block.
func (inst *Inst) FirstOrdinaryInst() *Inst {
	for child := inst.firstChild; child != nil; child = child.next {
		if child.Op != OpParam {
			return child
		}
	}
	return nil
}

// Terminator returns the last instruction of a block, or nil.
func (inst *Inst) Terminator() *Inst { return inst.lastChild }

// ParamCount returns the number of parameters of a function's entry block.
func (inst *Inst) ParamCount() int {
	block := inst.FirstBlock()
	if block == nil {
		return 0
	}
	n := 0
	for p := block.FirstParam(); p != nil; p = p.NextParam() {
		n++
	}
	return n
}

// ResultType returns the result type of a function, read off its FuncType.
func (inst *Inst) ResultType() *Inst {
	if inst.typ == nil || inst.typ.Op != OpFuncType {
		return nil
	}
	return inst.typ.Operand(0)
}

// SetType changes the data type of the instruction. The function type of a
// legalized entry point is rewritten through this.
func (inst *Inst) SetType(typ *Inst) { inst.typ = typ }

// IsPtrType reports whether the type is any of the pointer-flavored types.
func (inst *Inst) IsPtrType() bool {
	switch inst.Op {
	case OpPtrType, OpOutType, OpInOutType:
		return true
	}
	return false
}

// ValueType returns the pointed-to type of a pointer-flavored type, or the
// element type of a stream-output type.
func (inst *Inst) ValueType() *Inst { return inst.Operand(0) }

// Struct helpers. A struct type's operands are its OpStructField
// instructions; each field's operands are its key and its type.

// Fields returns the field instructions of a struct type.
func (inst *Inst) Fields() []*Inst { return inst.operands }

// Key returns the struct key of an OpStructField.
func (inst *Inst) Key() *Inst { return inst.Operand(0) }

// FieldType returns the type of an OpStructField.
func (inst *Inst) FieldType() *Inst { return inst.Operand(1) }

// GetIntVal returns the value of an integer literal instruction.
func GetIntVal(inst *Inst) int64 {
	if inst.Op != OpIntLit {
		panic(fmt.Sprintf("ir: expected int literal, have %v", inst.Op))
	}
	return inst.IntVal
}

// FindGenericReturnVal resolves the value produced by a generic's body:
// the operand of the first block, in block order, that ends in a
// return_val. Returns nil if no block does.
func FindGenericReturnVal(generic *Inst) *Inst {
	for block := generic.FirstBlock(); block != nil; block = block.NextBlock() {
		term := block.Terminator()
		if term != nil && term.Op == OpReturnVal {
			return term.Operand(0)
		}
	}
	return nil
}

// Session carries compilation-session state shared across modules. It is
// threaded through passes alongside the module they rewrite.
type Session struct{}

// NewSession creates a fresh compilation session.
func NewSession() *Session { return &Session{} }

// Module is a shader module: a root instruction owning every module-scope
// value, plus an intern table for structural types.
type Module struct {
	Session *Session

	root      *Inst
	typeCache map[typeKey]*Inst
}

// NewModule creates an empty module owned by session.
func NewModule(session *Session) *Module {
	return &Module{
		Session:   session,
		root:      &Inst{Op: OpModule},
		typeCache: make(map[typeKey]*Inst),
	}
}

// Root returns the module's root instruction. Module-scope values are its
// children, in emission order.
func (m *Module) Root() *Inst { return m.root }

// FirstInst returns the first module-scope value.
func (m *Module) FirstInst() *Inst { return m.root.firstChild }

// typeKey identifies an internable type or literal by opcode and up to two
// referenced instructions plus an integer payload.
type typeKey struct {
	op   Op
	a, b *Inst
	n    int64
}

func (m *Module) intern(key typeKey, create func() *Inst) *Inst {
	if inst, ok := m.typeCache[key]; ok {
		return inst
	}
	inst := create()
	m.typeCache[key] = inst
	return inst
}
