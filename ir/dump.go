package ir

import (
	"fmt"
	"strings"
)

// TypeString renders a type instruction as compact source-like text.
func TypeString(t *Inst) string {
	if t == nil {
		return "?"
	}
	switch t.Op {
	case OpVoidType:
		return "void"
	case OpBoolType:
		return "bool"
	case OpIntType:
		return "int"
	case OpUIntType:
		return "uint"
	case OpFloatType:
		return "float"
	case OpVectorType:
		return fmt.Sprintf("vec%d<%s>", GetIntVal(t.Operand(1)), TypeString(t.Operand(0)))
	case OpMatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", GetIntVal(t.Operand(1)), GetIntVal(t.Operand(2)), TypeString(t.Operand(0)))
	case OpArrayType:
		return fmt.Sprintf("%s[%d]", TypeString(t.Operand(0)), GetIntVal(t.Operand(1)))
	case OpStructType:
		if t.Name != "" {
			return t.Name
		}
		var fields []string
		for _, f := range t.Fields() {
			fields = append(fields, fmt.Sprintf("%s: %s", f.Key().Name, TypeString(f.FieldType())))
		}
		return "struct{" + strings.Join(fields, ", ") + "}"
	case OpPtrType:
		return fmt.Sprintf("ptr<%s>", TypeString(t.Operand(0)))
	case OpOutType:
		return fmt.Sprintf("out<%s>", TypeString(t.Operand(0)))
	case OpInOutType:
		return fmt.Sprintf("inout<%s>", TypeString(t.Operand(0)))
	case OpStreamOutputType:
		return fmt.Sprintf("stream<%s>", TypeString(t.Operand(0)))
	case OpFuncType:
		var params []string
		for i := 1; i < t.OperandCount(); i++ {
			params = append(params, TypeString(t.Operand(i)))
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), TypeString(t.Operand(0)))
	}
	return t.Op.String()
}

// Dump renders the module as readable text, one instruction per line.
// The format is for debugging and golden assertions, not a stable wire
// format.
func Dump(m *Module) string {
	d := &dumper{names: make(map[*Inst]string)}
	d.out.WriteString("module {\n")
	for inst := m.FirstInst(); inst != nil; inst = inst.Next() {
		d.dumpGlobal(inst)
	}
	d.out.WriteString("}\n")
	return d.out.String()
}

type dumper struct {
	out     strings.Builder
	names   map[*Inst]string
	counter int
}

func (d *dumper) name(inst *Inst) string {
	if name, ok := d.names[inst]; ok {
		return name
	}
	var name string
	switch {
	case inst.Op == OpIntLit:
		return fmt.Sprintf("%d", inst.IntVal)
	case inst.Name != "":
		name = "%" + inst.Name
	default:
		name = fmt.Sprintf("%%%d", d.counter)
		d.counter++
	}
	d.names[inst] = name
	return name
}

func (d *dumper) decorationSuffix(inst *Inst) string {
	var parts []string
	for _, dec := range inst.Decorations() {
		switch dec := dec.(type) {
		case *ImportDecoration:
			parts = append(parts, fmt.Sprintf("import(%q)", dec.Name))
		case *OuterArrayDecoration:
			parts = append(parts, fmt.Sprintf("outer_array(%q)", dec.Name))
		case *LayoutDecoration:
			parts = append(parts, layoutSummary(dec.Layout))
		case *DependsOnDecoration:
			parts = append(parts, fmt.Sprintf("depends_on(%s)", d.name(dec.Target)))
		case *TargetIntrinsicDecoration:
			parts = append(parts, fmt.Sprintf("intrinsic(%s, %q)", dec.Target, dec.Definition))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, " ") + "]"
}

func layoutSummary(layout Layout) string {
	switch l := layout.(type) {
	case *VarLayout:
		var parts []string
		for _, info := range l.ResourceInfos {
			switch info.Kind {
			case ResourceVaryingInput:
				parts = append(parts, fmt.Sprintf("in:%d", info.Index))
			case ResourceVaryingOutput:
				parts = append(parts, fmt.Sprintf("out:%d", info.Index))
			default:
				parts = append(parts, fmt.Sprintf("res(%d):%d", info.Kind, info.Index))
			}
		}
		return "layout(" + strings.Join(parts, " ") + ")"
	case *EntryPointLayout:
		return fmt.Sprintf("entry_point(%s)", l.Stage)
	}
	return "layout(?)"
}

func (d *dumper) dumpGlobal(inst *Inst) {
	switch inst.Op {
	case OpFunc, OpGeneric:
		fmt.Fprintf(&d.out, "  %s %s : %s%s {\n", inst.Op, d.name(inst), TypeString(inst.Type()), d.decorationSuffix(inst))
		for block := inst.FirstBlock(); block != nil; block = block.NextBlock() {
			d.dumpBlock(block)
		}
		d.out.WriteString("  }\n")
	default:
		fmt.Fprintf(&d.out, "  %s %s : %s%s\n", inst.Op, d.name(inst), TypeString(inst.Type()), d.decorationSuffix(inst))
	}
}

func (d *dumper) dumpBlock(block *Inst) {
	d.out.WriteString("    block {\n")
	for inst := block.FirstChild(); inst != nil; inst = inst.Next() {
		d.dumpInst(inst)
	}
	d.out.WriteString("    }\n")
}

func (d *dumper) dumpInst(inst *Inst) {
	var operands []string
	for i := 0; i < inst.OperandCount(); i++ {
		operand := inst.Operand(i)
		if operand == nil {
			operands = append(operands, "nil")
			continue
		}
		switch operand.Op {
		case OpStructKey:
			operands = append(operands, operand.Name)
		case OpIntLit:
			operands = append(operands, fmt.Sprintf("%d", operand.IntVal))
		default:
			operands = append(operands, d.name(operand))
		}
	}

	switch inst.Op {
	case OpStore, OpReturnVal, OpReturnVoid:
		fmt.Fprintf(&d.out, "      %s %s\n", inst.Op, strings.Join(operands, ", "))
	case OpParam:
		fmt.Fprintf(&d.out, "      %s %s : %s%s\n", inst.Op, d.name(inst), TypeString(inst.Type()), d.decorationSuffix(inst))
	default:
		fmt.Fprintf(&d.out, "      %s = %s %s : %s\n", d.name(inst), inst.Op, strings.Join(operands, ", "), TypeString(inst.Type()))
	}
}
