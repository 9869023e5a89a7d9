package ir

import "fmt"

// ValidationError represents a structural defect found in a module.
type ValidationError struct {
	Message  string
	Function string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validate checks the module graph for structural consistency. Returns the
// defects found; an empty slice means the module is well formed.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &validator{}
	for inst := module.FirstInst(); inst != nil; inst = inst.Next() {
		switch inst.Op {
		case OpFunc:
			v.validateFunc(inst)
		case OpGlobalParam:
			if inst.Type() == nil {
				v.addError("", "global parameter has no type")
			}
			v.validateUses(inst, "")
		}
	}
	return v.errors, nil
}

type validator struct {
	errors []ValidationError
}

func (v *validator) addError(fn, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Message:  fmt.Sprintf(format, args...),
		Function: fn,
	})
}

func (v *validator) validateFunc(fn *Inst) {
	name := fn.Name
	if fn.Type() == nil || fn.Type().Op != OpFuncType {
		v.addError(name, "function type is not a func_type")
		return
	}

	for block := fn.FirstBlock(); block != nil; block = block.NextBlock() {
		v.validateBlock(block, name)
	}
}

func (v *validator) validateBlock(block *Inst, fn string) {
	// Parameters must form a prefix of the block.
	sawOrdinary := false
	for inst := block.FirstChild(); inst != nil; inst = inst.Next() {
		if inst.Op == OpParam {
			if sawOrdinary {
				v.addError(fn, "parameter appears after ordinary instruction")
			}
		} else {
			sawOrdinary = true
		}
		v.validateInst(inst, fn)
	}

	term := block.Terminator()
	if term == nil {
		v.addError(fn, "block is empty")
		return
	}
	switch term.Op {
	case OpReturnVal, OpReturnVoid:
	default:
		v.addError(fn, "block does not end in a terminator, ends in %s", term.Op)
	}
}

func (v *validator) validateInst(inst *Inst, fn string) {
	for i := 0; i < inst.OperandCount(); i++ {
		operand := inst.Operand(i)
		if operand == nil {
			v.addError(fn, "%s has nil operand %d", inst.Op, i)
			continue
		}
		// The operand must know about this use.
		found := false
		for use := operand.FirstUse(); use != nil; use = use.Next() {
			if use.User() == inst && use.OperandIndex() == i {
				found = true
				break
			}
		}
		if !found {
			v.addError(fn, "use list of %s operand %d is missing the use", inst.Op, i)
		}
	}
	v.validateUses(inst, fn)
}

func (v *validator) validateUses(inst *Inst, fn string) {
	for use := inst.FirstUse(); use != nil; use = use.Next() {
		user := use.User()
		i := use.OperandIndex()
		if i >= user.OperandCount() || user.Operand(i) != inst {
			v.addError(fn, "stale use recorded on %s", inst.Op)
		}
	}
}
