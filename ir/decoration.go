package ir

// Decoration is metadata attached to an instruction. Decorations are not
// operands; they carry layout, linkage, and target-specific annotations
// that backends read off the graph.
type Decoration interface {
	decoration()
}

// LayoutDecoration attaches layout metadata to a value: a VarLayout on
// parameters and globals, an EntryPointLayout on entry-point functions.
type LayoutDecoration struct {
	Layout Layout
}

func (*LayoutDecoration) decoration() {}

// ImportDecoration marks a value as imported under a target-defined name,
// such as a GLSL built-in variable.
type ImportDecoration struct {
	Name string
}

func (*ImportDecoration) decoration() {}

// OuterArrayDecoration records the name of a target-defined outer array
// that wraps the value, such as gl_in for geometry stage inputs.
type OuterArrayDecoration struct {
	Name string
}

func (*OuterArrayDecoration) decoration() {}

// DependsOnDecoration records that the decorated value requires target to
// stay alive even if unreferenced, so dead-code elimination keeps it.
type DependsOnDecoration struct {
	Target *Inst
}

func (*DependsOnDecoration) decoration() {}

// TargetIntrinsicDecoration marks a function as expanding to a literal
// definition on the given target.
type TargetIntrinsicDecoration struct {
	Target     string
	Definition string
}

func (*TargetIntrinsicDecoration) decoration() {}

// AddDecoration attaches a decoration to the instruction.
func (inst *Inst) AddDecoration(d Decoration) {
	inst.decorations = append(inst.decorations, d)
}

// Decorations returns the decorations attached to the instruction.
func (inst *Inst) Decorations() []Decoration { return inst.decorations }

// FindDecoration returns the first decoration of type T attached to inst.
func FindDecoration[T Decoration](inst *Inst) (T, bool) {
	for _, d := range inst.decorations {
		if match, ok := d.(T); ok {
			return match, true
		}
	}
	var zero T
	return zero, false
}

// FindVarLayout returns the VarLayout attached to inst through a layout
// decoration, or nil.
func FindVarLayout(inst *Inst) *VarLayout {
	if d, ok := FindDecoration[*LayoutDecoration](inst); ok {
		if l, ok := d.Layout.(*VarLayout); ok {
			return l
		}
	}
	return nil
}

// FindEntryPointLayout returns the EntryPointLayout attached to inst
// through a layout decoration, or nil.
func FindEntryPointLayout(inst *Inst) *EntryPointLayout {
	if d, ok := FindDecoration[*LayoutDecoration](inst); ok {
		if l, ok := d.Layout.(*EntryPointLayout); ok {
			return l
		}
	}
	return nil
}

// FindTargetIntrinsicDecoration returns the target-intrinsic decoration
// for the given target key, or nil.
func FindTargetIntrinsicDecoration(inst *Inst, target string) *TargetIntrinsicDecoration {
	for _, d := range inst.decorations {
		if ti, ok := d.(*TargetIntrinsicDecoration); ok && ti.Target == target {
			return ti
		}
	}
	return nil
}

// Decoration adder conveniences, mirroring the emit-style builder API.

// AddLayoutDecoration attaches a layout to inst.
func (b *Builder) AddLayoutDecoration(inst *Inst, layout Layout) {
	inst.AddDecoration(&LayoutDecoration{Layout: layout})
}

// AddImportDecoration attaches an imported (built-in) name to inst.
func (b *Builder) AddImportDecoration(inst *Inst, name string) {
	inst.AddDecoration(&ImportDecoration{Name: name})
}

// AddOuterArrayDecoration attaches an outer-array name to inst.
func (b *Builder) AddOuterArrayDecoration(inst *Inst, name string) {
	inst.AddDecoration(&OuterArrayDecoration{Name: name})
}

// AddDependsOnDecoration records that inst depends on target.
func (b *Builder) AddDependsOnDecoration(inst, target *Inst) {
	inst.AddDecoration(&DependsOnDecoration{Target: target})
}

// AddTargetIntrinsicDecoration marks inst as a target intrinsic with the
// given definition on target.
func (b *Builder) AddTargetIntrinsicDecoration(inst *Inst, target, definition string) {
	inst.AddDecoration(&TargetIntrinsicDecoration{Target: target, Definition: definition})
}
