package ir

import (
	"strings"
	"testing"
)

func testSetup() (*Module, *Builder) {
	module := NewModule(NewSession())
	return module, NewBuilder(module)
}

func TestTypeInterning(t *testing.T) {
	_, b := testSetup()

	if b.FloatType() != b.FloatType() {
		t.Error("basic types are not interned")
	}

	vec4a := b.VectorType(b.FloatType(), b.IntValue(4))
	vec4b := b.VectorType(b.FloatType(), b.IntValue(4))
	if vec4a != vec4b {
		t.Error("vector types are not interned")
	}

	vec3 := b.VectorType(b.FloatType(), b.IntValue(3))
	if vec4a == vec3 {
		t.Error("distinct vector types interned together")
	}

	arrA := b.ArrayType(vec4a, b.IntValue(2))
	arrB := b.ArrayType(vec4a, b.IntValue(2))
	if arrA != arrB {
		t.Error("array types are not interned")
	}

	if b.OutType(vec4a) != b.OutType(vec4a) {
		t.Error("out types are not interned")
	}
	if b.OutType(vec4a) == b.InOutType(vec4a) {
		t.Error("out and inout types interned together")
	}
}

func TestUseLists(t *testing.T) {
	module, b := testSetup()

	float := b.FloatType()
	fn := b.CreateFunc(b.FuncType(b.VoidType(), float))
	block := b.CreateBlock(fn)
	param := b.CreateParam(block, float)

	b.SetInsertInto(block)
	local := b.EmitVar(float)
	store := b.EmitStore(local, param)
	undef := b.EmitUndefined(float)
	b.EmitReturn()

	if param.UseCount() != 1 {
		t.Fatalf("param use count = %d, want 1", param.UseCount())
	}

	param.ReplaceUsesWith(undef)

	if param.HasUses() {
		t.Error("param still has uses after ReplaceUsesWith")
	}
	if store.Operand(1) != undef {
		t.Error("store operand was not rewritten")
	}
	if undef.UseCount() != 1 {
		t.Errorf("undef use count = %d, want 1", undef.UseCount())
	}

	// Destroy releases operand references.
	store.Destroy()
	if undef.HasUses() {
		t.Error("undef still used after store destroyed")
	}
	if local.HasUses() {
		t.Error("local still used after store destroyed")
	}

	if errs, _ := Validate(module); len(errs) != 0 {
		t.Errorf("validation errors after rewrites: %v", errs)
	}
}

func TestInsertionOrder(t *testing.T) {
	_, b := testSetup()

	fn := b.CreateFunc(b.FuncType(b.VoidType()))
	block := b.CreateBlock(fn)
	b.SetInsertInto(block)
	ret := b.EmitReturn()

	// Emitting before the terminator keeps the terminator last.
	b.SetInsertBefore(ret)
	v1 := b.EmitVar(b.FloatType())
	v2 := b.EmitVar(b.FloatType())

	if block.FirstChild() != v1 || v1.Next() != v2 || v2.Next() != ret {
		t.Error("insert-before did not preserve order")
	}
	if block.Terminator() != ret {
		t.Error("terminator is no longer last")
	}

	if block.FirstOrdinaryInst() != v1 {
		t.Error("first ordinary inst should be the first var")
	}

	// Params always precede ordinary instructions.
	p := b.CreateParam(block, b.FloatType())
	if block.FirstChild() != p {
		t.Error("param was not placed ahead of ordinary instructions")
	}
	if block.FirstOrdinaryInst() != v1 {
		t.Error("param shifted the first ordinary inst")
	}
	if block.FirstParam() != p || p.NextParam() != nil {
		t.Error("param list is wrong")
	}
}

func TestFuncShape(t *testing.T) {
	_, b := testSetup()

	float := b.FloatType()
	fn := b.CreateFunc(b.FuncType(float, float, float))
	block := b.CreateBlock(fn)
	b.CreateParam(block, float)
	b.CreateParam(block, float)
	b.SetInsertInto(block)
	b.EmitReturnVal(b.EmitUndefined(float))

	if fn.ParamCount() != 2 {
		t.Errorf("ParamCount = %d, want 2", fn.ParamCount())
	}
	if fn.ResultType() != float {
		t.Error("ResultType is wrong")
	}
	if fn.FirstBlock() != block || block.NextBlock() != nil {
		t.Error("block list is wrong")
	}
}

func TestMoveBetweenModuleScopeValues(t *testing.T) {
	module, b := testSetup()

	fn := b.CreateFunc(b.FuncType(b.VoidType()))
	g := b.CreateGlobalParam(b.FloatType())

	// Fresh globals are appended after the function; passes move them in
	// front so they are visible at emission time.
	if module.FirstInst() != fn {
		t.Fatal("expected function first")
	}
	g.RemoveFromParent()
	g.InsertBefore(fn)

	if module.FirstInst() != g || g.Next() != fn {
		t.Error("global was not moved ahead of the function")
	}
}

func TestLoadThroughOutPointer(t *testing.T) {
	_, b := testSetup()

	float := b.FloatType()
	fn := b.CreateFunc(b.FuncType(b.VoidType()))
	block := b.CreateBlock(fn)
	b.SetInsertInto(block)

	g := b.CreateGlobalParam(b.OutType(float))
	load := b.EmitLoad(g)
	if load.Type() != float {
		t.Errorf("load type = %s, want float", TypeString(load.Type()))
	}
	b.EmitReturn()
}

func TestFindGenericReturnVal(t *testing.T) {
	_, b := testSetup()

	inner := b.CreateFunc(b.FuncType(b.VoidType()))
	generic := b.CreateGeneric()
	gBlock := b.CreateBlock(generic)
	b.SetInsertInto(gBlock)
	b.EmitReturnVal(inner)

	if FindGenericReturnVal(generic) != inner {
		t.Error("generic return value not found")
	}
}

func TestDecorations(t *testing.T) {
	_, b := testSetup()

	g := b.CreateGlobalParam(b.FloatType())
	layout := &VarLayout{SemanticName: "COLOR"}
	b.AddImportDecoration(g, "gl_FragDepth")
	b.AddLayoutDecoration(g, layout)

	imp, ok := FindDecoration[*ImportDecoration](g)
	if !ok || imp.Name != "gl_FragDepth" {
		t.Error("import decoration not found")
	}
	if FindVarLayout(g) != layout {
		t.Error("var layout not found")
	}
	if FindEntryPointLayout(g) != nil {
		t.Error("found an entry-point layout where none was attached")
	}
}

func TestDumpSmoke(t *testing.T) {
	module, b := testSetup()

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))
	g := b.CreateGlobalParam(b.OutType(float4))
	b.AddImportDecoration(g, "gl_Position")

	fn := b.CreateFunc(b.FuncType(b.VoidType()))
	fn.Name = "main"
	block := b.CreateBlock(fn)
	b.SetInsertInto(block)
	b.EmitReturn()

	dump := Dump(module)
	for _, want := range []string{
		"global_param",
		"out<vec4<float>>",
		`import("gl_Position")`,
		"func %main : () -> void",
		"return_void",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
