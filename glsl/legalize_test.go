// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
	"testing"

	"github.com/gogpu/shade/ir"
)

// =============================================================================
// Helpers: fixture building
// =============================================================================

func testModule() (*ir.Module, *ir.Builder) {
	module := ir.NewModule(ir.NewSession())
	return module, ir.NewBuilder(module)
}

func runLegalize(module *ir.Module, fn *ir.Inst) (*Sink, *UsageTracker) {
	sink := &Sink{}
	tracker := NewUsageTracker(Version330)
	LegalizeEntryPoint(module.Session, module, fn, sink, tracker)
	return sink, tracker
}

// leafLayout builds a VarLayout for a leaf varying.
func leafLayout(systemValue string) *ir.VarLayout {
	return &ir.VarLayout{
		TypeLayout:          &ir.LeafTypeLayout{},
		SystemValueSemantic: systemValue,
	}
}

func withResource(l *ir.VarLayout, kind ir.ResourceKind, index int) *ir.VarLayout {
	l.AddResourceInfo(kind).Index = index
	return l
}

// entryPoint attaches an entry-point layout to fn and returns fn.
func entryPoint(b *ir.Builder, fn *ir.Inst, stage ir.Stage, result *ir.VarLayout) *ir.Inst {
	b.AddLayoutDecoration(fn, &ir.EntryPointLayout{
		Name:   fn.Name,
		Stage:  stage,
		Result: result,
	})
	return fn
}

func globalParams(module *ir.Module) []*ir.Inst {
	var params []*ir.Inst
	for inst := module.FirstInst(); inst != nil; inst = inst.Next() {
		if inst.Op == ir.OpGlobalParam {
			params = append(params, inst)
		}
	}
	return params
}

func importName(inst *ir.Inst) string {
	if d, ok := ir.FindDecoration[*ir.ImportDecoration](inst); ok {
		return d.Name
	}
	return ""
}

func outerArrayName(inst *ir.Inst) string {
	if d, ok := ir.FindDecoration[*ir.OuterArrayDecoration](inst); ok {
		return d.Name
	}
	return ""
}

func countOps(block *ir.Inst, op ir.Op) int {
	n := 0
	for inst := block.FirstChild(); inst != nil; inst = inst.Next() {
		if inst.Op == op {
			n++
		}
	}
	return n
}

func assertNullaryVoid(t *testing.T, fn *ir.Inst) {
	t.Helper()
	if fn.ResultType() == nil || fn.ResultType().Op != ir.OpVoidType {
		t.Errorf("result type = %s, want void", ir.TypeString(fn.ResultType()))
	}
	if fn.Type().OperandCount() != 1 {
		t.Errorf("function still has %d parameter types", fn.Type().OperandCount()-1)
	}
	if fn.ParamCount() != 0 {
		t.Errorf("function still has %d parameters", fn.ParamCount())
	}
}

// =============================================================================
// Scenario: compute kernel with one system input
// =============================================================================

func TestLegalizeComputeSystemInput(t *testing.T) {
	module, b := testModule()

	uint3 := b.VectorType(b.UIntType(), b.IntValue(3))

	fn := b.CreateFunc(b.FuncType(b.VoidType(), uint3))
	fn.Name = "csMain"
	entryPoint(b, fn, ir.StageCompute, nil)

	block := b.CreateBlock(fn)
	tid := b.CreateParam(block, uint3)
	b.AddLayoutDecoration(tid, withResource(leafLayout("SV_DispatchThreadID"), ir.ResourceVaryingInput, 0))

	b.SetInsertInto(block)
	local := b.EmitVar(uint3)
	store := b.EmitStore(local, tid)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	g := globals[0]
	if g.Type() != uint3 {
		t.Errorf("global type = %s, want vec3<uint>", ir.TypeString(g.Type()))
	}
	if importName(g) != "gl_GlobalInvocationID" {
		t.Errorf("import name = %q, want gl_GlobalInvocationID", importName(g))
	}
	layout := ir.FindVarLayout(g)
	if layout == nil || layout.FindResourceInfo(ir.ResourceVaryingInput) == nil {
		t.Error("global is missing its varying-input layout")
	}

	// Uses of the old parameter read the global now.
	if store.Operand(1) != g {
		t.Error("store still references the parameter")
	}
	if tid.HasUses() {
		t.Error("parameter still has uses")
	}

	// The global must precede the function in module order.
	if module.FirstInst() != g {
		t.Error("global was not moved ahead of the entry point")
	}
}

// =============================================================================
// Scenario: fragment shader, sv_position input and sv_target return
// =============================================================================

func TestLegalizeFragmentPositionTarget(t *testing.T) {
	module, b := testModule()

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))

	fn := b.CreateFunc(b.FuncType(float4, float4))
	fn.Name = "psMain"
	entryPoint(b, fn, ir.StageFragment,
		withResource(leafLayout("SV_Target"), ir.ResourceVaryingOutput, 0))

	block := b.CreateBlock(fn)
	pos := b.CreateParam(block, float4)
	b.AddLayoutDecoration(pos, withResource(leafLayout("SV_Position"), ir.ResourceVaryingInput, 0))

	b.SetInsertInto(block)
	b.EmitReturnVal(pos)

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	globals := globalParams(module)
	if len(globals) != 2 {
		t.Fatalf("got %d globals, want 2", len(globals))
	}

	// The return value is rewritten first, so the output global precedes
	// the input global.
	out, in := globals[0], globals[1]

	if importName(in) != "gl_FragCoord" {
		t.Errorf("input import = %q, want gl_FragCoord", importName(in))
	}
	if in.Type() != float4 {
		t.Errorf("input type = %s, want vec4<float>", ir.TypeString(in.Type()))
	}

	// sv_target stays a location-based output: out-wrapped, no import.
	if importName(out) != "" {
		t.Errorf("output has import %q, want none", importName(out))
	}
	if out.Type().Op != ir.OpOutType || out.Type().ValueType() != float4 {
		t.Errorf("output type = %s, want out<vec4<float>>", ir.TypeString(out.Type()))
	}
	outLayout := ir.FindVarLayout(out)
	if outLayout == nil || outLayout.FindResourceInfo(ir.ResourceVaryingOutput) == nil {
		t.Error("output is missing its varying-output layout")
	}

	// The return was rewritten into an assignment plus a void return.
	term := fn.FirstBlock().Terminator()
	if term.Op != ir.OpReturnVoid {
		t.Fatalf("terminator = %s, want return_void", term.Op)
	}
	if countOps(fn.FirstBlock(), ir.OpReturnVal) != 0 {
		t.Error("a return_val survived the rewrite")
	}

	var store *ir.Inst
	for inst := fn.FirstBlock().FirstChild(); inst != nil; inst = inst.Next() {
		if inst.Op == ir.OpStore {
			store = inst
		}
	}
	if store == nil {
		t.Fatal("no store to the output global")
	}
	if store.Operand(0) != out {
		t.Error("store does not target the output global")
	}
	if store.Operand(1) != in {
		t.Error("store does not source the materialized input")
	}
}

// =============================================================================
// Scenario: in/out struct parameter in the geometry stage
// =============================================================================

// payloadFixture builds struct Payload { float4 pos : SV_Position; float2 uv; }
// plus its struct layout, with uv one slot after the struct base.
func payloadFixture(b *ir.Builder) (*ir.Inst, *ir.StructTypeLayout) {
	float4 := b.VectorType(b.FloatType(), b.IntValue(4))
	float2 := b.VectorType(b.FloatType(), b.IntValue(2))

	posKey := b.StructKey("pos")
	uvKey := b.StructKey("uv")
	payload := b.StructType("Payload",
		b.StructField(posKey, float4),
		b.StructField(uvKey, float2),
	)

	uvLayout := leafLayout("")
	withResource(uvLayout, ir.ResourceVaryingInput, 1)
	withResource(uvLayout, ir.ResourceVaryingOutput, 1)

	structLayout := &ir.StructTypeLayout{
		Fields: []*ir.VarLayout{
			leafLayout("SV_Position"),
			uvLayout,
		},
	}
	return payload, structLayout
}

func TestLegalizeInOutStructGeometryParam(t *testing.T) {
	module, b := testModule()

	payload, structLayout := payloadFixture(b)

	fn := b.CreateFunc(b.FuncType(b.VoidType(), b.InOutType(payload)))
	fn.Name = "gsMain"
	entryPoint(b, fn, ir.StageGeometry, nil)

	block := b.CreateBlock(fn)
	p := b.CreateParam(block, b.InOutType(payload))

	paramLayout := &ir.VarLayout{TypeLayout: structLayout}
	paramLayout.AddResourceInfo(ir.ResourceVaryingInput).Index = 3
	paramLayout.AddResourceInfo(ir.ResourceVaryingOutput).Index = 5
	b.AddLayoutDecoration(p, paramLayout)

	b.SetInsertInto(block)
	load := b.EmitLoad(p)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	globals := globalParams(module)
	if len(globals) != 4 {
		t.Fatalf("got %d globals, want 4 (2 in + 2 out)", len(globals))
	}
	inPos, inUv, outPos, outUv := globals[0], globals[1], globals[2], globals[3]

	if importName(inPos) != "gl_Position" || outerArrayName(inPos) != "gl_in" {
		t.Errorf("geometry input position: import %q outer %q, want gl_Position / gl_in",
			importName(inPos), outerArrayName(inPos))
	}
	if importName(outPos) != "gl_Position" || outerArrayName(outPos) != "" {
		t.Errorf("geometry output position: import %q outer %q, want gl_Position / none",
			importName(outPos), outerArrayName(outPos))
	}

	// Field binding = base index + field resource index, per kind.
	if info := ir.FindVarLayout(inUv).FindResourceInfo(ir.ResourceVaryingInput); info == nil || info.Index != 4 {
		t.Errorf("input uv binding = %+v, want index 4", info)
	}
	if info := ir.FindVarLayout(outUv).FindResourceInfo(ir.ResourceVaryingOutput); info == nil || info.Index != 6 {
		t.Errorf("output uv binding = %+v, want index 6", info)
	}
	if outUv.Type().Op != ir.OpOutType {
		t.Errorf("output uv type = %s, want out-wrapped", ir.TypeString(outUv.Type()))
	}

	// The parameter is replaced by a local variable of the payload type.
	local := fn.FirstBlock().FirstOrdinaryInst()
	if local.Op != ir.OpVar || local.Type().ValueType() != payload {
		t.Fatalf("first ordinary inst is %s : %s, want var : ptr<Payload>", local.Op, ir.TypeString(local.Type()))
	}
	if load.Operand(0) != local {
		t.Error("body load still references the parameter")
	}
	if p.HasUses() {
		t.Error("parameter still has uses")
	}

	// Two stores copying inputs in at entry, two copying outputs at the
	// return site.
	if n := countOps(fn.FirstBlock(), ir.OpStore); n != 4 {
		t.Errorf("got %d stores, want 4", n)
	}
	// Output copies sit immediately before the terminator.
	term := fn.FirstBlock().Terminator()
	if term.Prev().Op != ir.OpStore {
		t.Error("no store immediately before the return")
	}
}

// =============================================================================
// Scenario: geometry output stream with append calls
// =============================================================================

func TestLegalizeGeometryStreamOutput(t *testing.T) {
	module, b := testModule()

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))

	posKey := b.StructKey("pos")
	colorKey := b.StructKey("color")
	vertex := b.StructType("Vertex",
		b.StructField(posKey, float4),
		b.StructField(colorKey, float4),
	)
	structLayout := &ir.StructTypeLayout{
		Fields: []*ir.VarLayout{
			leafLayout("SV_Position"),
			withResource(leafLayout(""), ir.ResourceVaryingOutput, 1),
		},
	}

	stream := b.StreamOutputType(vertex)

	// The append operation, identified by its target intrinsic.
	appendFn := b.CreateFunc(b.FuncType(b.VoidType(), stream, vertex))
	appendFn.Name = "append"
	b.AddTargetIntrinsicDecoration(appendFn, "glsl", "EmitVertex()")

	// A generic wrapping the append function, to exercise callee
	// resolution through specialize.
	generic := b.CreateGeneric()
	gBlock := b.CreateBlock(generic)
	b.SetInsertInto(gBlock)
	b.EmitReturnVal(appendFn)

	fn := b.CreateFunc(b.FuncType(b.VoidType(), b.OutType(stream)))
	fn.Name = "gsMain"
	entryPoint(b, fn, ir.StageGeometry, nil)

	block := b.CreateBlock(fn)
	s := b.CreateParam(block, b.OutType(stream))

	paramLayout := &ir.VarLayout{
		TypeLayout: &ir.StreamOutputTypeLayout{ElementTypeLayout: structLayout},
	}
	paramLayout.AddResourceInfo(ir.ResourceVaryingOutput).Index = 0
	b.AddLayoutDecoration(s, paramLayout)

	b.SetInsertInto(block)
	v := b.EmitConstruct(vertex, b.EmitUndefined(float4), b.EmitUndefined(float4))
	call1 := b.EmitCall(b.VoidType(), appendFn, s, v)
	specialized := b.EmitSpecialize(appendFn.Type(), generic)
	call2 := b.EmitCall(b.VoidType(), specialized, s, v)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	globals := globalParams(module)
	if len(globals) != 2 {
		t.Fatalf("got %d globals, want 2", len(globals))
	}
	outPos, outColor := globals[0], globals[1]
	if importName(outPos) != "gl_Position" {
		t.Errorf("stream position import = %q, want gl_Position", importName(outPos))
	}
	if outColor.Type().Op != ir.OpOutType || outColor.Type().ValueType() != float4 {
		t.Errorf("stream color type = %s, want out<vec4<float>>", ir.TypeString(outColor.Type()))
	}

	// Each append call site is preceded by per-field extract+store pairs.
	for _, call := range []*ir.Inst{call1, call2} {
		if call.Prev().Op != ir.OpStore || call.Prev().Prev().Prev().Op != ir.OpStore {
			t.Error("append call site is missing its scalarized stores")
		}
	}
	if n := countOps(block, ir.OpStore); n != 4 {
		t.Errorf("got %d stores, want 4", n)
	}
	if n := countOps(block, ir.OpFieldExtract); n != 4 {
		t.Errorf("got %d field extracts, want 4", n)
	}

	// No local variable stands in for the stream; the dead parameter
	// reference becomes an undefined value at the top of the function.
	if countOps(block, ir.OpVar) != 0 {
		t.Error("a local variable was created for the stream")
	}
	undef := block.FirstOrdinaryInst()
	if undef.Op != ir.OpUndefined {
		t.Fatalf("first ordinary inst is %s, want undefined", undef.Op)
	}
	if call1.Operand(1) != undef || call2.Operand(1) != undef {
		t.Error("append calls do not reference the undefined stream value")
	}
	if s.HasUses() {
		t.Error("stream parameter still has uses")
	}
}

// =============================================================================
// Scenario: ray-tracing payload parameter
// =============================================================================

func TestLegalizeRayTracingPayload(t *testing.T) {
	module, b := testModule()

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))
	payload := b.StructType("Payload", b.StructField(b.StructKey("color"), float4))
	paramType := b.InOutType(payload)

	fn := b.CreateFunc(b.FuncType(b.VoidType(), paramType))
	fn.Name = "missMain"
	entryPoint(b, fn, ir.StageMiss, nil)

	block := b.CreateBlock(fn)
	p := b.CreateParam(block, paramType)
	paramLayout := &ir.VarLayout{TypeLayout: &ir.LeafTypeLayout{}}
	b.AddLayoutDecoration(p, paramLayout)

	b.SetInsertInto(block)
	load := b.EmitLoad(p)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	g := globals[0]

	// The payload keeps its exact type, wrapper included, and its layout.
	if g.Type() != paramType {
		t.Errorf("payload global type = %s, want inout<Payload>", ir.TypeString(g.Type()))
	}
	if ir.FindVarLayout(g) != paramLayout {
		t.Error("payload global does not carry the parameter's layout")
	}

	// The entry point records its dependency on the payload so DCE keeps
	// it; payload linkage between stages is by type, not by use.
	dep, ok := ir.FindDecoration[*ir.DependsOnDecoration](fn)
	if !ok || dep.Target != g {
		t.Error("entry point is missing the depends-on decoration")
	}

	if load.Operand(0) != g {
		t.Error("body load still references the parameter")
	}
}

// =============================================================================
// Scenario: unknown system-value semantic
// =============================================================================

func TestLegalizeUnknownSemantic(t *testing.T) {
	module, b := testModule()

	float := b.FloatType()

	fn := b.CreateFunc(b.FuncType(b.VoidType(), float, float))
	fn.Name = "psMain"
	entryPoint(b, fn, ir.StageFragment, nil)

	block := b.CreateBlock(fn)
	x := b.CreateParam(block, float)
	xLayout := withResource(leafLayout("SV_NoSuchThing"), ir.ResourceVaryingInput, 0)
	xLayout.Decl = &ir.Decl{Name: "x", Loc: ir.SourceLoc{File: "a.hlsl", Line: 3, Column: 20}}
	b.AddLayoutDecoration(x, xLayout)

	y := b.CreateParam(block, float)
	b.AddLayoutDecoration(y, withResource(leafLayout(""), ir.ResourceVaryingInput, 1))

	b.SetInsertInto(block)
	lx := b.EmitVar(float)
	storeX := b.EmitStore(lx, x)
	ly := b.EmitVar(float)
	storeY := b.EmitStore(ly, y)
	b.EmitReturn()

	sink, _ := runLegalize(module, fn)

	assertNullaryVoid(t, fn)

	if sink.Count() != 1 {
		t.Fatalf("got %d diagnostics, want 1", sink.Count())
	}
	d := sink.Diagnostics()[0]
	if d.Code != DiagUnknownSystemValueSemantic {
		t.Errorf("diagnostic code = %v, want unknownSystemValueSemantic", d.Code)
	}
	if !strings.Contains(d.Message, "SV_NoSuchThing") {
		t.Errorf("diagnostic does not carry the original spelling: %q", d.Message)
	}
	if d.Loc.File != "a.hlsl" || d.Loc.Line != 3 {
		t.Errorf("diagnostic location = %+v, want a.hlsl:3", d.Loc)
	}

	// No global for the unknown leaf; the other parameter still works.
	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	if storeY.Operand(1) != globals[0] {
		t.Error("the ordinary parameter was not connected to its global")
	}
	if storeX.Operand(1).Op != ir.OpUndefined {
		t.Errorf("unknown varying reads %s, want undefined", storeX.Operand(1).Op)
	}
}

// =============================================================================
// Boundary behaviors
// =============================================================================

func TestLegalizeEmptyStructParam(t *testing.T) {
	module, b := testModule()

	empty := b.StructType("Empty")

	fn := b.CreateFunc(b.FuncType(b.VoidType(), empty))
	fn.Name = "vsMain"
	entryPoint(b, fn, ir.StageVertex, nil)

	block := b.CreateBlock(fn)
	p := b.CreateParam(block, empty)
	b.AddLayoutDecoration(p, &ir.VarLayout{TypeLayout: &ir.StructTypeLayout{}})

	b.SetInsertInto(block)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)
	if n := len(globalParams(module)); n != 0 {
		t.Errorf("got %d globals, want 0", n)
	}
}

func TestLegalizeScalarSystemValueReturn(t *testing.T) {
	module, b := testModule()

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))

	fn := b.CreateFunc(b.FuncType(float4))
	fn.Name = "vsMain"
	entryPoint(b, fn, ir.StageVertex,
		withResource(leafLayout("SV_Position"), ir.ResourceVaryingOutput, 0))

	block := b.CreateBlock(fn)
	b.SetInsertInto(block)
	b.EmitReturnVal(b.EmitUndefined(float4))

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)
	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	if importName(globals[0]) != "gl_Position" {
		t.Errorf("import = %q, want gl_Position", importName(globals[0]))
	}
}

func TestLegalizeOutputTypeConversion(t *testing.T) {
	module, b := testModule()

	// sv_coverage is uint in the source model but int in GLSL, so the
	// return value is converted before the store.
	uint := b.UIntType()

	fn := b.CreateFunc(b.FuncType(uint))
	fn.Name = "psMain"
	entryPoint(b, fn, ir.StageFragment,
		withResource(leafLayout("SV_Coverage"), ir.ResourceVaryingOutput, 0))

	block := b.CreateBlock(fn)
	b.SetInsertInto(block)
	mask := b.EmitUndefined(uint)
	b.EmitReturnVal(mask)

	runLegalize(module, fn)

	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	g := globals[0]
	if g.Type().Op != ir.OpOutType || g.Type().ValueType().Op != ir.OpIntType {
		t.Errorf("global type = %s, want out<int>", ir.TypeString(g.Type()))
	}
	if importName(g) != "gl_SampleMask" {
		t.Errorf("import = %q, want gl_SampleMask", importName(g))
	}

	// store(g, construct int(mask))
	var store *ir.Inst
	for inst := block.FirstChild(); inst != nil; inst = inst.Next() {
		if inst.Op == ir.OpStore {
			store = inst
		}
	}
	if store == nil {
		t.Fatal("no store emitted")
	}
	conv := store.Operand(1)
	if conv.Op != ir.OpConstruct || conv.Type().Op != ir.OpIntType || conv.Operand(0) != mask {
		t.Errorf("stored value is %s : %s, want construct int(mask)", conv.Op, ir.TypeString(conv.Type()))
	}
}

func TestLegalizeInputTypeConversion(t *testing.T) {
	module, b := testModule()

	// sv_vertexid is uint in the source model but int in GLSL, so reads
	// of the parameter go through a conversion back to uint.
	uint := b.UIntType()

	fn := b.CreateFunc(b.FuncType(b.VoidType(), uint))
	fn.Name = "vsMain"
	entryPoint(b, fn, ir.StageVertex, nil)

	block := b.CreateBlock(fn)
	vid := b.CreateParam(block, uint)
	b.AddLayoutDecoration(vid, withResource(leafLayout("SV_VertexID"), ir.ResourceVaryingInput, 0))

	b.SetInsertInto(block)
	local := b.EmitVar(uint)
	store := b.EmitStore(local, vid)
	b.EmitReturn()

	runLegalize(module, fn)

	globals := globalParams(module)
	if len(globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(globals))
	}
	g := globals[0]
	if g.Type().Op != ir.OpIntType {
		t.Errorf("global type = %s, want int", ir.TypeString(g.Type()))
	}
	if importName(g) != "gl_VertexIndex" {
		t.Errorf("import = %q, want gl_VertexIndex", importName(g))
	}

	conv := store.Operand(1)
	if conv.Op != ir.OpConstruct || conv.Type() != uint || conv.Operand(0) != g {
		t.Errorf("parameter reads %s : %s, want construct uint(global)", conv.Op, ir.TypeString(conv.Type()))
	}
}

func TestLegalizeArrayOfStructSOA(t *testing.T) {
	module, b := testModule()

	float := b.FloatType()
	float2 := b.VectorType(float, b.IntValue(2))

	aKey := b.StructKey("a")
	bKey := b.StructKey("b")
	elem := b.StructType("Elem",
		b.StructField(aKey, float),
		b.StructField(bKey, float2),
	)
	arr := b.ArrayType(elem, b.IntValue(3))

	aLayout := withResource(leafLayout(""), ir.ResourceVaryingInput, 0)
	aLayout.TypeLayout.AddResourceUsage(ir.ResourceVaryingInput, 1)
	bLayout := withResource(leafLayout(""), ir.ResourceVaryingInput, 1)
	bLayout.TypeLayout.AddResourceUsage(ir.ResourceVaryingInput, 1)

	structLayout := &ir.StructTypeLayout{Fields: []*ir.VarLayout{aLayout, bLayout}}
	arrayLayout := &ir.ArrayTypeLayout{ElementTypeLayout: structLayout}

	fn := b.CreateFunc(b.FuncType(b.VoidType(), arr))
	fn.Name = "vsMain"
	entryPoint(b, fn, ir.StageVertex, nil)

	block := b.CreateBlock(fn)
	p := b.CreateParam(block, arr)
	paramLayout := &ir.VarLayout{TypeLayout: arrayLayout}
	paramLayout.AddResourceInfo(ir.ResourceVaryingInput).Index = 0
	b.AddLayoutDecoration(p, paramLayout)

	b.SetInsertInto(block)
	local := b.EmitVar(arr)
	store := b.EmitStore(local, p)
	b.EmitReturn()

	runLegalize(module, fn)

	// One global per leaf scalar, each an array of the outer length.
	globals := globalParams(module)
	if len(globals) != 2 {
		t.Fatalf("got %d globals, want 2", len(globals))
	}
	if got := ir.TypeString(globals[0].Type()); got != "float[3]" {
		t.Errorf("leaf a type = %s, want float[3]", got)
	}
	if got := ir.TypeString(globals[1].Type()); got != "vec2<float>[3]" {
		t.Errorf("leaf b type = %s, want vec2<float>[3]", got)
	}

	// The derived array layout multiplies the element usage by the
	// element count.
	layout := ir.FindVarLayout(globals[0])
	arrLayout, ok := layout.TypeLayout.(*ir.ArrayTypeLayout)
	if !ok {
		t.Fatalf("leaf layout is %T, want array", layout.TypeLayout)
	}
	if usage := arrLayout.FindResourceUsage(ir.ResourceVaryingInput); usage == nil || usage.Count != 3 {
		t.Errorf("array usage = %+v, want count 3", usage)
	}

	// The parameter reads back as a make_array of per-element constructs.
	materialized := store.Operand(1)
	if materialized.Op != ir.OpMakeArray || materialized.Type() != arr {
		t.Fatalf("materialized value is %s : %s, want make_array : Elem[3]",
			materialized.Op, ir.TypeString(materialized.Type()))
	}
	if materialized.OperandCount() != 3 {
		t.Errorf("make_array has %d elements, want 3", materialized.OperandCount())
	}
	for i := 0; i < materialized.OperandCount(); i++ {
		if materialized.Operand(i).Op != ir.OpConstruct {
			t.Errorf("array element %d is %s, want construct", i, materialized.Operand(i).Op)
		}
	}
	if n := countOps(block, ir.OpElementExtract); n != 6 {
		t.Errorf("got %d element extracts, want 6", n)
	}
}

// =============================================================================
// Idempotence
// =============================================================================

func TestLegalizeAlreadyLegalIsNoOp(t *testing.T) {
	module, b := testModule()

	fn := b.CreateFunc(b.FuncType(b.VoidType()))
	fn.Name = "main"
	entryPoint(b, fn, ir.StageCompute, nil)

	block := b.CreateBlock(fn)
	b.SetInsertInto(block)
	b.EmitReturn()

	before := ir.Dump(module)
	runLegalize(module, fn)
	if after := ir.Dump(module); after != before {
		t.Errorf("already-legal function changed:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestLegalizeIsIdempotentOnOwnOutput(t *testing.T) {
	module, b := testModule()

	uint3 := b.VectorType(b.UIntType(), b.IntValue(3))

	fn := b.CreateFunc(b.FuncType(b.VoidType(), uint3))
	fn.Name = "csMain"
	entryPoint(b, fn, ir.StageCompute, nil)

	block := b.CreateBlock(fn)
	tid := b.CreateParam(block, uint3)
	b.AddLayoutDecoration(tid, withResource(leafLayout("SV_DispatchThreadID"), ir.ResourceVaryingInput, 0))

	b.SetInsertInto(block)
	local := b.EmitVar(uint3)
	b.EmitStore(local, tid)
	b.EmitReturn()

	runLegalize(module, fn)
	once := ir.Dump(module)

	runLegalize(module, fn)
	if twice := ir.Dump(module); twice != once {
		t.Errorf("pass is not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestLegalizeVoidReturnWithParams(t *testing.T) {
	module, b := testModule()

	float := b.FloatType()

	fn := b.CreateFunc(b.FuncType(b.VoidType(), float))
	fn.Name = "vsMain"
	entryPoint(b, fn, ir.StageVertex, nil)

	block := b.CreateBlock(fn)
	p := b.CreateParam(block, float)
	b.AddLayoutDecoration(p, withResource(leafLayout(""), ir.ResourceVaryingInput, 0))

	b.SetInsertInto(block)
	b.EmitReturn()

	runLegalize(module, fn)

	assertNullaryVoid(t, fn)
	if len(globalParams(module)) != 1 {
		t.Error("the parameter of a void-returning entry point was not legalized")
	}
}
