package ir

// Stage identifies a shader pipeline stage.
type Stage uint8

const (
	StageNone Stage = iota
	StageVertex
	StageHull
	StageDomain
	StageGeometry
	StageFragment
	StageCompute
	StageRayGeneration
	StageIntersection
	StageAnyHit
	StageClosestHit
	StageMiss
	StageCallable
)

var stageNames = [...]string{
	StageNone:          "none",
	StageVertex:        "vertex",
	StageHull:          "hull",
	StageDomain:        "domain",
	StageGeometry:      "geometry",
	StageFragment:      "fragment",
	StageCompute:       "compute",
	StageRayGeneration: "raygeneration",
	StageIntersection:  "intersection",
	StageAnyHit:        "anyhit",
	StageClosestHit:    "closesthit",
	StageMiss:          "miss",
	StageCallable:      "callable",
}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "stage(?)"
}

// IsRayTracing reports whether the stage is one of the ray-tracing stages.
// Ray-tracing entry points keep struct-typed payload parameters instead of
// scalarized varyings.
func (s Stage) IsRayTracing() bool {
	switch s {
	case StageRayGeneration, StageIntersection, StageAnyHit, StageClosestHit, StageMiss, StageCallable:
		return true
	}
	return false
}

// ResourceKind classifies the kind of target resource a value consumes.
type ResourceKind uint8

const (
	ResourceNone ResourceKind = iota
	ResourceVaryingInput
	ResourceVaryingOutput
	ResourceUniform
	ResourceConstantBuffer
	ResourceShaderResource
	ResourceUnorderedAccess
	ResourceSamplerState
	ResourcePushConstant
)

// ResourceInfo records one resource range consumed by a variable.
type ResourceInfo struct {
	Kind  ResourceKind
	Index int
	Count int
}

// ResourceUsage records how much of a resource kind a type consumes.
type ResourceUsage struct {
	Kind  ResourceKind
	Count int
}

// SourceLoc is a location in source code, for diagnostics.
type SourceLoc struct {
	File   string
	Line   int
	Column int
}

// Decl identifies the source declaration a layout was computed for.
type Decl struct {
	Name string
	Loc  SourceLoc
}

// LayoutRules selects the layout rule set a type layout was computed with.
type LayoutRules uint8

const (
	RulesDefault LayoutRules = iota
	RulesStd140
	RulesStd430
)

// VarLayoutFlags carries boolean properties of a variable's layout.
type VarLayoutFlags uint8

// TypeLayout describes how a type consumes target resources. The concrete
// variants mirror the shapes the varying legalizer descends through.
type TypeLayout interface {
	typeLayout()

	// Rules returns the layout rule set of the layout.
	Rules() LayoutRules

	// FindResourceUsage returns the usage record for kind, or nil.
	FindResourceUsage(kind ResourceKind) *ResourceUsage

	// AddResourceUsage appends a usage record for kind.
	AddResourceUsage(kind ResourceKind, count int)
}

// TypeLayoutBase carries the state shared by all type layout variants.
type TypeLayoutBase struct {
	LayoutRules LayoutRules
	Usages      []ResourceUsage
}

// Rules returns the layout rule set of the layout.
func (l *TypeLayoutBase) Rules() LayoutRules { return l.LayoutRules }

// FindResourceUsage returns the usage record for kind, or nil.
func (l *TypeLayoutBase) FindResourceUsage(kind ResourceKind) *ResourceUsage {
	for i := range l.Usages {
		if l.Usages[i].Kind == kind {
			return &l.Usages[i]
		}
	}
	return nil
}

// AddResourceUsage appends a usage record for kind.
func (l *TypeLayoutBase) AddResourceUsage(kind ResourceKind, count int) {
	l.Usages = append(l.Usages, ResourceUsage{Kind: kind, Count: count})
}

// LeafTypeLayout is the layout of a basic, vector, or matrix type.
type LeafTypeLayout struct {
	TypeLayoutBase
}

func (*LeafTypeLayout) typeLayout() {}

// ArrayTypeLayout is the layout of an array type.
type ArrayTypeLayout struct {
	TypeLayoutBase

	ElementTypeLayout TypeLayout
	UniformStride     int
}

func (*ArrayTypeLayout) typeLayout() {}

// StructTypeLayout is the layout of a struct type; fields are indexed by
// declaration position.
type StructTypeLayout struct {
	TypeLayoutBase

	Fields []*VarLayout
}

func (*StructTypeLayout) typeLayout() {}

// StreamOutputTypeLayout is the layout of a geometry stream output type.
type StreamOutputTypeLayout struct {
	TypeLayoutBase

	ElementTypeLayout TypeLayout
}

func (*StreamOutputTypeLayout) typeLayout() {}

// VarLayout describes where one variable lives: its type layout, semantic,
// stage, and the resource ranges it occupies.
type VarLayout struct {
	Decl       *Decl
	TypeLayout TypeLayout
	Flags      VarLayoutFlags

	SemanticName  string
	SemanticIndex int

	SystemValueSemantic      string
	SystemValueSemanticIndex int

	Stage Stage

	ResourceInfos []ResourceInfo
}

// FindResourceInfo returns the resource record for kind, or nil.
func (l *VarLayout) FindResourceInfo(kind ResourceKind) *ResourceInfo {
	for i := range l.ResourceInfos {
		if l.ResourceInfos[i].Kind == kind {
			return &l.ResourceInfos[i]
		}
	}
	return nil
}

// AddResourceInfo appends a resource record for kind and returns it for
// the caller to fill in.
func (l *VarLayout) AddResourceInfo(kind ResourceKind) *ResourceInfo {
	l.ResourceInfos = append(l.ResourceInfos, ResourceInfo{Kind: kind, Count: 1})
	return &l.ResourceInfos[len(l.ResourceInfos)-1]
}

// EntryPointLayout describes the layout of a shader entry point: its
// stage, its parameters, and its result.
type EntryPointLayout struct {
	Name   string
	Stage  Stage
	Params []*VarLayout
	Result *VarLayout
}

// Layout is either a *VarLayout or an *EntryPointLayout, attached to
// instructions through LayoutDecoration.
type Layout interface {
	layout()
}

func (*VarLayout) layout()        {}
func (*EntryPointLayout) layout() {}
