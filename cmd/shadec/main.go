// Command shadec runs the GLSL entry-point legalizer over a demo module
// and prints the rewritten IR.
//
// Usage:
//
//	shadec [options]
//
// Examples:
//
//	shadec                       # Legalize the built-in demo entry point
//	shadec -profile target.toml  # Start from a target profile
//	shadec -validate=false       # Skip post-pass validation
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"
	"github.com/pterm/pterm"

	"github.com/gogpu/shade"
	"github.com/gogpu/shade/glsl"
	"github.com/gogpu/shade/ir"
)

var (
	profilePath = flag.String("profile", "", "target profile TOML file")
	validate    = flag.Bool("validate", true, "validate IR after legalization")
	version     = flag.Bool("version", false, "print version")
)

const shadeVersion = "0.1.0-dev"

// tomlProfile is a target profile as encoded in TOML.
type tomlProfile struct {
	Version    string   `toml:"version"`
	ES         bool     `toml:"es"`
	Extensions []string `toml:"extensions"`
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("shadec version %s\n", shadeVersion)
		return
	}

	opts := shade.DefaultOptions()
	opts.Validate = *validate

	if *profilePath != "" {
		langVersion, err := loadProfile(*profilePath)
		if err != nil {
			pterm.Error.Printfln("loading profile: %v", err)
			os.Exit(1)
		}
		opts.LangVersion = langVersion
	}

	session := ir.NewSession()
	module, entry := buildDemoModule(session)

	pterm.Info.Printfln("legalizing entry point %q for GLSL %s", entry.Name, opts.LangVersion)

	info, diagnostics, err := shade.Legalize(module, opts)
	for _, d := range diagnostics {
		pterm.Warning.Printfln("%s [%s]", d.Error(), d.Code)
	}
	if err != nil {
		pterm.Error.Printfln("legalization: %v", err)
		os.Exit(1)
	}

	fmt.Print(ir.Dump(module))

	pterm.Success.Printfln("legalized %d entry point(s), requires GLSL %s",
		len(info.EntryPoints), info.RequiredVersion)
	for _, ext := range info.UsedExtensions {
		pterm.Info.Printfln("requires extension %s", ext)
	}
}

// loadProfile reads a target profile and folds it into a starting GLSL
// version.
func loadProfile(path string) (glsl.Version, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return glsl.Version{}, err
	}

	profile := &tomlProfile{}
	if err := toml.Unmarshal(buff, profile); err != nil {
		return glsl.Version{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	number, err := strconv.Atoi(profile.Version)
	if err != nil {
		return glsl.Version{}, fmt.Errorf("bad version %q in %s", profile.Version, path)
	}

	return glsl.Version{
		Major: uint8(number / 100),
		Minor: uint8(number % 100),
		ES:    profile.ES,
	}, nil
}

// buildDemoModule assembles a small fragment-shader entry point in source
// form:
//
//	float4 main(float4 pos : SV_Position) : SV_Target { return pos; }
func buildDemoModule(session *ir.Session) (*ir.Module, *ir.Inst) {
	module := ir.NewModule(session)
	b := ir.NewBuilder(module)

	float4 := b.VectorType(b.FloatType(), b.IntValue(4))

	fn := b.CreateFunc(b.FuncType(float4, float4))
	fn.Name = "main"

	block := b.CreateBlock(fn)
	pos := b.CreateParam(block, float4)
	b.SetInsertInto(block)
	b.EmitReturnVal(pos)

	paramLayout := &ir.VarLayout{
		Decl:                &ir.Decl{Name: "pos", Loc: ir.SourceLoc{File: "demo.hlsl", Line: 1, Column: 13}},
		TypeLayout:          &ir.LeafTypeLayout{},
		SystemValueSemantic: "SV_Position",
	}
	paramLayout.AddResourceInfo(ir.ResourceVaryingInput)
	b.AddLayoutDecoration(pos, paramLayout)

	resultLayout := &ir.VarLayout{
		Decl:                &ir.Decl{Name: "main", Loc: ir.SourceLoc{File: "demo.hlsl", Line: 1, Column: 1}},
		TypeLayout:          &ir.LeafTypeLayout{},
		SystemValueSemantic: "SV_Target",
	}
	resultLayout.AddResourceInfo(ir.ResourceVaryingOutput)

	b.AddLayoutDecoration(fn, &ir.EntryPointLayout{
		Name:   "main",
		Stage:  ir.StageFragment,
		Result: resultLayout,
	})

	return module, fn
}
