// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl legalizes shader entry points for GLSL-family targets.
//
// The source model expresses stage inputs and outputs as entry-point
// parameters and return values carrying semantic annotations. GLSL instead
// wants module-scope in/out variables with layout qualifiers and a
// parameterless void main. LegalizeEntryPoint rewrites an entry-point
// function from the first form to the second: varying parameters and the
// return value become decorated global parameters, aggregate varyings are
// scalarized into one global per leaf, and system-value semantics map to
// GLSL built-in variables, tracking any extensions or minimum language
// versions they require.
package glsl
