// Package ir defines the intermediate representation for shade.
//
// Unlike arena-style IRs that reference nodes through typed handles, this
// IR is a mutable instruction graph: every node is an Inst with an opcode
// and operands, including types and integer literals. Functions contain
// blocks, blocks contain parameters followed by ordinary instructions, and
// the module root owns all module-scope values. Each Inst tracks the uses
// of its result, so passes can rewrite the graph with ReplaceUsesWith and
// re-anchor values with InsertBefore.
//
// The shape of the graph is chosen for legalization passes that rewrite
// entry-point signatures in place: insertion before an arbitrary
// instruction, removal of instructions mid-iteration, and decoration
// lookup are all first-class operations.
package ir
