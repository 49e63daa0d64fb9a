// Package compiler turns routine definitions into run lists.
//
// Two inputs are handled here: CUE library values are parsed into ir types
// (ParsePose, ParseRoutine, ParseMaster), and ir.RoutineDef / ir.MasterDef
// are expanded into the flat, immutable []ir.RunStep the engine plays
// (Compile, CompileMaster). Compilation is pure: the same inputs and seed
// always produce the same run list.
package compiler
