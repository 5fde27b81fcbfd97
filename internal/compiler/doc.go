// Package compiler assembles an optimized plan into a single POSIX shell
// command line.
//
// The assembler walks the plan leaf to root, delegates contiguous runs of
// nodes to the emitters, and joins the resulting fragments with pipes. A
// bounded cache keyed by (plan hash, toolset fingerprint) makes repeat
// compiles free; a changed toolset changes the fingerprint and therefore
// misses. A process-wide default Compiler exists for convenience, but the
// type is an ordinary value so tests and embedders can carry their own.
package compiler
