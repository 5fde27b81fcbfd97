// Package emit turns plan fragments into shell command fragments.
//
// Four emitters cooperate, one per utility family: awk for field-aware
// work, grep/ripgrep for raw line predicates, jq for json, and the
// sort/uniq/head family for global reordering. Each emitter owns the
// quoting and feature-flag decisions for its utility; the assembler in
// the compiler package composes the fragments and never touches quoting
// itself.
package emit
