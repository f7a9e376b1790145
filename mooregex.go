// Package mooregex implements a classical backtracking engine for the
// LambdaMOO regular-expression dialects: a compiler from pattern text
// and a syntax profile to a bytecode program, and a virtual machine
// that executes that program against a subject string.
//
// This package is the narrow engine: compile, match-at, search-from,
// and introspection. It intentionally does not provide a public
// string-extraction convenience wrapper, a command-line tool, or any
// host-language integration layer — those are external collaborators
// with their own lifecycles, built on top of this package rather than
// inside it.
//
// Basic usage:
//
//	prog, err := mooregex.Compile([]byte(`^[0-9]+$`), mooregex.AWK)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	haystack := []byte("room 42")
//	result := mooregex.SearchFrom(prog, haystack, 0, mooregex.DefaultLimits())
//	if result.Outcome == mooregex.Match {
//	    start, end := result.Groups[0][0], result.Groups[0][1]
//	    fmt.Println(string(haystack[start:end]))
//	}
package mooregex

import (
	"github.com/coregx/mooregex/compile"
	"github.com/coregx/mooregex/prog"
	"github.com/coregx/mooregex/syntax"
	"github.com/coregx/mooregex/vm"
)

// Program is a compiled bytecode program (spec §3).
type Program = prog.Program

// Info is the program_info introspection snapshot (spec §6 item 4).
type Info = prog.Info

// Profile selects a dialect's syntax quirks (spec §6).
type Profile = syntax.Profile

// Preset profiles, one per named dialect (spec §6).
var (
	EMACS = syntax.EMACS
	AWK   = syntax.AWK
	GREP  = syntax.GREP
	EGREP = syntax.EGREP
)

// Error reports why compilation failed (spec §4.2, §7).
type Error = compile.Error

// ErrorKind identifies one of the deterministic compile failure modes.
type ErrorKind = compile.ErrorKind

// Limits bounds the work a single match attempt may perform (spec §5).
type Limits = vm.Limits

// DefaultLimits returns the tick/failure budget used when a caller
// doesn't provide its own.
func DefaultLimits() Limits { return vm.DefaultLimits() }

// Outcome is the three-way result of a match attempt (spec §4.4).
type Outcome = vm.Outcome

const (
	NoMatch = vm.NoMatch
	Match   = vm.Match
	Aborted = vm.Aborted
)

// MatchResult is the outcome of a MatchAt or SearchFrom call.
// Groups[0] is the whole match; Groups[1..9] are capturing groups.
// An unset group reads as {-1, -1}.
type MatchResult = vm.Result

// Compile translates pattern into a bytecode program under profile.
// It is a pure function of its two arguments: compiling the same
// pattern under the same profile always produces byte-identical
// bytecode (spec §8).
func Compile(pattern []byte, profile Profile) (*Program, *Error) {
	return compile.Compile(pattern, profile)
}

// MatchAt attempts an anchored match of p against subject starting
// exactly at position at.
func MatchAt(p *Program, subject []byte, at int, limits Limits) MatchResult {
	return vm.MatchAt(p, subject, at, limits)
}

// SearchFrom finds the first match of p in subject at or after from.
func SearchFrom(p *Program, subject []byte, from int, limits Limits) MatchResult {
	return vm.SearchFrom(p, subject, from, limits)
}

// ProgramInfo returns introspection metadata about a compiled program
// (spec §6 item 4).
func ProgramInfo(p *Program) Info {
	return p.Info()
}
