// Package syntax holds the dialect flags and character classification rules
// shared by the compiler and the virtual machine.
//
// A Profile selects one of several historical regular-expression dialects
// (EMACS, AWK, GREP, EGREP) by toggling a small set of independent
// booleans. Nothing in this package depends on the compiler or the VM; it
// is the leaf of the dependency graph.
package syntax

// Profile is an immutable bundle of dialect flags. Each field selects one
// syntax quirk independently of the others, so callers may also build a
// custom combination instead of using one of the named presets.
type Profile struct {
	// BackslashParens: '(' ')' are literal unless backslashed (EMACS).
	// When false, '(' ')' group directly.
	BackslashParens bool

	// BackslashVbar: '|' is literal unless backslashed.
	BackslashVbar bool

	// BackslashPlusQm: '+' '?' are literal unless backslashed (GREP).
	BackslashPlusQm bool

	// AnsiHex recognizes \n \t \r \xHH escapes inside patterns.
	AnsiHex bool

	// NoBkRefs disables \1 through \9 backreferences.
	NoBkRefs bool

	// NewlineOr treats an unescaped newline in the pattern as a
	// top-level alternation operator, same as an unescaped '|'.
	NewlineOr bool

	// CharClassBrackets allows POSIX-style [:alpha:] names inside
	// bracket expressions.
	CharClassBrackets bool

	// NoGnuOps disables \w \W \b \B \< \> and the GNU buffer anchors
	// \` and \'.
	NoGnuOps bool

	// CaseInsensitive folds case during both class membership tests
	// and literal comparison (ASCII only — see Fold).
	CaseInsensitive bool
}

// EMACS is the Emacs Lisp regexp dialect: parens group only when
// backslashed, and '|' is an alternation operator only when backslashed.
var EMACS = Profile{
	BackslashParens: true,
	BackslashVbar:   true,
}

// AWK is the POSIX awk dialect: '(' ')' '|' '+' '?' are all operators
// without backslashing, and \xHH-style escapes are recognized.
var AWK = Profile{
	AnsiHex: true,
}

// GREP is the classic grep(1) dialect: parens and bars require
// backslashing, and so do '+' and '?'. An unescaped newline also acts
// as a top-level alternation operator, matching how real grep(1)
// treats each line of a multi-line pattern as one alternative.
var GREP = Profile{
	BackslashPlusQm: true,
	BackslashParens: true,
	BackslashVbar:   true,
	NewlineOr:       true,
}

// EGREP is like AWK, but an unescaped newline in the pattern also acts
// as a top-level alternation operator (multi-line -e-style patterns).
var EGREP = Profile{
	AnsiHex:   true,
	NewlineOr: true,
}
