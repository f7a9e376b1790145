package compile

import (
	"unicode/utf8"

	"github.com/coregx/mooregex/internal/conv"
	"github.com/coregx/mooregex/prog"
)

// handleBackslash parses a backslash escape starting at c.pos (which
// points at the backslash itself), dispatching on the syntax profile
// exactly as spec §4.2/§6 describes each dialect flag.
func (c *compiler) handleBackslash() {
	next := c.pos + 1
	if next >= len(c.pattern) {
		c.fail(ErrTrailingBackslash, c.pos)
		return
	}
	ch := c.pattern[next]

	switch {
	case ch == '(' && c.profile.BackslashParens:
		c.pos = next + 1
		c.openGroup()
	case ch == ')' && c.profile.BackslashParens:
		c.pos = next + 1
		c.closeGroup()
	case ch == '|' && c.profile.BackslashVbar:
		c.pos = next + 1
		c.altBar()
	case ch == '+' && c.profile.BackslashPlusQm:
		c.pos = next + 1
		c.applyPlus()
	case ch == '?' && c.profile.BackslashPlusQm:
		c.pos = next + 1
		c.applyQuest()
	case ch >= '1' && ch <= '9' && !c.profile.NoBkRefs:
		c.pos = next + 1
		c.emitBackref(int(ch - '0'))
	case (ch == 'w' || ch == 'W' || ch == 'b' || ch == 'B' || ch == '<' || ch == '>') && !c.profile.NoGnuOps:
		c.pos = next + 1
		c.emitGnuOp(ch)
	case (ch == '`' || ch == '\'') && !c.profile.NoGnuOps:
		c.pos = next + 1
		c.emitBufOp(ch)
	case ch == 'n' && c.profile.AnsiHex:
		c.pos = next + 1
		c.emitLiteralCodepoint('\n')
	case ch == 't' && c.profile.AnsiHex:
		c.pos = next + 1
		c.emitLiteralCodepoint('\t')
	case ch == 'r' && c.profile.AnsiHex:
		c.pos = next + 1
		c.emitLiteralCodepoint('\r')
	case ch == 'x' && c.profile.AnsiHex:
		c.pos = next + 1
		c.emitHexEscape()
	default:
		r, width := utf8.DecodeRune(c.pattern[next:])
		if r == utf8.RuneError && width <= 1 {
			r = rune(ch)
			width = 1
		}
		c.pos = next + width
		c.emitLiteralCodepoint(r)
	}
}

// emitBackref emits BACKREF n. n must refer to a group that has
// already been opened somewhere to the left (textually impossible to
// reference a group that does not exist yet); referencing a group
// that is still open (a self- or enclosing-group backreference) is
// accepted here; the VM resolves whatever capture value is live on the
// current path. Captures written by a branch that was backtracked out
// of are rolled back with it, so they are never seen by a backreference.
func (c *compiler) emitBackref(n int) {
	if n > c.groupCount {
		c.fail(ErrInvalidBackref, c.pos)
		return
	}
	c.lastAtomStart = len(c.code)
	c.code = append(c.code, byte(prog.OpBackref), conv.IntToUint8(n))
	c.lastAtomKind = atomQuantifiable
	c.atBOL = false
}

func (c *compiler) emitGnuOp(ch byte) {
	var op prog.Opcode
	zeroWidth := true
	switch ch {
	case 'w':
		op, zeroWidth = prog.OpWordChar, false
	case 'W':
		op, zeroWidth = prog.OpNotWordChar, false
	case 'b':
		op = prog.OpWordBound
	case 'B':
		op = prog.OpNotWordBound
	case '<':
		op = prog.OpWordStart
	case '>':
		op = prog.OpWordEnd
	}
	c.lastAtomStart = len(c.code)
	c.code = append(c.code, byte(op))
	if zeroWidth {
		c.lastAtomKind = atomZeroWidth
	} else {
		c.lastAtomKind = atomQuantifiable
	}
	c.atBOL = false
}

func (c *compiler) emitBufOp(ch byte) {
	op := prog.OpBufBegin
	if ch == '\'' {
		op = prog.OpBufEnd
	}
	c.lastAtomStart = len(c.code)
	c.code = append(c.code, byte(op))
	c.lastAtomKind = atomZeroWidth
	c.atBOL = false
}

func (c *compiler) emitHexEscape() {
	val := 0
	n := 0
	for n < 2 && c.pos < len(c.pattern) && isHexDigit(c.pattern[c.pos]) {
		val = val*16 + hexVal(c.pattern[c.pos])
		c.pos++
		n++
	}
	if n == 0 {
		c.fail(ErrBadEscape, c.pos)
		return
	}
	c.emitLiteralCodepoint(rune(val))
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
