// Package compile translates a pattern string and a syntax profile
// into a bytecode program (spec §4.2). It is a single left-to-right
// pass: no backtracking in the parser itself, only in the VM that
// later executes the bytecode it emits.
package compile

import (
	"unicode/utf8"

	"github.com/coregx/mooregex/internal/conv"
	"github.com/coregx/mooregex/prog"
	"github.com/coregx/mooregex/syntax"
)

// lastAtomKind classifies what the most recently emitted construct is,
// so a following quantifier can be validated (spec §4.2).
type lastAtomKind int

const (
	atomNone lastAtomKind = iota
	atomQuantifiable
	atomZeroWidth
	atomQuantified
)

// groupFrame tracks one open group (or the implicit whole-pattern
// frame) while the compiler is inside it.
type groupFrame struct {
	groupNum      int // 0 for the synthetic top-level frame
	openPos       int // pattern byte offset where '(' appeared (for error reporting)
	codeStart     int // code offset of the group's START_GROUP opcode (-1 for top frame)
	altStart      int // code offset where the current alternative began
	endJumpFixups []int
}

// compiler holds the mutable state of a single compilation pass.
type compiler struct {
	pattern []byte
	pos     int
	profile syntax.Profile

	code   []byte
	groups []*groupFrame

	groupCount int // capturing groups opened so far

	lastAtomStart int
	lastAtomKind  lastAtomKind

	atBOL bool // true when ^ would be treated as BOL here

	err *Error
}

// Compile compiles pattern under profile into a bytecode program, or
// returns a deterministic *Error describing why it could not.
func Compile(pattern []byte, profile syntax.Profile) (*prog.Program, *Error) {
	c := &compiler{
		pattern: pattern,
		profile: profile,
		atBOL:   true,
	}
	top := &groupFrame{groupNum: 0, codeStart: -1, altStart: 0}
	c.groups = []*groupFrame{top}

	c.run()
	if c.err != nil {
		return nil, c.err
	}

	if len(c.groups) != 1 {
		return nil, newError(ErrUnbalancedGroup, string(pattern), c.groups[len(c.groups)-1].openPos)
	}

	c.patchEndJumps(top, len(c.code))
	c.code = append(c.code, byte(prog.OpEnd))

	if len(c.code) > prog.MaxCodeSize {
		return nil, newError(ErrProgramTooLarge, string(pattern), len(pattern))
	}

	p := &prog.Program{
		Code:      c.code,
		NumGroups: c.groupCount,
		Profile:   profile,
		Source:    string(pattern),
	}
	computeMetadata(p)
	attachLiteralPrefilter(p)
	return p, nil
}

// run executes the main left-to-right dispatch loop.
func (c *compiler) run() {
	for c.pos < len(c.pattern) {
		if len(c.code) > prog.MaxCodeSize {
			c.fail(ErrProgramTooLarge, c.pos)
			return
		}
		b := c.pattern[c.pos]
		switch {
		case b == '\\':
			c.handleBackslash()
		case b == '(' && !c.profile.BackslashParens:
			c.pos++
			c.openGroup()
		case b == ')' && !c.profile.BackslashParens:
			c.pos++
			c.closeGroup()
		case b == '|' && !c.profile.BackslashVbar:
			c.pos++
			c.altBar()
		case b == '\n' && c.profile.NewlineOr:
			c.pos++
			c.altBar()
		case b == '.':
			c.pos++
			c.emitAny()
		case b == '^':
			c.pos++
			c.emitCaret()
		case b == '$':
			c.pos++
			c.emitDollar()
		case b == '[':
			c.pos++
			c.parseClass()
		case b == '*':
			c.pos++
			c.applyStar()
		case b == '+' && !c.profile.BackslashPlusQm:
			c.pos++
			c.applyPlus()
		case b == '?' && !c.profile.BackslashPlusQm:
			c.pos++
			c.applyQuest()
		default:
			c.emitLiteralRune()
		}
		if c.err != nil {
			return
		}
	}
}

func (c *compiler) fail(kind ErrorKind, pos int) {
	if c.err == nil {
		c.err = newError(kind, string(c.pattern), pos)
	}
}

// ---- groups & alternation ----

func (c *compiler) frame() *groupFrame { return c.groups[len(c.groups)-1] }

func (c *compiler) openGroup() {
	openPos := c.pos - 1

	groupNum := 0
	codeStart := len(c.code)
	if c.groupCount+1 > prog.MaxGroups {
		c.fail(ErrTooManyGroups, openPos)
		return
	}
	c.groupCount++
	groupNum = c.groupCount
	c.code = append(c.code, byte(prog.OpStartGroup), conv.IntToUint8(groupNum))

	c.groups = append(c.groups, &groupFrame{
		groupNum:  groupNum,
		openPos:   openPos,
		codeStart: codeStart,
		altStart:  len(c.code),
	})
	c.atBOL = true
	c.lastAtomKind = atomNone
}

func (c *compiler) closeGroup() {
	if len(c.groups) == 1 {
		c.fail(ErrUnbalancedGroup, c.pos-1)
		return
	}
	f := c.groups[len(c.groups)-1]
	c.groups = c.groups[:len(c.groups)-1]

	c.patchEndJumps(f, len(c.code))
	c.code = append(c.code, byte(prog.OpEndGroup), conv.IntToUint8(f.groupNum))

	c.lastAtomStart = f.codeStart
	c.lastAtomKind = atomQuantifiable
	c.atBOL = false
}

// altBar handles a top-level '|' (or, under NEWLINE_OR, an unescaped
// newline): it closes out the alternative that just ended by guarding
// it with a FAIL_JUMP inserted at its start, and records a JUMP to be
// back-patched to the end of the whole alternation once the enclosing
// group (or the pattern) closes.
func (c *compiler) altBar() {
	f := c.frame()

	c.code = append(c.code, byte(prog.OpJump))
	var jumpFixup int
	c.code, jumpFixup = prog.EncodeDisp16(c.code, 0)
	f.endJumpFixups = append(f.endJumpFixups, jumpFixup)

	newAltStart := len(c.code)
	operandPos := c.insertFailJumpPlaceholder(f.altStart)
	newAltStart += failJumpSize
	prog.PatchDisp16(c.code, operandPos, conv.IntToInt16(newAltStart-(operandPos+2)))

	f.altStart = newAltStart
	c.lastAtomStart = f.altStart
	c.lastAtomKind = atomNone
	c.atBOL = true
}

// patchEndJumps resolves every JUMP-to-end fixup recorded for frame f
// to target position target.
func (c *compiler) patchEndJumps(f *groupFrame, target int) {
	for _, fixup := range f.endJumpFixups {
		disp := conv.IntToInt16(target - (fixup + 2))
		prog.PatchDisp16(c.code, fixup, disp)
	}
	f.endJumpFixups = nil
}

const failJumpSize = 3 // opcode byte + 2 operand bytes

// insertFailJumpPlaceholder inserts a FAIL_JUMP instruction (disp
// operand left as a zero placeholder) at pos, shifting every recorded
// fixup position (and the last-atom pointer) that lies at or after
// pos. It returns the byte offset of the operand so the caller can
// patch it once the target position is known.
func (c *compiler) insertFailJumpPlaceholder(pos int) (operandPos int) {
	data := make([]byte, failJumpSize)
	data[0] = byte(prog.OpFailJump)
	c.insertBytes(pos, data)
	return pos + 1
}

// insertBytes splices data into c.code at byte offset pos and shifts
// every position this compiler currently has outstanding (end-jump
// fixups, the active alternative start, and the last-atom pointer)
// that lies at or after pos.
func (c *compiler) insertBytes(pos int, data []byte) {
	grown := make([]byte, 0, len(c.code)+len(data))
	grown = append(grown, c.code[:pos]...)
	grown = append(grown, data...)
	grown = append(grown, c.code[pos:]...)
	c.code = grown

	shift := len(data)
	for _, f := range c.groups {
		for i, fp := range f.endJumpFixups {
			if fp >= pos {
				f.endJumpFixups[i] = fp + shift
			}
		}
		if f.altStart >= pos {
			f.altStart += shift
		}
		if f.codeStart >= pos {
			f.codeStart += shift
		}
	}
	if c.lastAtomStart >= pos {
		c.lastAtomStart += shift
	}
}

// ---- quantifiers ----

func (c *compiler) applyStar() {
	if !c.checkQuantifiable() {
		return
	}
	atomStart := c.lastAtomStart
	failOperandPos := c.insertFailJumpPlaceholder(atomStart)
	loopTarget := atomStart + failJumpSize

	c.code = append(c.code, byte(prog.OpStarJump))
	starPos := len(c.code)
	c.code, _ = prog.EncodeDisp16(c.code, 0)
	exitTarget := len(c.code)

	prog.PatchDisp16(c.code, failOperandPos, conv.IntToInt16(exitTarget-(failOperandPos+2)))
	prog.PatchDisp16(c.code, starPos, conv.IntToInt16(loopTarget-(starPos+2)))

	c.lastAtomKind = atomQuantified
}

func (c *compiler) applyPlus() {
	if !c.checkQuantifiable() {
		return
	}
	loopTarget := c.lastAtomStart

	c.code = append(c.code, byte(prog.OpFailJump))
	failPos := len(c.code)
	c.code, _ = prog.EncodeDisp16(c.code, 0)

	c.code = append(c.code, byte(prog.OpStarJump))
	starPos := len(c.code)
	c.code, _ = prog.EncodeDisp16(c.code, 0)

	exitTarget := len(c.code)
	prog.PatchDisp16(c.code, failPos, conv.IntToInt16(exitTarget-(failPos+2)))
	prog.PatchDisp16(c.code, starPos, conv.IntToInt16(loopTarget-(starPos+2)))

	c.lastAtomKind = atomQuantified
}

func (c *compiler) applyQuest() {
	if !c.checkQuantifiable() {
		return
	}
	failOperandPos := c.insertFailJumpPlaceholder(c.lastAtomStart)
	exitTarget := len(c.code)
	prog.PatchDisp16(c.code, failOperandPos, conv.IntToInt16(exitTarget-(failOperandPos+2)))

	c.lastAtomKind = atomQuantified
}

func (c *compiler) checkQuantifiable() bool {
	switch c.lastAtomKind {
	case atomNone, atomZeroWidth:
		c.fail(ErrQuantifierNoOperand, c.pos-1)
		return false
	case atomQuantified:
		c.fail(ErrNestedQuantifier, c.pos-1)
		return false
	default:
		return true
	}
}

// ---- simple atoms ----

func (c *compiler) emitAny() {
	c.lastAtomStart = len(c.code)
	c.code = append(c.code, byte(prog.OpAny))
	c.lastAtomKind = atomQuantifiable
	c.atBOL = false
}

func (c *compiler) emitCaret() {
	if c.atBOL {
		c.lastAtomStart = len(c.code)
		c.code = append(c.code, byte(prog.OpBOL))
		c.lastAtomKind = atomZeroWidth
	} else {
		c.emitLiteralCodepoint('^')
	}
}

func (c *compiler) emitDollar() {
	if c.peekIsAltOrGroupCloseOrEnd() {
		c.lastAtomStart = len(c.code)
		c.code = append(c.code, byte(prog.OpEOL))
		c.lastAtomKind = atomZeroWidth
		c.atBOL = false
	} else {
		c.emitLiteralCodepoint('$')
	}
}

// peekIsAltOrGroupCloseOrEnd reports whether the parser is currently
// positioned (c.pos) at end of pattern, or at a token that this
// profile interprets as '|' or ')'.
func (c *compiler) peekIsAltOrGroupCloseOrEnd() bool {
	if c.pos >= len(c.pattern) {
		return true
	}
	b := c.pattern[c.pos]
	if b == ')' && !c.profile.BackslashParens {
		return true
	}
	if b == '|' && !c.profile.BackslashVbar {
		return true
	}
	if b == '\n' && c.profile.NewlineOr {
		return true
	}
	if b == '\\' && c.pos+1 < len(c.pattern) {
		nb := c.pattern[c.pos+1]
		if nb == ')' && c.profile.BackslashParens {
			return true
		}
		if nb == '|' && c.profile.BackslashVbar {
			return true
		}
	}
	return false
}

func (c *compiler) emitLiteralRune() {
	r, width := utf8.DecodeRune(c.pattern[c.pos:])
	if r == utf8.RuneError && width <= 1 {
		r = rune(c.pattern[c.pos])
		width = 1
	}
	c.pos += width
	c.emitLiteralCodepoint(r)
}

func (c *compiler) emitLiteralCodepoint(r rune) {
	if c.profile.CaseInsensitive {
		r = syntax.Fold(r)
	}
	c.lastAtomStart = len(c.code)
	c.code = append(c.code, byte(prog.OpChar))
	c.code = prog.EncodeChar(c.code, r)
	c.lastAtomKind = atomQuantifiable
	c.atBOL = false
}
