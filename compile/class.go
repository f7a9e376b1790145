package compile

import (
	"unicode/utf8"

	"github.com/coregx/mooregex/prog"
	"github.com/coregx/mooregex/syntax"
)

// parseClass parses a bracket expression starting right after the
// opening '[' (c.pos points at the char following it, or at '^').
func (c *compiler) parseClass() {
	startPos := c.pos - 1
	negate := false
	if c.pos < len(c.pattern) && c.pattern[c.pos] == '^' {
		negate = true
		c.pos++
	}

	bm := &syntax.ClassBitmap{}
	first := true
	for {
		if c.pos >= len(c.pattern) {
			c.fail(ErrUnbalancedBracket, startPos)
			return
		}
		if c.pattern[c.pos] == ']' && !first {
			c.pos++
			break
		}
		first = false

		if c.profile.CharClassBrackets && c.pos+1 < len(c.pattern) &&
			c.pattern[c.pos] == '[' && c.pattern[c.pos+1] == ':' {
			if !c.parsePosixClass(bm) {
				return
			}
			continue
		}

		lo, consumed, ok := c.parseClassAtom()
		if !ok {
			return
		}
		c.pos += consumed

		if c.pos < len(c.pattern) && c.pattern[c.pos] == '-' &&
			c.pos+1 < len(c.pattern) && c.pattern[c.pos+1] != ']' {
			c.pos++
			hi, consumed2, ok2 := c.parseClassAtom()
			if !ok2 {
				return
			}
			c.pos += consumed2
			if hi < lo {
				c.fail(ErrInvalidRange, c.pos)
				return
			}
			addRangeToBitmap(bm, lo, hi)
		} else {
			addRangeToBitmap(bm, lo, lo)
		}
	}

	if c.profile.CaseInsensitive {
		foldExpand(bm)
	}

	c.lastAtomStart = len(c.code)
	if negate {
		c.code = append(c.code, byte(prog.OpClassNeg))
	} else {
		c.code = append(c.code, byte(prog.OpClass))
	}
	c.code = prog.EncodeClass(c.code, bm)
	c.lastAtomKind = atomQuantifiable
	c.atBOL = false
}

// parseClassAtom reads one class member (a literal codepoint or an
// escape) at c.pos without advancing it; the caller advances by the
// returned byte count once it knows whether a '-' range follows.
func (c *compiler) parseClassAtom() (r rune, consumed int, ok bool) {
	if c.pattern[c.pos] == '\\' {
		if c.pos+1 >= len(c.pattern) {
			c.fail(ErrTrailingBackslash, c.pos)
			return 0, 0, false
		}
		e := c.pattern[c.pos+1]
		switch e {
		case ']', '\\', '^', '-':
			return rune(e), 2, true
		case 'n':
			if c.profile.AnsiHex {
				return '\n', 2, true
			}
		case 't':
			if c.profile.AnsiHex {
				return '\t', 2, true
			}
		case 'r':
			if c.profile.AnsiHex {
				return '\r', 2, true
			}
		case 'x':
			if c.profile.AnsiHex {
				val, n := c.readHexDigits(c.pos + 2)
				if n == 0 {
					c.fail(ErrBadEscape, c.pos)
					return 0, 0, false
				}
				return rune(val), 2 + n, true
			}
		}
		return rune(e), 2, true
	}

	rn, width := utf8.DecodeRune(c.pattern[c.pos:])
	if rn == utf8.RuneError && width <= 1 {
		rn = rune(c.pattern[c.pos])
		width = 1
	}
	return rn, width, true
}

func (c *compiler) readHexDigits(at int) (val, n int) {
	for n < 2 && at+n < len(c.pattern) && isHexDigit(c.pattern[at+n]) {
		val = val*16 + hexVal(c.pattern[at+n])
		n++
	}
	return val, n
}

// parsePosixClass parses a "[:name:]" bracket-class keyword starting
// at c.pos (which points at the leading '[').
func (c *compiler) parsePosixClass(bm *syntax.ClassBitmap) bool {
	start := c.pos
	p := c.pos + 2
	nameStart := p
	for p < len(c.pattern) && c.pattern[p] != ':' {
		p++
	}
	if p+1 >= len(c.pattern) || c.pattern[p] != ':' || c.pattern[p+1] != ']' {
		c.fail(ErrUnbalancedBracket, start)
		return false
	}
	name := string(c.pattern[nameStart:p])
	ranges, ok := posixClassRanges(name)
	if !ok {
		c.fail(ErrBadEscape, start)
		return false
	}
	for _, rg := range ranges {
		addRangeToBitmap(bm, rg[0], rg[1])
	}
	c.pos = p + 2
	return true
}

func posixClassRanges(name string) ([][2]rune, bool) {
	switch name {
	case "alpha":
		return [][2]rune{{'A', 'Z'}, {'a', 'z'}}, true
	case "digit":
		return [][2]rune{{'0', '9'}}, true
	case "alnum":
		return [][2]rune{{'0', '9'}, {'A', 'Z'}, {'a', 'z'}}, true
	case "upper":
		return [][2]rune{{'A', 'Z'}}, true
	case "lower":
		return [][2]rune{{'a', 'z'}}, true
	case "space":
		return [][2]rune{{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}, {'\v', '\v'}, {'\f', '\f'}}, true
	case "blank":
		return [][2]rune{{' ', ' '}, {'\t', '\t'}}, true
	case "punct":
		return [][2]rune{{'!', '/'}, {':', '@'}, {'[', '`'}, {'{', '~'}}, true
	case "cntrl":
		return [][2]rune{{0, 31}, {127, 127}}, true
	case "print":
		return [][2]rune{{32, 126}}, true
	case "graph":
		return [][2]rune{{33, 126}}, true
	}
	return nil, false
}

// addRangeToBitmap records the codepoint range [lo, hi] into bm,
// splitting it across the ASCII bitmap and the extension-range list
// as needed.
func addRangeToBitmap(bm *syntax.ClassBitmap, lo, hi rune) {
	if lo < 256 {
		asciiHi := hi
		if asciiHi > 255 {
			asciiHi = 255
		}
		bm.SetRange(byte(lo), byte(asciiHi))
	}
	if hi >= 256 {
		extLo := lo
		if extLo < 256 {
			extLo = 256
		}
		bm.AddExtRange(extLo, hi)
	}
}

// foldExpand adds the opposite-case byte for every ASCII letter
// already set, so a CASE_INSENSITIVE class matches either case
// without the VM needing special-case folding logic at match time.
func foldExpand(bm *syntax.ClassBitmap) {
	for b := byte('A'); b <= 'Z'; b++ {
		if bm.Test(rune(b)) {
			bm.Set(b - 'A' + 'a')
		}
	}
	for b := byte('a'); b <= 'z'; b++ {
		if bm.Test(rune(b)) {
			bm.Set(b - 'a' + 'A')
		}
	}
}
