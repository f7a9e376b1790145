package syntax

// IsWordChar returns true for ASCII letters, digits, and underscore.
// Codepoints outside ASCII are never word characters, matching the
// original engine's byte-oriented word definition.
func IsWordChar(cp rune) bool {
	switch {
	case cp >= 'a' && cp <= 'z':
		return true
	case cp >= 'A' && cp <= 'Z':
		return true
	case cp >= '0' && cp <= '9':
		return true
	case cp == '_':
		return true
	default:
		return false
	}
}

// Fold lowercases ASCII A-Z. Non-ASCII codepoints pass through
// unchanged: this is an explicit compatibility quirk of the original
// engine (see spec design notes), not a Unicode-correct case fold.
func Fold(cp rune) rune {
	if cp >= 'A' && cp <= 'Z' {
		return cp - 'A' + 'a'
	}
	return cp
}

// ClassBitmap is a 256-bit membership table used by the CLASS and
// CLASS_NEG opcodes, plus an optional sorted list of non-ASCII
// codepoint ranges appended by the compiler when a class needs to
// match outside the low 256 codepoints (see spec §4.3).
type ClassBitmap struct {
	bits [32]byte
	// ext holds [lo, hi] pairs for codepoints >= 256. Kept sorted and
	// non-overlapping by the compiler that builds it.
	ext []ClassRange
}

// ClassRange is an inclusive codepoint range used for the non-ASCII
// extension list of a ClassBitmap.
type ClassRange struct {
	Lo, Hi rune
}

// Set marks byte b as a member of the bitmap.
func (c *ClassBitmap) Set(b byte) {
	c.bits[b/8] |= 1 << (b % 8)
}

// SetRange marks every byte in [lo, hi] as a member of the bitmap.
func (c *ClassBitmap) SetRange(lo, hi byte) {
	for b := int(lo); b <= int(hi); b++ {
		c.Set(byte(b))
	}
}

// AddExtRange records a non-ASCII codepoint range (lo, hi both >= 256)
// that this class also matches.
func (c *ClassBitmap) AddExtRange(lo, hi rune) {
	// Skip ranges wholly before [lo, hi], merge every range that
	// overlaps or touches it, and splice the merged range in place so
	// the list stays sorted and non-overlapping.
	i := 0
	for i < len(c.ext) && c.ext[i].Hi < lo-1 {
		i++
	}
	j := i
	for j < len(c.ext) && c.ext[j].Lo <= hi+1 {
		lo, hi = min(lo, c.ext[j].Lo), max(hi, c.ext[j].Hi)
		j++
	}
	merged := append([]ClassRange{{Lo: lo, Hi: hi}}, c.ext[j:]...)
	c.ext = append(c.ext[:i], merged...)
}

// Test reports whether codepoint cp is a member of the class. Bytes
// 0-255 are tested via the bitmap; codepoints >= 256 are tested
// against the extension range list.
func (c *ClassBitmap) Test(cp rune) bool {
	if cp >= 0 && cp < 256 {
		return c.bits[byte(cp)/8]&(1<<(byte(cp)%8)) != 0
	}
	for _, r := range c.ext {
		if cp >= r.Lo && cp <= r.Hi {
			return true
		}
	}
	return false
}

// Bytes returns the raw 32-byte bitmap, as stored in the bytecode.
func (c *ClassBitmap) Bytes() [32]byte { return c.bits }

// ExtRanges returns the non-ASCII extension ranges, as stored after
// the bitmap in the bytecode.
func (c *ClassBitmap) ExtRanges() []ClassRange { return c.ext }

// ClassContains tests codepoint cp against a raw 32-byte bitmap plus
// extension ranges, the representation the VM decodes directly from
// the bytecode stream. It is the VM-side counterpart of
// (*ClassBitmap).Test, operating on decoded operand bytes rather than
// a live ClassBitmap builder.
func ClassContains(bitmap [32]byte, ext []ClassRange, cp rune) bool {
	if cp >= 0 && cp < 256 {
		return bitmap[byte(cp)/8]&(1<<(byte(cp)%8)) != 0
	}
	for _, r := range ext {
		if cp >= r.Lo && cp <= r.Hi {
			return true
		}
	}
	return false
}
