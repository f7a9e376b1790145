package prog

import (
	"fmt"
	"strings"

	"github.com/coregx/mooregex/syntax"
)

// MaxGroups is the largest capturing-group number the bytecode can
// address (groups are numbered 1-9; group 0 is the whole match and is
// never emitted as START_GROUP/END_GROUP).
const MaxGroups = 9

// MaxCodeSize is the largest bytecode length the 16-bit jump
// displacements can address. Programs that would grow past this are
// rejected at compile time (spec §5).
const MaxCodeSize = 1<<15 - 1

// LiteralMatcher is satisfied by an accelerator that can locate the
// next occurrence of one of a fixed set of required literal prefixes
// in a haystack. It is an optional search-fast-path accelerator
// (spec §4.4 enrichment, see SPEC_FULL.md §C) layered on top of the
// mandatory single-byte fastmap; a Program with a nil LiteralPrefilter
// falls back to the fastmap/must-match-char scan alone.
type LiteralMatcher interface {
	// Find returns the byte offset of the next candidate starting at
	// or after at, or ok=false if none remains in haystack.
	Find(haystack []byte, at int) (start int, ok bool)
}

// Program is an immutable compiled bytecode program together with the
// metadata the VM needs to execute it efficiently (spec §3).
type Program struct {
	// Code is the opcode stream.
	Code []byte

	// NumGroups is the number of capturing groups actually assigned
	// START_GROUP/END_GROUP opcodes (0-9). Group 0 (the whole match)
	// is not counted here.
	NumGroups int

	// Profile is the syntax profile this program was compiled under.
	Profile syntax.Profile

	// Source is the canonical pattern text, kept for introspection
	// and for the compile-determinism property (spec §8).
	Source string

	// Fastmap, when FastmapValid, holds the set of bytes that can
	// begin a match. Used by search_from to skip starting positions
	// that cannot possibly match (spec §4.4).
	Fastmap      [256]bool
	FastmapValid bool

	// AnchoredAtBOL is true when the program is statically known to
	// only ever match starting at a BOL/BUF_BEGIN position.
	AnchoredAtBOL bool

	// MustMatchChar, when non-nil, is a single byte that must appear
	// somewhere in any successful match. search_from uses this to
	// reject a haystack outright before scanning for start positions.
	MustMatchChar *byte

	// LiteralPrefilter, when non-nil, accelerates the unanchored
	// search fast path beyond the single-byte fastmap (see
	// LiteralMatcher).
	LiteralPrefilter LiteralMatcher
}

// Info is the introspection snapshot returned by program_info
// (spec §6 item 4).
type Info struct {
	NumGroups           int
	AnchoredAtBOL       bool
	Fastmap             [256]bool
	FastmapValid        bool
	MustMatchChar       *byte
	HasLiteralPrefilter bool
}

// Info builds the program_info introspection value for p.
func (p *Program) Info() Info {
	return Info{
		NumGroups:           p.NumGroups,
		AnchoredAtBOL:       p.AnchoredAtBOL,
		Fastmap:             p.Fastmap,
		FastmapValid:        p.FastmapValid,
		MustMatchChar:       p.MustMatchChar,
		HasLiteralPrefilter: p.LiteralPrefilter != nil,
	}
}

// ---- operand encode/decode helpers shared by compile and vm ----

// EncodeChar appends a CHAR operand (length byte + UTF-8 bytes) for
// the given codepoint.
func EncodeChar(code []byte, cp rune) []byte {
	var buf [4]byte
	n := encodeRuneUTF8(buf[:], cp)
	code = append(code, byte(n))
	code = append(code, buf[:n]...)
	return code
}

// DecodeChar reads the CHAR operand starting at pos (which must point
// at the length byte) and returns the matched byte sequence and the
// offset just past the operand.
func DecodeChar(code []byte, pos int) (lit []byte, next int) {
	n := int(code[pos])
	return code[pos+1 : pos+1+n], pos + 1 + n
}

// encodeRuneUTF8 is a small local UTF-8 encoder so this package has no
// dependency beyond the standard library's builtin rune handling.
func encodeRuneUTF8(buf []byte, cp rune) int {
	switch {
	case cp < 0x80:
		buf[0] = byte(cp)
		return 1
	case cp < 0x800:
		buf[0] = 0xC0 | byte(cp>>6)
		buf[1] = 0x80 | byte(cp)&0x3F
		return 2
	case cp < 0x10000:
		buf[0] = 0xE0 | byte(cp>>12)
		buf[1] = 0x80 | byte(cp>>6)&0x3F
		buf[2] = 0x80 | byte(cp)&0x3F
		return 3
	default:
		buf[0] = 0xF0 | byte(cp>>18)
		buf[1] = 0x80 | byte(cp>>12)&0x3F
		buf[2] = 0x80 | byte(cp>>6)&0x3F
		buf[3] = 0x80 | byte(cp)&0x3F
		return 4
	}
}

// EncodeClass appends a CLASS/CLASS_NEG operand (32-byte bitmap plus
// an extension-range list) built from bm.
func EncodeClass(code []byte, bm *syntax.ClassBitmap) []byte {
	bits := bm.Bytes()
	code = append(code, bits[:]...)
	ext := bm.ExtRanges()
	code = append(code, byte(len(ext)))
	for _, r := range ext {
		code = appendUint32(code, uint32(r.Lo))
		code = appendUint32(code, uint32(r.Hi))
	}
	return code
}

// DecodeClass reads a CLASS/CLASS_NEG operand starting at pos and
// returns the bitmap, extension ranges, and the offset just past the
// operand.
func DecodeClass(code []byte, pos int) (bitmap [32]byte, ext []syntax.ClassRange, next int) {
	copy(bitmap[:], code[pos:pos+32])
	pos += 32
	n := int(code[pos])
	pos++
	if n > 0 {
		ext = make([]syntax.ClassRange, n)
		for i := 0; i < n; i++ {
			lo := readUint32(code, pos)
			hi := readUint32(code, pos+4)
			ext[i] = syntax.ClassRange{Lo: rune(lo), Hi: rune(hi)}
			pos += 8
		}
	}
	return bitmap, ext, pos
}

func appendUint32(code []byte, v uint32) []byte {
	return append(code, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readUint32(code []byte, pos int) uint32 {
	return uint32(code[pos])<<24 | uint32(code[pos+1])<<16 | uint32(code[pos+2])<<8 | uint32(code[pos+3])
}

// Disassemble returns a human-readable opcode dump, one instruction
// per line, useful for tests and debugging (not part of the narrow
// §6 interface).
func (p *Program) Disassemble() string {
	var b strings.Builder
	ip := 0
	for ip < len(p.Code) {
		op := Opcode(p.Code[ip])
		fmt.Fprintf(&b, "%5d  %s", ip, op)
		ip++
		switch op {
		case OpChar:
			lit, next := DecodeChar(p.Code, ip)
			fmt.Fprintf(&b, " %q", lit)
			ip = next
		case OpClass, OpClassNeg:
			_, ext, next := DecodeClass(p.Code, ip)
			fmt.Fprintf(&b, " (%d ext ranges)", len(ext))
			ip = next
		case OpJump, OpStarJump, OpFailJump:
			disp := DecodeDisp16(p.Code, ip)
			target := ip + 2 + int(disp)
			fmt.Fprintf(&b, " -> %d", target)
			ip += 2
		case OpStartGroup, OpEndGroup, OpBackref:
			fmt.Fprintf(&b, " %d", p.Code[ip])
			ip++
		default:
			// no operand
		}
		b.WriteByte('\n')
	}
	return b.String()
}
