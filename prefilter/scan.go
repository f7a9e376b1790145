// Package prefilter provides byte-level search acceleration for the
// VM's unanchored search_from fast path: scanning a haystack for the
// next byte that could possibly begin a match (spec §4.4's fastmap),
// without needing a full VM step at every candidate position.
package prefilter

import (
	"encoding/binary"
	"math/bits"

	"golang.org/x/sys/cpu"
)

// useWordScan gates the word-at-a-time SWAR path. It is a pure Go
// technique, not an assembly intrinsic, but a 64-bit-register
// datapath is only worth the setup cost on platforms with a
// general-purpose SIMD-capable core; on anything else the byte loop
// is emitted just as well by the Go compiler.
var useWordScan = cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD

const lo8 = 0x0101010101010101
const hi8 = 0x8080808080808080

// IndexByte returns the offset of the first occurrence of b in
// haystack at or after from, or -1 if none exists.
func IndexByte(haystack []byte, from int, b byte) int {
	if from >= len(haystack) {
		return -1
	}
	h := haystack[from:]
	var idx int
	if useWordScan {
		idx = indexByteSWAR(h, b)
	} else {
		idx = indexByteScalar(h, b)
	}
	if idx < 0 {
		return -1
	}
	return from + idx
}

// indexByteSWAR finds b using the "SIMD within a register" zero-byte
// detection trick: broadcast b across a uint64, XOR with each 8-byte
// chunk so a matching byte becomes 0x00, then test for a zero byte
// with the Hacker's Delight formula.
func indexByteSWAR(h []byte, b byte) int {
	n := len(h)
	if n < 8 {
		return indexByteScalar(h, b)
	}
	mask := uint64(b) * lo8

	idx := 0
	for idx+8 <= n {
		chunk := binary.LittleEndian.Uint64(h[idx:])
		x := chunk ^ mask
		hasZero := (x - lo8) &^ x & hi8
		if hasZero != 0 {
			return idx + bits.TrailingZeros64(hasZero)/8
		}
		idx += 8
	}
	for ; idx < n; idx++ {
		if h[idx] == b {
			return idx
		}
	}
	return -1
}

func indexByteScalar(h []byte, b byte) int {
	for i, c := range h {
		if c == b {
			return i
		}
	}
	return -1
}

// ScanByteSet returns the offset of the first byte at or after from
// in haystack that set[byte] marks true, or -1 if none exists. When
// exactly one byte is set it degrades to the accelerated IndexByte;
// otherwise it falls back to a straight O(1)-per-byte table scan,
// since accelerating an arbitrary multi-byte set needs real SIMD
// shuffle instructions this package does not have.
func ScanByteSet(haystack []byte, from int, set *[256]bool) int {
	only := byte(0)
	count := 0
	for i := 0; i < 256 && count <= 1; i++ {
		if set[i] {
			count++
			only = byte(i)
		}
	}
	switch count {
	case 0:
		return -1
	case 1:
		return IndexByte(haystack, from, only)
	default:
		for i := from; i < len(haystack); i++ {
			if set[haystack[i]] {
				return i
			}
		}
		return -1
	}
}
