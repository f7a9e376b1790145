// Package vm executes a compiled bytecode program against a subject
// string (spec §4.4). It is a classical backtracking interpreter: an
// explicit heap-allocated failure stack stands in for recursion, so
// both the call depth and the total backtracking work are bounded by
// Limits rather than by the Go call stack.
package vm

import (
	"bytes"

	"github.com/coregx/mooregex/prefilter"
	"github.com/coregx/mooregex/prog"
	"github.com/coregx/mooregex/syntax"
)

// Outcome is the three-way result of a match attempt.
type Outcome int

const (
	NoMatch Outcome = iota
	Match
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "Match"
	case Aborted:
		return "Aborted"
	default:
		return "NoMatch"
	}
}

// Result is the outcome of one MatchAt or SearchFrom call. Groups[0]
// is the whole match; Groups[1..9] are the capturing groups. An
// unset group reads as {-1, -1}.
type Result struct {
	Outcome Outcome
	Groups  [prog.MaxGroups + 1][2]int
}

const numSlots = 2 * (prog.MaxGroups + 1)

type groupSlots [numSlots]int

// frame is one entry on the explicit backtrack stack: where to
// resume, the subject position to resume at, and the capture state
// to roll back to. Popping a frame restores the whole capture
// snapshot, so offsets written by an abandoned branch never survive
// it and a later backreference cannot observe them.
type frame struct {
	ip     int
	pos    int
	groups groupSlots
}

type machine struct {
	prog    *prog.Program
	subject []byte
	limits  Limits

	ticks    int
	stack    []frame
	groups   groupSlots
	matchEnd int
}

// MatchAt attempts an anchored match of p against subject starting
// exactly at position at.
func MatchAt(p *prog.Program, subject []byte, at int, limits Limits) Result {
	m := &machine{prog: p, subject: subject, limits: limits}
	for i := range m.groups {
		m.groups[i] = -1
	}
	outcome := m.run(0, at)
	return m.buildResult(outcome, at)
}

// SearchFrom finds the first match of p in subject at or after from,
// using the program's fastmap/literal-prefilter hints to skip
// candidate start positions that cannot possibly match.
func SearchFrom(p *prog.Program, subject []byte, from int, limits Limits) Result {
	empty := emptyResult()

	if p.MustMatchChar != nil && from <= len(subject) &&
		bytes.IndexByte(subject[from:], *p.MustMatchChar) < 0 {
		return empty
	}

	candidate := from
	for candidate <= len(subject) {
		if p.LiteralPrefilter != nil {
			s, ok := p.LiteralPrefilter.Find(subject, candidate)
			if !ok {
				return empty
			}
			candidate = s
		} else if p.FastmapValid {
			s := prefilter.ScanByteSet(subject, candidate, &p.Fastmap)
			if s < 0 {
				return empty
			}
			candidate = s
		}
		if candidate > len(subject) {
			return empty
		}

		res := MatchAt(p, subject, candidate, limits)
		if res.Outcome != NoMatch {
			return res
		}
		candidate++
	}
	return empty
}

func emptyResult() Result {
	r := Result{Outcome: NoMatch}
	for i := range r.Groups {
		r.Groups[i] = [2]int{-1, -1}
	}
	return r
}

func (m *machine) buildResult(outcome Outcome, start int) Result {
	r := emptyResult()
	r.Outcome = outcome
	if outcome != Match {
		return r
	}
	r.Groups[0] = [2]int{start, m.matchEnd}
	for g := 1; g <= prog.MaxGroups; g++ {
		r.Groups[g] = [2]int{m.groups[2*g], m.groups[2*g+1]}
	}
	return r
}

func (m *machine) pushFrame(ip, pos int) bool {
	if len(m.stack) >= m.limits.MaxFailures {
		return false
	}
	m.stack = append(m.stack, frame{ip: ip, pos: pos, groups: m.groups})
	return true
}

func (m *machine) popFrame() (frame, bool) {
	if len(m.stack) == 0 {
		return frame{}, false
	}
	f := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return f, true
}

// run executes the bytecode starting at (ip, pos) until it reaches
// END (Match), exhausts the failure stack (NoMatch), or exceeds a
// budget (Aborted).
//
//nolint:gocyclo // opcode dispatch is inherently one big switch
func (m *machine) run(startIP, startPos int) Outcome {
	ip, pos := startIP, startPos
	code := m.prog.Code

	fail := func() bool {
		f, ok := m.popFrame()
		if !ok {
			return false
		}
		ip, pos, m.groups = f.ip, f.pos, f.groups
		return true
	}

	for {
		m.ticks++
		if m.ticks > m.limits.MaxTicks {
			return Aborted
		}
		if ip >= len(code) {
			if !fail() {
				return NoMatch
			}
			continue
		}

		switch prog.Opcode(code[ip]) {
		case prog.OpEnd:
			m.matchEnd = pos
			return Match

		case prog.OpChar:
			lit, next := prog.DecodeChar(code, ip+1)
			if !m.matchBytes(pos, lit) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			pos += len(lit)
			ip = next

		case prog.OpAny:
			_, w := decodeRune(m.subject, pos)
			if w == 0 {
				if !fail() {
					return NoMatch
				}
				continue
			}
			pos += w
			ip++

		case prog.OpClass, prog.OpClassNeg:
			bitmap, ext, next := prog.DecodeClass(code, ip+1)
			r, w := decodeRune(m.subject, pos)
			if w == 0 {
				if !fail() {
					return NoMatch
				}
				continue
			}
			matched := syntax.ClassContains(bitmap, ext, r)
			if prog.Opcode(code[ip]) == prog.OpClassNeg {
				matched = !matched
			}
			if !matched {
				if !fail() {
					return NoMatch
				}
				continue
			}
			pos += w
			ip = next

		case prog.OpBOL:
			if !(pos == 0 || m.subject[pos-1] == '\n') {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpEOL:
			if !(pos == len(m.subject) || m.subject[pos] == '\n') {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpBufBegin:
			if pos != 0 {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpBufEnd:
			if pos != len(m.subject) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpWordBound:
			if m.wordBefore(pos) == m.wordAfter(pos) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpNotWordBound:
			if m.wordBefore(pos) != m.wordAfter(pos) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpWordStart:
			if m.wordBefore(pos) || !m.wordAfter(pos) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpWordEnd:
			if !m.wordBefore(pos) || m.wordAfter(pos) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			ip++

		case prog.OpWordChar, prog.OpNotWordChar:
			r, w := decodeRune(m.subject, pos)
			if w == 0 {
				if !fail() {
					return NoMatch
				}
				continue
			}
			want := prog.Opcode(code[ip]) == prog.OpWordChar
			if syntax.IsWordChar(r) != want {
				if !fail() {
					return NoMatch
				}
				continue
			}
			pos += w
			ip++

		case prog.OpStartGroup:
			g := int(code[ip+1])
			m.groups[2*g] = pos
			ip += 2

		case prog.OpEndGroup:
			g := int(code[ip+1])
			m.groups[2*g+1] = pos
			ip += 2

		case prog.OpBackref:
			g := int(code[ip+1])
			s, e := m.groups[2*g], m.groups[2*g+1]
			if s < 0 || e < 0 || !m.matchBytes(pos, m.subject[s:e]) {
				if !fail() {
					return NoMatch
				}
				continue
			}
			pos += e - s
			ip += 2

		case prog.OpJump:
			disp := prog.DecodeDisp16(code, ip+1)
			ip = ip + 1 + 2 + int(disp)

		case prog.OpFailJump:
			disp := prog.DecodeDisp16(code, ip+1)
			target := ip + 1 + 2 + int(disp)
			if !m.pushFrame(target, pos) {
				return Aborted
			}
			ip += 3

		case prog.OpStarJump:
			disp := prog.DecodeDisp16(code, ip+1)
			target := ip + 1 + 2 + int(disp)
			if !m.pushFrame(ip+3, pos) {
				return Aborted
			}
			ip = target

		default:
			if !fail() {
				return NoMatch
			}
		}
	}
}

// matchBytes compares want against the subject at pos, folding ASCII
// case when the program's profile calls for it (CHAR operands are
// pre-folded at compile time, so this also correctly matches a
// folded literal against an unfolded subject byte).
func (m *machine) matchBytes(pos int, want []byte) bool {
	if pos+len(want) > len(m.subject) {
		return false
	}
	got := m.subject[pos : pos+len(want)]
	if !m.prog.Profile.CaseInsensitive {
		return bytes.Equal(got, want)
	}
	for i := range want {
		if foldASCII(got[i]) != foldASCII(want[i]) {
			return false
		}
	}
	return true
}

func foldASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

func (m *machine) wordBefore(pos int) bool {
	return pos > 0 && syntax.IsWordChar(rune(m.subject[pos-1]))
}

func (m *machine) wordAfter(pos int) bool {
	return pos < len(m.subject) && syntax.IsWordChar(rune(m.subject[pos]))
}

// decodeRune decodes one UTF-8 codepoint at pos, tolerating invalid
// bytes by treating them as their own single-byte codepoint (the same
// robustness rule the compiler applies to pattern text, applied here
// to subject text per spec §7).
func decodeRune(subject []byte, pos int) (rune, int) {
	if pos >= len(subject) {
		return 0, 0
	}
	b := subject[pos]
	if b < 0x80 {
		return rune(b), 1
	}
	n := 0
	switch {
	case b&0xE0 == 0xC0:
		n = 2
	case b&0xF0 == 0xE0:
		n = 3
	case b&0xF8 == 0xF0:
		n = 4
	default:
		return rune(b), 1
	}
	if pos+n > len(subject) {
		return rune(b), 1
	}
	for i := 1; i < n; i++ {
		if subject[pos+i]&0xC0 != 0x80 {
			return rune(b), 1
		}
	}
	var r rune
	switch n {
	case 2:
		r = rune(b&0x1F) << 6
		r |= rune(subject[pos+1] & 0x3F)
	case 3:
		r = rune(b&0x0F) << 12
		r |= rune(subject[pos+1]&0x3F) << 6
		r |= rune(subject[pos+2] & 0x3F)
	case 4:
		r = rune(b&0x07) << 18
		r |= rune(subject[pos+1]&0x3F) << 12
		r |= rune(subject[pos+2]&0x3F) << 6
		r |= rune(subject[pos+3] & 0x3F)
	}
	return r, n
}
