package compile

import (
	"github.com/coregx/ahocorasick"
	"github.com/coregx/mooregex/prog"
)

// computeMetadata scans p.Code once it is fully built and fills in the
// anchor, fastmap, and must-match-char hints the VM's search_from fast
// path consults (spec §4.4). Every hint here is sound but may be
// conservatively absent: a false "can't tell" is always safe, a false
// positive never is.
func computeMetadata(p *prog.Program) {
	if len(p.Code) == 0 {
		return
	}
	p.AnchoredAtBOL = prog.Opcode(p.Code[0]) == prog.OpBOL || prog.Opcode(p.Code[0]) == prog.OpBufBegin

	computeFastmap(p)
	computeMustMatchChar(p)
}

// computeFastmap walks every instruction pointer reachable as a
// "first consuming position" from ip 0, treating FAIL_JUMP/STAR_JUMP
// as branches and zero-width/group opcodes as pass-through. It only
// commits a fastmap when every reached consuming opcode contributes a
// precisely known, finite set of leading bytes.
func computeFastmap(p *prog.Program) {
	const maxVisited = 4096
	visited := make(map[int]bool)
	queue := []int{0}
	valid := true

	for len(queue) > 0 && valid {
		ip := queue[0]
		queue = queue[1:]
		if visited[ip] {
			continue
		}
		visited[ip] = true
		if len(visited) > maxVisited {
			valid = false
			break
		}
		if ip >= len(p.Code) {
			continue
		}

		op := prog.Opcode(p.Code[ip])
		switch op {
		case prog.OpEnd:
			// an empty-match path; nothing to contribute, nothing to
			// bound the fastmap by, so any byte may start a match.
			valid = false
		case prog.OpBOL, prog.OpEOL, prog.OpBufBegin, prog.OpBufEnd,
			prog.OpWordBound, prog.OpNotWordBound, prog.OpWordStart, prog.OpWordEnd:
			queue = append(queue, ip+1)
		case prog.OpStartGroup, prog.OpEndGroup:
			queue = append(queue, ip+2)
		case prog.OpJump:
			target := ip + 1 + 2 + int(prog.DecodeDisp16(p.Code, ip+1))
			queue = append(queue, target)
		case prog.OpFailJump, prog.OpStarJump:
			target := ip + 1 + 2 + int(prog.DecodeDisp16(p.Code, ip+1))
			queue = append(queue, ip+3, target)
		case prog.OpChar:
			lit, _ := prog.DecodeChar(p.Code, ip+1)
			if len(lit) == 0 {
				valid = false
				break
			}
			p.Fastmap[lit[0]] = true
			if p.Profile.CaseInsensitive && len(lit) == 1 && lit[0] >= 'a' && lit[0] <= 'z' {
				p.Fastmap[lit[0]-'a'+'A'] = true
			}
		case prog.OpClass:
			bitmap, ext, _ := prog.DecodeClass(p.Code, ip+1)
			if len(ext) > 0 {
				valid = false
				break
			}
			any := false
			for b := 0; b < 128; b++ {
				if bitmap[b/8]&(1<<(b%8)) != 0 {
					p.Fastmap[b] = true
					any = true
				}
			}
			for b := 128; b < 256; b++ {
				if bitmap[b/8]&(1<<(b%8)) != 0 {
					valid = false
					break
				}
			}
			_ = any
		default:
			// ANY, CLASS_NEG, BACKREF, WORD_CHAR, NOT_WORD_CHAR: no
			// finite, precise leading-byte set can be derived safely.
			valid = false
		}
	}

	p.FastmapValid = valid
}

// computeMustMatchChar only handles the simple, sound case: a program
// with no choice points at all (no FAIL_JUMP/STAR_JUMP anywhere) is a
// single rigid path, so the first CHAR opcode on that path is
// guaranteed to appear in every match.
//
// Skipped entirely under a case-insensitive profile: the CHAR operand
// is already case-folded to lowercase by the compiler, but the
// VM's fast path compares it against the subject with a plain
// bytes.IndexByte, which is case-sensitive. Unlike the fastmap (which
// tracks both case variants per byte), a single *byte can't represent
// two possible bytes, so the only sound choice is to leave it unset.
func computeMustMatchChar(p *prog.Program) {
	if p.Profile.CaseInsensitive {
		return
	}
	ip := 0
	var firstChar *byte
	for ip < len(p.Code) {
		op := prog.Opcode(p.Code[ip])
		switch op {
		case prog.OpFailJump, prog.OpStarJump:
			return // has a choice point; bail out, leave unset
		case prog.OpEnd:
			ip = len(p.Code)
		case prog.OpChar:
			lit, next := prog.DecodeChar(p.Code, ip+1)
			if firstChar == nil && len(lit) > 0 {
				b := lit[0]
				firstChar = &b
			}
			ip = next
		case prog.OpClass, prog.OpClassNeg:
			_, _, next := prog.DecodeClass(p.Code, ip+1)
			ip = next
		case prog.OpStartGroup, prog.OpEndGroup, prog.OpBackref:
			ip += 2
		case prog.OpJump:
			return // shouldn't appear without a FAIL_JUMP, but be safe
		default:
			ip++
		}
	}
	p.MustMatchChar = firstChar
}

// acPrefilter adapts an Aho-Corasick automaton to prog.LiteralMatcher.
type acPrefilter struct {
	automaton *ahocorasick.Automaton
}

func (a *acPrefilter) Find(haystack []byte, at int) (int, bool) {
	m := a.automaton.Find(haystack, at)
	if m == nil {
		return 0, false
	}
	return m.Start, true
}

// attachLiteralPrefilter inspects a top-level alternation chain
// rooted at ip 0 and, when every branch begins with a literal prefix
// and there are enough branches to be worth accelerating, builds an
// Aho-Corasick automaton over those prefixes as a search_from fast
// path (SPEC_FULL.md §C). It is always a pure optimization: when the
// program's shape doesn't match this pattern, it leaves
// p.LiteralPrefilter nil and search_from falls back to the fastmap.
func attachLiteralPrefilter(p *prog.Program) {
	const minBranches = 3
	prefixes := extractTopAlternationPrefixes(p.Code)
	if len(prefixes) < minBranches {
		return
	}
	b := ahocorasick.NewBuilder()
	for _, lit := range prefixes {
		b.AddPattern(lit)
	}
	auto, err := b.Build()
	if err != nil {
		return
	}
	p.LiteralPrefilter = &acPrefilter{automaton: auto}
}

// extractTopAlternationPrefixes recognizes the FAIL_JUMP-chained
// alternation shape the compiler emits for top-level `a|b|c` patterns
// and returns the leading run of literal CHAR bytes from each branch.
// It returns nil the moment the bytecode doesn't match this exact
// shape; it never reports a partial or approximate result.
func extractTopAlternationPrefixes(code []byte) [][]byte {
	if len(code) == 0 {
		return nil
	}
	var prefixes [][]byte
	ip := 0
	for {
		branchStart := ip
		if prog.Opcode(code[ip]) == prog.OpFailJump {
			branchStart = ip + 3
		}
		lit := literalPrefixAt(code, branchStart)
		if lit == nil {
			return nil
		}
		prefixes = append(prefixes, lit)

		if prog.Opcode(code[ip]) != prog.OpFailJump {
			break
		}
		target := ip + 1 + 2 + int(prog.DecodeDisp16(code, ip+1))
		if target <= ip || target >= len(code) {
			return nil
		}
		ip = target
	}
	return prefixes
}

// literalPrefixAt collects the run of consecutive CHAR opcodes
// starting at ip, stopping at the first non-CHAR opcode.
func literalPrefixAt(code []byte, ip int) []byte {
	var out []byte
	for ip < len(code) && prog.Opcode(code[ip]) == prog.OpChar {
		lit, next := prog.DecodeChar(code, ip+1)
		out = append(out, lit...)
		ip = next
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
