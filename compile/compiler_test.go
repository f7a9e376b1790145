package compile

import (
	"strings"
	"testing"

	"github.com/coregx/mooregex/prog"
	"github.com/coregx/mooregex/syntax"
)

func mustCompile(t *testing.T, pattern string, profile syntax.Profile) *prog.Program {
	t.Helper()
	p, err := Compile([]byte(pattern), profile)
	if err != nil {
		t.Fatalf("Compile(%q): unexpected error: %v", pattern, err)
	}
	return p
}

func TestCompileLiteralConcatenation(t *testing.T) {
	p := mustCompile(t, "ab", syntax.AWK)
	if p.NumGroups != 0 {
		t.Fatalf("NumGroups = %d, want 0", p.NumGroups)
	}
	want := []byte{byte(prog.OpChar), 1, 'a', byte(prog.OpChar), 1, 'b', byte(prog.OpEnd)}
	if string(p.Code) != string(want) {
		t.Fatalf("Code = %v, want %v\n%s", p.Code, want, p.Disassemble())
	}
}

func TestCompileStarQuantifier(t *testing.T) {
	p := mustCompile(t, "a*", syntax.AWK)
	dis := p.Disassemble()
	if !strings.Contains(dis, "FAIL_JUMP") || !strings.Contains(dis, "STAR_JUMP") {
		t.Fatalf("expected FAIL_JUMP/STAR_JUMP pair, got:\n%s", dis)
	}
}

func TestCompilePlusQuantifier(t *testing.T) {
	p := mustCompile(t, "a+", syntax.AWK)
	dis := p.Disassemble()
	if !strings.Contains(dis, "FAIL_JUMP") || !strings.Contains(dis, "STAR_JUMP") {
		t.Fatalf("expected FAIL_JUMP/STAR_JUMP pair, got:\n%s", dis)
	}
	// a+ never guards the first repetition with a FAIL_JUMP placed
	// before it, unlike a*: the first instruction should be the atom.
	if prog.Opcode(p.Code[0]) != prog.OpChar {
		t.Fatalf("expected a+ to start with CHAR, got %s", prog.Opcode(p.Code[0]))
	}
}

func TestCompileAlternation(t *testing.T) {
	p := mustCompile(t, "a|b|c", syntax.AWK)
	if prog.Opcode(p.Code[0]) != prog.OpFailJump {
		t.Fatalf("expected alternation to start with FAIL_JUMP, got %s", prog.Opcode(p.Code[0]))
	}
}

func TestCompileGroupsNumberedInOrder(t *testing.T) {
	p := mustCompile(t, "(a)(b(c))", syntax.AWK)
	if p.NumGroups != 3 {
		t.Fatalf("NumGroups = %d, want 3", p.NumGroups)
	}
}

func TestCompileTooManyGroups(t *testing.T) {
	pattern := strings.Repeat("(a)", 10)
	_, err := Compile([]byte(pattern), syntax.AWK)
	if err == nil || err.Kind != ErrTooManyGroups {
		t.Fatalf("Compile(%q) = %v, want ErrTooManyGroups", pattern, err)
	}
}

func TestCompileUnbalancedGroup(t *testing.T) {
	cases := []string{"(a", "a)", "((a)"}
	for _, pat := range cases {
		_, err := Compile([]byte(pat), syntax.AWK)
		if err == nil || err.Kind != ErrUnbalancedGroup {
			t.Errorf("Compile(%q) = %v, want ErrUnbalancedGroup", pat, err)
		}
	}
}

func TestCompileUnbalancedBracket(t *testing.T) {
	_, err := Compile([]byte("[abc"), syntax.AWK)
	if err == nil || err.Kind != ErrUnbalancedBracket {
		t.Fatalf("Compile([abc) = %v, want ErrUnbalancedBracket", err)
	}
}

func TestCompileTrailingBackslash(t *testing.T) {
	_, err := Compile([]byte(`a\`), syntax.AWK)
	if err == nil || err.Kind != ErrTrailingBackslash {
		t.Fatalf(`Compile(a\) = %v, want ErrTrailingBackslash`, err)
	}
}

func TestCompileInvalidRange(t *testing.T) {
	_, err := Compile([]byte("[z-a]"), syntax.AWK)
	if err == nil || err.Kind != ErrInvalidRange {
		t.Fatalf("Compile([z-a]) = %v, want ErrInvalidRange", err)
	}
}

func TestCompileInvalidBackref(t *testing.T) {
	_, err := Compile([]byte(`\1`), syntax.AWK)
	if err == nil || err.Kind != ErrInvalidBackref {
		t.Fatalf(`Compile(\1) = %v, want ErrInvalidBackref`, err)
	}
}

func TestCompileBackrefAcceptedAfterGroup(t *testing.T) {
	mustCompile(t, `(a)\1`, syntax.AWK)
}

func TestCompileNoBkRefsRejectsBackslashDigit(t *testing.T) {
	p := mustCompile(t, `(a)\1`, syntax.Profile{NoBkRefs: true})
	// under NO_BK_REFS, \1 is just a literal backslash-digit escape,
	// not a BACKREF opcode.
	if strings.Contains(p.Disassemble(), "BACKREF") {
		t.Fatalf("expected no BACKREF opcode under NoBkRefs, got:\n%s", p.Disassemble())
	}
}

func TestCompileQuantifierNoOperand(t *testing.T) {
	cases := []string{"*", "+", "?", "(*)", "|*"}
	for _, pat := range cases {
		_, err := Compile([]byte(pat), syntax.AWK)
		if err == nil || err.Kind != ErrQuantifierNoOperand {
			t.Errorf("Compile(%q) = %v, want ErrQuantifierNoOperand", pat, err)
		}
	}
}

func TestCompileNestedQuantifier(t *testing.T) {
	_, err := Compile([]byte("a**"), syntax.AWK)
	if err == nil || err.Kind != ErrNestedQuantifier {
		t.Fatalf("Compile(a**) = %v, want ErrNestedQuantifier", err)
	}
}

func TestCompileEmacsDialectParensLiteral(t *testing.T) {
	p := mustCompile(t, "(a)", syntax.EMACS)
	if p.NumGroups != 0 {
		t.Fatalf("NumGroups = %d, want 0 (plain parens are literal under EMACS)", p.NumGroups)
	}
	p2 := mustCompile(t, `\(a\)`, syntax.EMACS)
	if p2.NumGroups != 1 {
		t.Fatalf("NumGroups = %d, want 1 (backslash-parens group under EMACS)", p2.NumGroups)
	}
}

func TestCompileGrepNewlineActsAsAlternation(t *testing.T) {
	p := mustCompile(t, "a\nb", syntax.GREP)
	if prog.Opcode(p.Code[0]) != prog.OpFailJump {
		t.Fatalf("expected an unescaped newline under GREP to compile as alternation, got %s", prog.Opcode(p.Code[0]))
	}
}

func TestCompileNewlineIsLiteralWithoutNewlineOr(t *testing.T) {
	p := mustCompile(t, "a\nb", syntax.AWK)
	if prog.Opcode(p.Code[0]) != prog.OpChar {
		t.Fatalf("expected a literal newline under AWK (NewlineOr unset), got %s", prog.Opcode(p.Code[0]))
	}
}

func TestCompileAnchors(t *testing.T) {
	p := mustCompile(t, "^abc$", syntax.AWK)
	if !p.AnchoredAtBOL {
		t.Fatalf("expected AnchoredAtBOL for ^abc$")
	}
	if prog.Opcode(p.Code[0]) != prog.OpBOL {
		t.Fatalf("expected program to start with BOL")
	}
}

func TestCompileCaretDollarLiteralMidPattern(t *testing.T) {
	// '$' not at a boundary position is a literal dollar sign.
	p := mustCompile(t, "a$b", syntax.AWK)
	if strings.Contains(p.Disassemble(), "EOL") {
		t.Fatalf("expected literal '$', got EOL in:\n%s", p.Disassemble())
	}
}

func TestCompileCharClassRangeAndNegation(t *testing.T) {
	p := mustCompile(t, "[a-z]", syntax.AWK)
	if !strings.Contains(p.Disassemble(), "CLASS ") {
		t.Fatalf("expected CLASS opcode, got:\n%s", p.Disassemble())
	}
	p2 := mustCompile(t, "[^a-z]", syntax.AWK)
	if !strings.Contains(p2.Disassemble(), "CLASS_NEG") {
		t.Fatalf("expected CLASS_NEG opcode, got:\n%s", p2.Disassemble())
	}
}

func TestCompilePosixBracketClass(t *testing.T) {
	profile := syntax.AWK
	profile.CharClassBrackets = true
	mustCompile(t, "[[:digit:]]", profile)
}

func TestCompileDeterminism(t *testing.T) {
	p1 := mustCompile(t, `a(b|c)+[0-9]\1`, syntax.AWK)
	p2 := mustCompile(t, `a(b|c)+[0-9]\1`, syntax.AWK)
	if string(p1.Code) != string(p2.Code) {
		t.Fatalf("compiling the same pattern twice produced different bytecode")
	}
}

func TestCompileProgramTooLarge(t *testing.T) {
	// A pattern built from enough literal characters to blow
	// past MaxCodeSize; every CHAR op costs at least 3 bytes.
	pattern := strings.Repeat("a", prog.MaxCodeSize)
	_, err := Compile([]byte(pattern), syntax.AWK)
	if err == nil || err.Kind != ErrProgramTooLarge {
		t.Fatalf("Compile(huge pattern) = %v, want ErrProgramTooLarge", err)
	}
}
