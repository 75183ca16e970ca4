package assembler

import (
	"strconv"
	"strings"

	"github.com/gmofishsauce/sinc/internal/isa"
)

// Operand is a parsed instruction operand: an addressing mode, and
// either a literal value or a symbol name (the relocatable form).
type Operand struct {
	Mode       isa.Mode
	Value      int64
	Symbol     string // set instead of Value when the operand names a symbol
	IsSymbol   bool
	IsRegister bool
}

// parseOperand decodes one operand per spec §4.4's table: register
// operands (a, b); indirect forms ((expr, x) and (expr), y); indexed
// forms (expr, x / expr, y); an optional leading '#' for immediate;
// and the literal prefixes $ (hex), % (binary), bare digits (decimal)
// -- anything else is a symbol name.
func parseOperand(line int, raw string) (Operand, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Operand{}, errf(line, "missing operand")
	}

	lower := strings.ToLower(s)
	if lower == "a" {
		return Operand{Mode: isa.RegisterA, IsRegister: true}, nil
	}
	if lower == "b" {
		return Operand{Mode: isa.RegisterB, IsRegister: true}, nil
	}

	if strings.HasPrefix(s, "(") {
		return parseIndirect(line, s)
	}

	immediate := false
	if strings.HasPrefix(s, "#") {
		immediate = true
		s = s[1:]
	}

	mode := isa.Absolute
	if idx := findIndexSuffix(s); idx != "" {
		s = strings.TrimSpace(s[:strings.LastIndex(s, ",")])
		if strings.EqualFold(idx, "x") {
			mode = isa.XIndexed
		} else {
			mode = isa.YIndexed
		}
	}
	if immediate {
		mode = isa.Immediate
	}

	val, sym, isSym, err := parseValueOrSymbol(line, s)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Mode: mode, Value: val, Symbol: sym, IsSymbol: isSym}, nil
}

// findIndexSuffix reports whether s ends with ", x" or ", y" (any
// spacing), returning "x" or "y", or "" if neither.
func findIndexSuffix(s string) string {
	t := strings.TrimSpace(s)
	if i := strings.LastIndex(t, ","); i >= 0 {
		tail := strings.TrimSpace(t[i+1:])
		if strings.EqualFold(tail, "x") || strings.EqualFold(tail, "y") {
			return tail
		}
	}
	return ""
}

// parseIndirect handles "(expr, x)" (indirect-X) and "(expr), y"
// (indirect-Y).
func parseIndirect(line int, s string) (Operand, error) {
	if strings.HasSuffix(s, ", x)") || strings.HasSuffix(s, ",x)") {
		inner := strings.TrimSuffix(s, ")")
		i := strings.LastIndex(inner, ",")
		inner = strings.TrimSpace(inner[1:i])
		val, sym, isSym, err := parseValueOrSymbol(line, inner)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Mode: isa.IndirectX, Value: val, Symbol: sym, IsSymbol: isSym}, nil
	}
	if i := strings.Index(s, ")"); i >= 0 {
		rest := strings.TrimSpace(s[i+1:])
		rest = strings.TrimPrefix(rest, ",")
		rest = strings.TrimSpace(rest)
		if strings.EqualFold(rest, "y") {
			inner := strings.TrimSpace(s[1:i])
			val, sym, isSym, err := parseValueOrSymbol(line, inner)
			if err != nil {
				return Operand{}, err
			}
			return Operand{Mode: isa.IndirectY, Value: val, Symbol: sym, IsSymbol: isSym}, nil
		}
	}
	return Operand{}, errf(line, "indirect addressing requires an index register: %q", s)
}

// parseValueOrSymbol parses a bare numeric literal ($hex, %binary,
// decimal) or, failing that, treats s as a symbol name.
func parseValueOrSymbol(line int, s string) (val int64, sym string, isSym bool, err error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "$"):
		v, e := strconv.ParseInt(s[1:], 16, 64)
		if e != nil {
			return 0, "", false, errf(line, "malformed hex literal %q", s)
		}
		return v, "", false, nil
	case strings.HasPrefix(s, "%"):
		v, e := strconv.ParseInt(s[1:], 2, 64)
		if e != nil {
			return 0, "", false, errf(line, "malformed binary literal %q", s)
		}
		return v, "", false, nil
	case s != "" && isAllDigits(s):
		v, e := strconv.ParseInt(s, 10, 64)
		if e != nil {
			return 0, "", false, errf(line, "malformed decimal literal %q", s)
		}
		return v, "", false, nil
	default:
		return 0, s, true, nil
	}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
