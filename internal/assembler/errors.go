package assembler

import "fmt"

// Error is an assembler diagnostic: a message and the source line it
// was raised at. Format matches spec §7's prefixed diagnostic shape,
// generalized from "Compiler" to "Assembler".
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("** Assembler Error: %s (line %d)", e.Message, e.Line)
}

func errf(line int, format string, args ...any) *Error {
	return &Error{Line: line, Message: fmt.Sprintf(format, args...)}
}
