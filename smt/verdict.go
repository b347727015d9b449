package smt

import (
	"errors"
	"fmt"
)

// Verdict is the answer to one check-sat. The numeric values follow the
// usual 1 / 0 / -1 convention for sat / unknown / unsat.
type Verdict int8

const (
	Unsat   Verdict = -1
	Unknown Verdict = 0
	Sat     Verdict = 1
)

func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

var (
	ErrClosed = errors.New("smt: session closed")
	// ErrBroken wraps the failure that left a session unusable.
	ErrBroken = errors.New("smt: session broken")
)

// ProtocolError is a response line that is not a verdict. The conversation is
// out of sync after one; the session refuses further checks.
type ProtocolError struct {
	Line string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smt: unexpected solver response %q", e.Line)
}

func parseVerdict(line string) (Verdict, error) {
	switch line {
	case "sat":
		return Sat, nil
	case "unsat":
		return Unsat, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, &ProtocolError{Line: line}
	}
}
