// Package errors classifies engine failures so callers can decide whether a
// rejected operation is worth resubmitting.
package errors

import stderrors "errors"

// Kind groups rejection reasons by the action a caller has to take.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed input; resubmit with corrected values.
	KindValidation
	// KindPhase covers operations attempted in the wrong lifecycle phase.
	KindPhase
	// KindAuthorization covers callers lacking the required role.
	KindAuthorization
	// KindEconomic covers insufficient value and slippage bounds.
	KindEconomic
	// KindInvariant covers programmer errors such as zero targets or double
	// initialisation.
	KindInvariant
	// KindNotFound covers lookups of unknown instances.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPhase:
		return "phase"
	case KindAuthorization:
		return "authorization"
	case KindEconomic:
		return "economic"
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified sentinel. Engines declare them at package level and
// wrap them with fmt.Errorf("%w") when extra context helps.
type Error struct {
	kind Kind
	msg  string
}

// New constructs a classified sentinel error.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// KindOf walks the wrap chain and returns the first classification found.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the supplied classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
