package token

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxNameLength   = 64
	maxSymbolLength = 11
)

// NormalizeName trims the supplied name and rejects empty, overlong or
// non-printable values.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidName)
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("%w: name longer than %d bytes", ErrInvalidName, maxNameLength)
	}
	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return "", fmt.Errorf("%w: name contains non-printable characters", ErrInvalidName)
		}
	}
	return trimmed, nil
}

// NormalizeSymbol trims and upper-cases the supplied ticker. Only ASCII
// letters and digits are accepted.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("%w: symbol required", ErrInvalidSymbol)
	}
	if len(trimmed) > maxSymbolLength {
		return "", fmt.Errorf("%w: symbol longer than %d characters", ErrInvalidSymbol, maxSymbolLength)
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: symbol must be alphanumeric", ErrInvalidSymbol)
		}
	}
	return trimmed, nil
}
