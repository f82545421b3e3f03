package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrMismatch is returned when a confirmed passphrase is typed differently twice.
var ErrMismatch = errors.New("passphrase: entries do not match")

// Source resolves the passphrase of one keystore, first from an environment
// variable and then from a hidden terminal prompt. The first result, success
// or failure, is cached.
type Source struct {
	envVar    string
	label     string
	confirm   bool
	minLength int

	prompt func(msg string) (string, error)

	once  sync.Once
	value string
	err   error
}

// Option customises a Source.
type Option func(*Source)

// ForNewKeystore is used when the passphrase will encrypt a key being
// created: interactive entry is asked twice and short passphrases are refused.
func ForNewKeystore(minLength int) Option {
	return func(s *Source) {
		s.confirm = true
		s.minLength = minLength
	}
}

// WithPrompt replaces the terminal prompt.
func WithPrompt(prompt func(msg string) (string, error)) Option {
	return func(s *Source) {
		if prompt != nil {
			s.prompt = prompt
		}
	}
}

// NewSource builds a source for the keystore named by label, such as
// "operator keystore" or "signer keystore ./alice.json".
func NewSource(envVar, label string, opts ...Option) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "keystore"
	}
	s := &Source{envVar: strings.TrimSpace(envVar), label: label, prompt: terminalPrompt}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the passphrase, resolving it on the first call.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s: %s is set but empty", s.label, s.envVar)
			}
			return value, s.checkLength(value)
		}
	}

	value, err := s.prompt(fmt.Sprintf("Passphrase for %s: ", s.label))
	if err != nil {
		if s.envVar != "" {
			return "", fmt.Errorf("%s: export %s or run from a terminal: %w", s.label, s.envVar, err)
		}
		return "", fmt.Errorf("%s: %w", s.label, err)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s: passphrase cannot be empty", s.label)
	}
	if err := s.checkLength(value); err != nil {
		return "", err
	}
	if s.confirm {
		again, err := s.prompt(fmt.Sprintf("Repeat passphrase for %s: ", s.label))
		if err != nil {
			return "", fmt.Errorf("%s: %w", s.label, err)
		}
		if again != value {
			return "", fmt.Errorf("%s: %w", s.label, ErrMismatch)
		}
	}
	return value, nil
}

func (s *Source) checkLength(value string) error {
	if s.minLength > 0 && len(value) < s.minLength {
		return fmt.Errorf("%s: passphrase shorter than %d characters", s.label, s.minLength)
	}
	return nil
}

func terminalPrompt(msg string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available")
	}
	fmt.Fprint(os.Stderr, msg)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
