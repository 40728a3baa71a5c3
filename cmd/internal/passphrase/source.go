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

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting the operator. The value is cached after the first successful
// retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar  string
	label   string
	confirm bool

	// terminal hooks, replaced in tests
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
	prompt       io.Writer

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// interactively prompting on the terminal. label names the key in prompts.
func NewSource(envVar, label string) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "keystore"
	}
	return &Source{
		envVar:       strings.TrimSpace(envVar),
		label:        label,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
		prompt:       os.Stderr,
	}
}

// WithConfirmation makes interactive prompts ask twice. Used when creating keys.
func (s *Source) WithConfirmation() *Source {
	s.confirm = true
	return s
}

// Get returns the cached passphrase or resolves it if this is the first call.
// When the environment variable is set the exact value is used; otherwise the
// operator is prompted on stderr. Whitespace-only passphrases are rejected.
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
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}

	fd := int(os.Stdin.Fd())
	if !s.isTerminal(fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("%s passphrase required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s passphrase required and no terminal available", s.label)
	}

	passphrase, err := s.read(fd, fmt.Sprintf("Enter %s passphrase: ", s.label))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(passphrase) == "" {
		return "", fmt.Errorf("%s passphrase cannot be empty", s.label)
	}
	if s.confirm {
		again, err := s.read(fd, "Repeat passphrase: ")
		if err != nil {
			return "", err
		}
		if again != passphrase {
			return "", errors.New("passphrases do not match")
		}
	}
	return passphrase, nil
}

func (s *Source) read(fd int, prompt string) (string, error) {
	fmt.Fprint(s.prompt, prompt)
	bytes, err := s.readPassword(fd)
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(bytes), nil
}
