package passphrase

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func scripted(s *Source, answers ...string) *Source {
	s.isTerminal = func(int) bool { return true }
	s.prompt = io.Discard
	s.readPassword = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	return s
}

func TestGetPrefersEnvironment(t *testing.T) {
	t.Setenv("MAIL_TEST_PASS", "from-env")
	value, err := NewSource("MAIL_TEST_PASS", "signer").Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
}

func TestGetRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("MAIL_TEST_PASS", "  ")
	_, err := NewSource("MAIL_TEST_PASS", "signer").Get()
	require.Error(t, err)
}

func TestGetWithoutTerminal(t *testing.T) {
	s := NewSource("MAIL_TEST_UNSET_PASS", "signer")
	s.isTerminal = func(int) bool { return false }
	_, err := s.Get()
	require.ErrorContains(t, err, "MAIL_TEST_UNSET_PASS")
}

func TestConfirmation(t *testing.T) {
	value, err := scripted(NewSource("", "signer").WithConfirmation(), "pw", "pw").Get()
	require.NoError(t, err)
	require.Equal(t, "pw", value)

	_, err = scripted(NewSource("", "signer").WithConfirmation(), "pw", "other").Get()
	require.ErrorContains(t, err, "do not match")

	_, err = scripted(NewSource("", "signer"), " ").Get()
	require.ErrorContains(t, err, "cannot be empty")
}

func TestGetCachesValue(t *testing.T) {
	s := scripted(NewSource("", "signer"), "first")
	first, err := s.Get()
	require.NoError(t, err)
	second, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
