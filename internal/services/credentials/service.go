// Package credentials generates and persists per-host database passwords.
package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Alphabet excludes the confusable characters 0, O, 1, I and l.
const Alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultLength is the length of generated passwords.
const DefaultLength = 16

const fileSuffix = "-sql-password"

// Service defines the interface for credential operations.
type Service interface {
	Resolve(host string) (password string, found bool, err error)
	Generate(length int) (string, error)
	Persist(host, password string) error
	Path(host string) (string, error)
}

// Impl implements the credentials Service interface.
type Impl struct {
	dir    string
	random io.Reader
	logger zerolog.Logger
}

// New creates a credential store rooted at dir.
func New(logger zerolog.Logger, dir string) *Impl {
	return NewWithRandom(logger, dir, rand.Reader)
}

// NewWithRandom creates a credential store with a custom random source (for testing).
func NewWithRandom(logger zerolog.Logger, dir string, random io.Reader) *Impl {
	return &Impl{
		dir:    dir,
		random: random,
		logger: logger,
	}
}

// Path returns the credential file location for host.
func (s *Impl) Path(host string) (string, error) {
	if host == "" {
		return "", errors.New("host is required")
	}
	if strings.ContainsAny(host, `/\`) || host == "." || host == ".." {
		return "", fmt.Errorf("invalid host name %q", host)
	}
	return filepath.Join(s.dir, host+fileSuffix), nil
}

// Resolve returns the stored password for host, or a freshly generated one
// when none exists. The generated value is not persisted.
func (s *Impl) Resolve(host string) (string, bool, error) {
	path, err := s.Path(host)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is built from a validated host name
	switch {
	case err == nil:
		password := strings.TrimSpace(string(data))
		if password != "" {
			s.logger.Debug().Str("path", path).Msg("reusing stored password")
			return password, true, nil
		}
		s.logger.Warn().Str("path", path).Msg("stored password is empty, generating a new one")
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", false, fmt.Errorf("failed to read password file %s: %w", path, err)
	}

	password, err := s.Generate(DefaultLength)
	if err != nil {
		return "", false, err
	}
	return password, false, nil
}

// Generate draws length characters uniformly from Alphabet.
func (s *Impl) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	limit := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(s.random, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// Persist writes the password for host, replacing any previous value.
func (s *Impl) Persist(host, password string) error {
	path, err := s.Path(host)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(password), 0o600); err != nil {
		return fmt.Errorf("failed to write password file: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("database password saved")
	return nil
}
