// Package sshkey loads the operator's local SSH public key.
package sshkey

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fgeck/remote-install/internal/models"
	"golang.org/x/crypto/ssh"
)

// ErrKeyNotFound is returned when no public key exists at the configured path.
var ErrKeyNotFound = errors.New("public key not found")

// Load reads and parses an authorized_keys formatted public key.
func Load(path string) (*models.PublicKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: unable to find a public key at %q, an SSH keypair is needed to provision the new server", ErrKeyNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read public key %s: %w", path, err)
	}

	key, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid public key %s: %w", path, err)
	}
	key.Path = path
	return key, nil
}

// Parse parses a single authorized_keys line.
func Parse(data []byte) (*models.PublicKey, error) {
	pub, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &models.PublicKey{
		Authorized:  strings.TrimSpace(string(data)),
		Type:        pub.Type(),
		Fingerprint: ssh.FingerprintSHA256(pub),
		Comment:     comment,
	}, nil
}
