package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fgeck/remote-install/internal/services/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, credDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remote-install.yaml")
	content := "credentials:\n  dir: \"" + credDir + "\"\ndatabase:\n  user: \"dbadmin\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configFile = ""
		passwordHost = ""
		passwordLength = credentials.DefaultLength
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeConfig(t, "/srv/creds")

	out, err := execute(t, "validate", "--config", cfgPath, "--quiet")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid!")
	assert.Contains(t, out, "MySQL user: dbadmin")
	assert.Contains(t, out, "Credentials dir: /srv/creds")
	assert.Contains(t, out, "Tool: ansible-playbook")
	assert.Contains(t, out, "Wake-on-LAN: false")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--quiet")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestPasswordCommand_Generate(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	out, err := execute(t, "password", "--config", cfgPath, "--length", "24", "--quiet")

	require.NoError(t, err)
	password := strings.TrimSpace(out)
	assert.Len(t, password, 24)
	for _, r := range password {
		assert.Contains(t, credentials.Alphabet, string(r))
	}
}

func TestPasswordCommand_StoredHost(t *testing.T) {
	credDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(credDir, "db1.example.com-sql-password"), []byte("Tr2xKq9mPzW4nVb7\n"), 0o600))
	cfgPath := writeConfig(t, credDir)

	out, err := execute(t, "password", "--config", cfgPath, "--host", "db1.example.com", "--quiet")

	require.NoError(t, err)
	assert.Equal(t, "Tr2xKq9mPzW4nVb7", strings.TrimSpace(out))
}

func TestPasswordCommand_NoStoredHost(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "password", "--config", cfgPath, "--host", "db9.example.com", "--quiet")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored password for db9.example.com")
}
