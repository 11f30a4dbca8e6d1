package playbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fgeck/remote-install/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(username string) models.ProvisionInput {
	return models.ProvisionInput{
		Target: models.ServerTarget{Hostname: "db1.example.com", ResolvedIP: "10.0.0.5"},
		Admin:  models.AdminIdentity{Username: username, ClientIP: "10.0.0.9"},
		Credentials: models.ServiceCredentials{
			MySQLPassword: "Tr2xKq9mPzW4nVb7",
			InstallMySQL:  true,
			InstallApache: true,
		},
		PublicKey: "ssh-ed25519 AAAAC3Nza operator@workstation",
	}
}

func testConfig() models.AutomationConfig {
	return models.AutomationConfig{
		Tool:          "ansible-playbook",
		Playbook:      "/opt/devshop/playbook-remote.yml",
		InventoryPath: "/tmp/inventory-remote",
		ForceColor:    true,
	}
}

func TestBuild_Root(t *testing.T) {
	inv, err := Build(testInput("root"), testConfig(), "/home/operator")

	require.NoError(t, err)
	assert.Equal(t, "db1.example.com ansible_ssh_user=root", inv.Inventory)
	assert.Equal(t, "/tmp/inventory-remote", inv.InventoryPath)
	assert.Equal(t, "ansible-playbook", inv.Command.Name)
	require.Len(t, inv.Command.Args, 5)
	assert.Equal(t, []string{"-i", "/tmp/inventory-remote", "/opt/devshop/playbook-remote.yml", "--extra-vars"}, inv.Command.Args[:4])
	assert.False(t, inv.Command.Interactive)
	assert.Equal(t, []string{"ANSIBLE_FORCE_COLOR=true", "HOME=/home/operator"}, inv.Command.Env)
}

func TestBuild_NonRootEscalates(t *testing.T) {
	inv, err := Build(testInput("deploy"), testConfig(), "/home/operator")

	require.NoError(t, err)
	assert.Equal(t, "db1.example.com ansible_ssh_user=deploy", inv.Inventory)
	require.Len(t, inv.Command.Args, 8)
	assert.Equal(t, []string{"--become", "--become-user=root", "--ask-become-pass"}, inv.Command.Args[5:])
	assert.True(t, inv.Command.Interactive)
}

func TestBuild_ExtraVarsPayload(t *testing.T) {
	inv, err := Build(testInput("root"), testConfig(), "")
	require.NoError(t, err)

	var vars map[string]any
	require.NoError(t, json.Unmarshal([]byte(inv.Command.Args[4]), &vars))

	assert.Equal(t, map[string]any{
		"aegir_ssh_key":       "ssh-ed25519 AAAAC3Nza operator@workstation",
		"mysql_root_password": "Tr2xKq9mPzW4nVb7",
		"server_hostname":     "db1.example.com",
		"server_ip":           "10.0.0.5",
		"mysql_client_ip":     "10.0.0.9",
		"install_apache":      true,
		"install_mysql":       true,
	}, vars)
	assert.Empty(t, inv.Command.Env, "no color and no home configured")
}

func TestBuild_NoMySQLDropsPassword(t *testing.T) {
	in := testInput("root")
	in.Credentials.InstallMySQL = false

	inv, err := Build(in, testConfig(), "")

	require.NoError(t, err)
	assert.Empty(t, inv.Request.MySQLRootPassword)
	assert.False(t, inv.Request.InstallMySQL)
}

func TestBuild_MissingFields(t *testing.T) {
	in := testInput("root")
	in.Target.Hostname = ""
	_, err := Build(in, testConfig(), "")
	assert.Error(t, err)

	in = testInput("")
	_, err = Build(in, testConfig(), "")
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Playbook = ""
	_, err = Build(testInput("root"), cfg, "")
	assert.Error(t, err)
}

func TestWriteInventory(t *testing.T) {
	cfg := testConfig()
	cfg.InventoryPath = filepath.Join(t.TempDir(), "nested", "inventory-remote")
	inv, err := Build(testInput("root"), cfg, "")
	require.NoError(t, err)

	require.NoError(t, WriteInventory(inv))

	data, err := os.ReadFile(cfg.InventoryPath)
	require.NoError(t, err)
	assert.Equal(t, "db1.example.com ansible_ssh_user=root", string(data))
}

func TestWriteInventory_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := testConfig()
	cfg.InventoryPath = filepath.Join(blocker, "inventory-remote")
	inv, err := Build(testInput("root"), cfg, "")
	require.NoError(t, err)

	err = WriteInventory(inv)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to write inventory file")
}
