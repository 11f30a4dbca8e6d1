// Package playbook assembles the automation tool invocation.
package playbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fgeck/remote-install/internal/models"
)

// EscalationFlags ask the automation tool to become root, prompting for
// the sudo password at execution time.
var EscalationFlags = []string{"--become", "--become-user=root", "--ask-become-pass"}

// Build turns the collected answers into an automation run. It has no side effects.
func Build(in models.ProvisionInput, cfg models.AutomationConfig, homeDir string) (*models.Invocation, error) {
	if in.Target.Hostname == "" {
		return nil, errors.New("target hostname is required")
	}
	if in.Admin.Username == "" {
		return nil, errors.New("admin username is required")
	}
	if cfg.Tool == "" || cfg.Playbook == "" || cfg.InventoryPath == "" {
		return nil, errors.New("automation tool, playbook and inventory path are required")
	}

	req := Request(in)
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extra vars: %w", err)
	}

	args := []string{"-i", cfg.InventoryPath, cfg.Playbook, "--extra-vars", string(payload)}
	interactive := false
	if !in.Admin.IsSuperUser() {
		args = append(args, EscalationFlags...)
		interactive = true
	}

	var env []string
	if cfg.ForceColor {
		env = append(env, "ANSIBLE_FORCE_COLOR=true")
	}
	if homeDir != "" {
		env = append(env, "HOME="+homeDir)
	}

	return &models.Invocation{
		Inventory:     Inventory(in.Target.Hostname, in.Admin.Username),
		InventoryPath: cfg.InventoryPath,
		Request:       req,
		Command: models.Command{
			Name:        cfg.Tool,
			Args:        args,
			Env:         env,
			Interactive: interactive,
		},
	}, nil
}

// Request builds the parameter payload for the playbook.
func Request(in models.ProvisionInput) models.ProvisionRequest {
	password := ""
	if in.Credentials.InstallMySQL {
		password = in.Credentials.MySQLPassword
	}
	return models.ProvisionRequest{
		SSHPublicKey:      in.PublicKey,
		MySQLRootPassword: password,
		ServerHostname:    in.Target.Hostname,
		ServerIP:          in.Target.ResolvedIP,
		MySQLClientIP:     in.Admin.ClientIP,
		InstallApache:     in.Credentials.InstallApache,
		InstallMySQL:      in.Credentials.InstallMySQL,
	}
}

// Inventory returns the single-host inventory line.
func Inventory(hostname, username string) string {
	return fmt.Sprintf("%s ansible_ssh_user=%s", hostname, username)
}

// WriteInventory writes the inventory file, creating its directory if needed.
func WriteInventory(inv *models.Invocation) error {
	if err := os.MkdirAll(filepath.Dir(inv.InventoryPath), 0o750); err != nil {
		return fmt.Errorf("unable to write inventory file %s: %w", inv.InventoryPath, err)
	}
	if err := os.WriteFile(inv.InventoryPath, []byte(inv.Inventory), 0o600); err != nil {
		return fmt.Errorf("unable to write inventory file %s: %w", inv.InventoryPath, err)
	}
	return nil
}
