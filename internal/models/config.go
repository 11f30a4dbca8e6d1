// Package models contains the data structures used throughout remote-install.
package models

// ProvisionConfig holds the complete configuration for a provisioning run.
type ProvisionConfig struct {
	SSH         SSHConfig
	Automation  AutomationConfig
	Credentials CredentialsConfig
	Database    DatabaseConfig
	WebServer   WebServerConfig
	Frontend    FrontendConfig
	HomeDir     string
	WOL         *WOLConfig      // nil if not configured
	Telegram    *TelegramConfig // nil if not configured
}

// SSHConfig holds local SSH key settings.
type SSHConfig struct {
	PublicKeyPath string
}

// AutomationConfig describes how the external automation tool is invoked.
type AutomationConfig struct {
	Tool          string // binary name, e.g. ansible-playbook
	Playbook      string // path to the playbook
	InventoryPath string // where the generated inventory is written
	ForceColor    bool   // sets ANSIBLE_FORCE_COLOR for the run
}

// CredentialsConfig holds the persisted credential location.
type CredentialsConfig struct {
	Dir string
}

// DatabaseConfig holds settings for the post-provision database check.
type DatabaseConfig struct {
	User string
}

// WebServerConfig holds settings for the post-provision web server check.
type WebServerConfig struct {
	User            string // remote account allowed to restart the web server
	RestartHintPath string // remote file holding the restart binary
}

// FrontendConfig holds the front-end location shown after a run.
type FrontendConfig struct {
	URL string
}
