package models

import "time"

// ProvisionRequest is the parameter payload handed to the automation tool.
// Field names match the variables the playbook expects.
type ProvisionRequest struct {
	SSHPublicKey      string `json:"aegir_ssh_key"`
	MySQLRootPassword string `json:"mysql_root_password"`
	ServerHostname    string `json:"server_hostname"`
	ServerIP          string `json:"server_ip"`
	MySQLClientIP     string `json:"mysql_client_ip"`
	InstallApache     bool   `json:"install_apache"`
	InstallMySQL      bool   `json:"install_mysql"`
}

// ProvisionInput collects the operator answers needed to build an invocation.
type ProvisionInput struct {
	Target      ServerTarget
	Admin       AdminIdentity
	Credentials ServiceCredentials
	PublicKey   string
}

// Invocation is the fully assembled automation run.
type Invocation struct {
	Inventory     string
	InventoryPath string
	Request       ProvisionRequest
	Command       Command
}

// Command describes a process as an argument vector.
type Command struct {
	Name        string
	Args        []string
	Env         []string // appended to the current environment
	Interactive bool     // attach the operator's stdin
	Silent      bool     // buffer output without echoing it
	Secret      string   // masked wherever the command line is rendered
}

// ProcessResult holds the outcome of a finished process.
type ProcessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}
