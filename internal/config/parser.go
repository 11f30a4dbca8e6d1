// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/remote-install/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// REMOTE_INSTALL_DATABASE_USER.
const EnvPrefix = "REMOTE_INSTALL"

// Environment carries the ambient host facts used to derive defaults.
type Environment struct {
	HomeDir       string
	Hostname      string
	ExecutableDir string
}

// Parser handles configuration file parsing.
type Parser struct {
	v   *viper.Viper
	env Environment
}

// NewParser creates a new configuration parser.
func NewParser(env Environment) *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ssh.public_key_path", filepath.Join(env.HomeDir, ".ssh", "id_rsa.pub"))
	v.SetDefault("automation.tool", "ansible-playbook")
	v.SetDefault("automation.playbook", filepath.Join(env.ExecutableDir, "playbook-remote.yml"))
	v.SetDefault("automation.inventory_path", "/tmp/inventory-remote")
	v.SetDefault("automation.force_color", true)
	v.SetDefault("credentials.dir", "/var/aegir/.servers")
	v.SetDefault("database.user", "aegir_root")
	v.SetDefault("webserver.user", "aegir")
	v.SetDefault("webserver.restart_hint_path", "/var/aegir/.apache-restart-command")
	v.SetDefault("frontend.url", fmt.Sprintf("http://%s/node/add/server", env.Hostname))

	return &Parser{v: v, env: env}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.ProvisionConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.ProvisionConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadDefaults builds a configuration from defaults and environment
// overrides alone.
func (p *Parser) LoadDefaults() (*models.ProvisionConfig, error) {
	return p.parse()
}

func (p *Parser) parse() (*models.ProvisionConfig, error) {
	cfg := &models.ProvisionConfig{
		SSH: models.SSHConfig{
			PublicKeyPath: p.expandEnv(p.v.GetString("ssh.public_key_path")),
		},
		Automation: models.AutomationConfig{
			Tool:          p.v.GetString("automation.tool"),
			Playbook:      p.expandEnv(p.v.GetString("automation.playbook")),
			InventoryPath: p.expandEnv(p.v.GetString("automation.inventory_path")),
			ForceColor:    p.v.GetBool("automation.force_color"),
		},
		Credentials: models.CredentialsConfig{
			Dir: p.expandEnv(p.v.GetString("credentials.dir")),
		},
		Database: models.DatabaseConfig{
			User: p.v.GetString("database.user"),
		},
		WebServer: models.WebServerConfig{
			User:            p.v.GetString("webserver.user"),
			RestartHintPath: p.expandEnv(p.v.GetString("webserver.restart_hint_path")),
		},
		Frontend: models.FrontendConfig{
			URL: p.expandEnv(p.v.GetString("frontend.url")),
		},
		HomeDir: p.env.HomeDir,
	}

	// Parse optional WOL config.
	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:   p.v.GetString("wol.mac_address"),
			BroadcastIP:  p.v.GetString("wol.broadcast_ip"),
			SSHPort:      p.v.GetInt("wol.ssh_port"),
			Timeout:      p.v.GetDuration("wol.timeout"),
			PollInterval: p.v.GetDuration("wol.poll_interval"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}
		if _, err := net.ParseMAC(cfg.WOL.MACAddress); err != nil {
			return nil, fmt.Errorf("wol.mac_address is invalid: %w", err)
		}

		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.SSHPort == 0 {
			cfg.WOL.SSHPort = 22
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 10 * time.Second
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.ProvisionConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	required := []struct {
		key   string
		value string
	}{
		{"ssh.public_key_path", cfg.SSH.PublicKeyPath},
		{"automation.tool", cfg.Automation.Tool},
		{"automation.playbook", cfg.Automation.Playbook},
		{"automation.inventory_path", cfg.Automation.InventoryPath},
		{"credentials.dir", cfg.Credentials.Dir},
		{"database.user", cfg.Database.User},
		{"webserver.user", cfg.WebServer.User},
		{"webserver.restart_hint_path", cfg.WebServer.RestartHintPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	if strings.ContainsAny(cfg.Automation.Tool, " \t/") {
		return fmt.Errorf("automation.tool must be a bare command name, got %q", cfg.Automation.Tool)
	}

	return nil
}
