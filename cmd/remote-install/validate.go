package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Load the configuration (file, defaults and environment) and print the effective values without contacting any server.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("configuration validation failed")
		return err
	}

	w := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(w, "Configuration is valid!")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Public key: %s\n", cfg.SSH.PublicKeyPath)
	fmt.Fprintf(w, "  Home: %s\n", cfg.HomeDir)
	fmt.Fprintf(w, "  Front-end: %s\n", cfg.Frontend.URL)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Automation:")
	fmt.Fprintf(w, "  Tool: %s\n", cfg.Automation.Tool)
	fmt.Fprintf(w, "  Playbook: %s\n", cfg.Automation.Playbook)
	fmt.Fprintf(w, "  Inventory: %s\n", cfg.Automation.InventoryPath)
	fmt.Fprintf(w, "  Force color: %v\n", cfg.Automation.ForceColor)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Services:")
	fmt.Fprintf(w, "  Credentials dir: %s\n", cfg.Credentials.Dir)
	fmt.Fprintf(w, "  MySQL user: %s\n", cfg.Database.User)
	fmt.Fprintf(w, "  Web server user: %s\n", cfg.WebServer.User)
	fmt.Fprintf(w, "  Restart hint: %s\n", cfg.WebServer.RestartHintPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optional Features:")
	fmt.Fprintf(w, "  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Fprintf(w, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WOL Configuration:")
		fmt.Fprintf(w, "  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Fprintf(w, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		fmt.Fprintf(w, "  SSH Port: %d\n", cfg.WOL.SSHPort)
		fmt.Fprintf(w, "  Timeout: %s\n", cfg.WOL.Timeout)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Telegram Configuration:")
		fmt.Fprintf(w, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(w, "  Bot Token: (configured)\n")
	}

	return nil
}
