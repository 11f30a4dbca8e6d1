package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgeck/remote-install/internal/config"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "remote-install",
	Short: "Prepare a remote server to be managed by the hosting front-end",
	Long: `remote-install walks an operator through provisioning a remote server:
  - confirms the hostname and SSH access of an administrative account
  - generates or reuses the MySQL root password for the host
  - runs the ansible playbook that installs MySQL and Apache
  - verifies both services afterwards

Logs are written to stderr, the interactive session to stdout.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional, defaults apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(passwordCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// hostEnvironment collects the local facts configuration defaults derive from.
func hostEnvironment() (config.Environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Environment{}, fmt.Errorf("unable to determine home directory: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	exeDir := "."
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}

	return config.Environment{HomeDir: home, Hostname: hostname, ExecutableDir: exeDir}, nil
}

// loadConfig reads --config when given, otherwise defaults plus environment.
func loadConfig() (*models.ProvisionConfig, error) {
	env, err := hostEnvironment()
	if err != nil {
		return nil, err
	}

	parser := config.NewParser(env)
	if configFile == "" {
		return parser.LoadDefaults()
	}
	return parser.LoadFile(configFile)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
