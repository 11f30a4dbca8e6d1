package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/remote-install/internal/console"
	"github.com/fgeck/remote-install/internal/services/executor"
	"github.com/fgeck/remote-install/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision a remote server interactively",
	Long: `Provision a remote server:
1. Show the local SSH public key to authorize on the remote server
2. Resolve and confirm the remote hostname
3. Wake-on-LAN (if configured)
4. Check key-based SSH access for an administrative account
5. Choose MySQL and Apache, resolve the MySQL root password
6. Run the ansible playbook
7. Verify MySQL access and an Apache restart
8. Send Telegram notification (if configured)`,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	log.Debug().
		Str("config", configFile).
		Str("playbook", cfg.Automation.Playbook).
		Str("credentials_dir", cfg.Credentials.Dir).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	out := console.NewOutput(os.Stdout)
	exec := executor.NewWithStreams(log.Logger, os.Stdin, os.Stdout)
	runnerSvc := runner.New(log.Logger, *cfg, console.NewFormPrompter(), out, exec)

	summary, err := runnerSvc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("remote install failed")
		return err
	}

	if !summary.Cancelled && !summary.Completed() {
		log.Warn().Str("host", summary.Target.Hostname).Msg("remote install finished with failed checks")
	}
	return nil
}
