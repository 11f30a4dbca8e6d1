// Package runner drives one remote server install from start to finish.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/remote-install/internal/console"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/fgeck/remote-install/internal/services/access"
	"github.com/fgeck/remote-install/internal/services/credentials"
	"github.com/fgeck/remote-install/internal/services/executor"
	"github.com/fgeck/remote-install/internal/services/playbook"
	"github.com/fgeck/remote-install/internal/services/sshkey"
	"github.com/fgeck/remote-install/internal/services/telegram"
	"github.com/fgeck/remote-install/internal/services/verifier"
	"github.com/fgeck/remote-install/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the install workflow.
type Service interface {
	Run(ctx context.Context, cfg models.ProvisionConfig) (*models.ProvisionSummary, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	accessSvc      access.Service
	credentialsSvc credentials.Service
	executor       executor.Service
	verifierSvc    verifier.Service
	wolSvc         wol.Service
	telegramSvc    telegram.Service
	prompter       console.Prompter
	out            *console.Output
	logger         zerolog.Logger
}

// New creates a runner wired to the real services.
func New(
	logger zerolog.Logger,
	cfg models.ProvisionConfig,
	prompter console.Prompter,
	out *console.Output,
	exec executor.Service,
) *Impl {
	return &Impl{
		accessSvc:      access.New(logger, prompter, out, exec),
		credentialsSvc: credentials.New(logger, cfg.Credentials.Dir),
		executor:       exec,
		verifierSvc:    verifier.New(logger, out, exec, cfg.Database, cfg.WebServer),
		wolSvc:         wol.New(logger),
		telegramSvc:    telegram.New(logger),
		prompter:       prompter,
		out:            out,
		logger:         logger,
	}
}

// NewWithServices creates a runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	prompter console.Prompter,
	out *console.Output,
	exec executor.Service,
	accessSvc access.Service,
	credentialsSvc credentials.Service,
	verifierSvc verifier.Service,
	wolSvc wol.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		accessSvc:      accessSvc,
		credentialsSvc: credentialsSvc,
		executor:       exec,
		verifierSvc:    verifierSvc,
		wolSvc:         wolSvc,
		telegramSvc:    telegramSvc,
		prompter:       prompter,
		out:            out,
		logger:         logger,
	}
}

// Run executes the complete install workflow. A cancelled run returns a
// summary with Cancelled set and a nil error.
func (s *Impl) Run(ctx context.Context, cfg models.ProvisionConfig) (*models.ProvisionSummary, error) {
	startTime := time.Now()
	summary := &models.ProvisionSummary{
		DatabaseUser: cfg.Database.User,
		FrontendURL:  cfg.Frontend.URL,
	}

	err := s.run(ctx, cfg, summary)

	// Nothing worth reporting before a host was chosen.
	if cfg.Telegram != nil && summary.Target.Hostname != "" {
		s.sendNotification(ctx, *cfg.Telegram, summary, startTime, err)
	}

	s.logger.Info().
		Str("host", summary.Target.Hostname).
		Bool("cancelled", summary.Cancelled).
		Bool("completed", err == nil && summary.Completed()).
		Dur("duration", time.Since(startTime)).
		Msg("install run finished")

	if err != nil {
		return nil, err
	}
	return summary, nil
}

//nolint:gocognit,gocyclo // install workflow has multiple steps by design
func (s *Impl) run(ctx context.Context, cfg models.ProvisionConfig, summary *models.ProvisionSummary) error {
	s.out.Title("Remote Server Installer")
	s.out.Info("Welcome to the Remote Server Installer!", "")
	s.out.Blank()
	s.out.Info("Root Access:", "To provision your server, we need root access.")

	// Step 1: Public key
	key, err := sshkey.Load(cfg.SSH.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("we must have an SSH keypair to provision the new server: %w", err)
	}
	s.showPublicKey(key)

	// Step 2: Target host
	target, err := s.accessSvc.ResolveTarget(ctx)
	if err != nil {
		return s.stop(summary, err, true)
	}
	summary.Target = *target

	// Step 3: Wake-on-LAN (if configured)
	if cfg.WOL != nil {
		if err := s.runWOL(ctx, *cfg.WOL, target.ResolvedIP); err != nil {
			return err
		}
	}

	// Step 4: Administrative access
	username, err := s.accessSvc.AskUsername(ctx)
	if err != nil {
		return s.stop(summary, err, true)
	}
	summary.Admin.Username = username

	admin, err := s.accessSvc.VerifyAccess(ctx, *target, username)
	if err != nil {
		// VerifyAccess prints its own cancellation notice.
		return s.stop(summary, err, false)
	}
	summary.Admin = *admin

	// Step 5: Automation tool on PATH
	if err := s.checkTool(ctx, cfg.Automation.Tool); err != nil {
		return err
	}

	// Step 6: Service selection and credentials
	creds, err := s.selectServices(ctx, target.Hostname)
	if err != nil {
		return s.stop(summary, err, true)
	}
	summary.Credentials = *creds

	// Step 7: Automation run
	inv, err := playbook.Build(models.ProvisionInput{
		Target:      *target,
		Admin:       *admin,
		Credentials: *creds,
		PublicKey:   key.Authorized,
	}, cfg.Automation, cfg.HomeDir)
	if err != nil {
		return fmt.Errorf("failed to build automation command: %w", err)
	}
	if err := playbook.WriteInventory(inv); err != nil {
		return err
	}

	skipped, err := s.runAutomation(ctx, inv, *admin)
	if err != nil {
		return s.stop(summary, err, true)
	}

	// Step 8: Restart hint
	restart, known := s.verifierSvc.RestartCommand(ctx, admin.Username, target.Hostname)
	summary.RestartCommand = restart

	// Step 9: Persist a freshly generated password
	if creds.InstallMySQL && !creds.Reused {
		if err := s.credentialsSvc.Persist(target.Hostname, creds.MySQLPassword); err != nil {
			return fmt.Errorf("failed to save MySQL password: %w", err)
		}
	}

	// Step 10: Verification
	summary.Report = s.verifierSvc.Verify(ctx, verifier.Input{
		Target:         *target,
		Credentials:    *creds,
		RestartCommand: restart,
		RestartKnown:   known,
		Skipped:        skipped,
	})

	s.printSummary(summary)
	return nil
}

// stop ends the run. Cancellation is recorded in the summary, anything else
// propagates.
func (s *Impl) stop(summary *models.ProvisionSummary, err error, notify bool) error {
	if !errors.Is(err, models.ErrCancelled) {
		return err
	}
	if notify {
		s.out.Blank()
		s.out.Error("Remote Server Install Cancelled.", "")
		s.out.Blank()
	}
	s.logger.Info().Str("host", summary.Target.Hostname).Msg("install cancelled by operator")
	summary.Cancelled = true
	return nil
}

func (s *Impl) showPublicKey(key *models.PublicKey) {
	s.out.Info("SSH Key Found:", "Found an SSH key at %s", s.out.Comment(key.Path))
	s.out.Line("%s %s", key.Type, s.out.Comment(key.Fingerprint))
	s.out.Blank()
	s.out.Line("To continue, add the following public key to the remote server at %s:", s.out.Comment("/root/.ssh/authorized_keys"))
	s.out.Line("%s", s.out.Comment(key.Authorized))
	s.out.Blank()
}

func (s *Impl) runWOL(ctx context.Context, cfg models.WOLConfig, targetIP string) error {
	s.out.Info("Wake-on-LAN:", "Waking %s and waiting for SSH...", s.out.Comment(cfg.MACAddress))

	result, err := s.wolSvc.Wake(ctx, cfg, targetIP)
	if err != nil {
		return fmt.Errorf("wake-on-lan failed: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("wake-on-lan failed: %w", result.Error)
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("wake-on-lan completed")
	s.out.Blank()
	return nil
}

func (s *Impl) checkTool(ctx context.Context, tool string) error {
	result, err := s.executor.Run(ctx, models.Command{Name: "which", Args: []string{tool}, Silent: true})
	if err != nil || strings.TrimSpace(result.Stdout) == "" {
		return fmt.Errorf("command %q not found. Please install ansible and try again", tool)
	}
	s.logger.Debug().Str("tool", strings.TrimSpace(result.Stdout)).Msg("automation tool found")
	return nil
}

func (s *Impl) selectServices(ctx context.Context, hostname string) (*models.ServiceCredentials, error) {
	creds := &models.ServiceCredentials{}

	var err error
	if creds.InstallMySQL, err = s.prompter.Confirm(ctx, "Install MySQL?", true); err != nil {
		return nil, err
	}
	if creds.InstallApache, err = s.prompter.Confirm(ctx, "Install Apache?", true); err != nil {
		return nil, err
	}

	if creds.InstallMySQL {
		password, found, err := s.credentialsSvc.Resolve(hostname)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve MySQL password: %w", err)
		}
		creds.MySQLPassword = password
		creds.Reused = found
		if found {
			path, _ := s.credentialsSvc.Path(hostname)
			s.out.Line("MySQL Password found at %s", s.out.Comment(path))
		} else {
			s.out.Line("MySQL Password generated as %s.", s.out.Comment(password))
		}
	}
	s.out.Blank()

	return creds, nil
}

// runAutomation shows the command and runs it if the operator agrees. It
// reports whether the run was skipped.
func (s *Impl) runAutomation(ctx context.Context, inv *models.Invocation, admin models.AdminIdentity) (bool, error) {
	quoted := executor.QuoteCommand(inv.Command)

	s.out.Info("Provision Server:", "Run Ansible Playbook")
	s.out.Line("Run the following command? You may cancel and run the command manually now if you wish.")
	if !admin.IsSuperUser() {
		s.out.Line("When asked for SUDO password, enter the password for %s.", s.out.Comment(admin.Username))
	}
	s.out.Line("%s", s.out.Comment(quoted))

	ok, err := s.prompter.Confirm(ctx, "Run this command?", true)
	if err != nil {
		return true, err
	}
	if !ok {
		s.out.Blank()
		return true, nil
	}

	result, err := s.executor.Run(ctx, inv.Command)
	if err != nil {
		return false, fmt.Errorf("failed to run automation: %w", err)
	}
	if result.ExitCode != 0 {
		s.logger.Warn().
			Int("exit_code", result.ExitCode).
			Str("command", inv.Command.Name).
			Msg("automation exited with non-zero status")
		s.out.Warn("WARNING:", "%s exited with code %d. Checking services anyway.", inv.Command.Name, result.ExitCode)
	}
	s.out.Blank()
	return false, nil
}

func (s *Impl) printSummary(summary *models.ProvisionSummary) {
	s.out.Blank()
	if summary.Completed() {
		s.out.Info("Remote Server Setup Complete", "")
	} else {
		s.out.Error("Remote Server did not complete!", "")
	}

	s.out.Line("%s %s", s.out.Comment("Hostname:"), summary.Target.Hostname)
	if summary.Credentials.InstallMySQL {
		s.out.Line("%s %s", s.out.Comment("MySQL username:"), summary.DatabaseUser)
		s.out.Line("%s %s", s.out.Comment("MySQL password:"), summary.Credentials.MySQLPassword)
	}
	s.out.Line("%s %s", s.out.Comment("Apache Restart Command:"), summary.RestartCommand)
	s.out.Blank()

	destination := summary.Admin.Username + "@" + summary.Target.Hostname
	s.out.Line("%s You should revoke access to %s to secure your system.", s.out.Comment("WARNING:"), s.out.Comment(destination))
	s.out.Blank()

	s.out.Line("You must now add the server to the front-end.")
	s.out.Line("Visit %s to create a new server.", summary.FrontendURL)
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.TelegramConfig,
	summary *models.ProvisionSummary,
	startTime time.Time,
	runErr error,
) {
	msg := models.TelegramMessage{
		Summary:   *summary,
		StartTime: startTime,
		Duration:  time.Since(startTime),
		Error:     runErr,
	}

	result, err := s.telegramSvc.SendNotification(ctx, cfg, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("telegram notification failed")
		return
	}

	s.logger.Info().Msg("telegram notification sent")
}
