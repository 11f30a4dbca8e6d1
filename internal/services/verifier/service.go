// Package verifier re-checks the provisioned services after automation ran.
//
// Each check is isolated: a failure is recorded in the report and never
// prevents the remaining checks from running.
package verifier

import (
	"context"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/fgeck/remote-install/internal/console"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/fgeck/remote-install/internal/services/executor"
	"github.com/rs/zerolog"
)

// UnknownRestartCommand is reported when the remote host has no restart hint.
const UnknownRestartCommand = "Unable to determine. Run the provisioner to find the restart command."

const accessProbeSQL = "CREATE DATABASE test_access; DROP DATABASE test_access;"

// Input holds what the verifier needs from the rest of the workflow.
type Input struct {
	Target         models.ServerTarget
	Credentials    models.ServiceCredentials
	RestartCommand string
	RestartKnown   bool
	Skipped        bool // the automation run was declined
}

// Service defines the interface for post-provision verification.
type Service interface {
	RestartCommand(ctx context.Context, adminUser, host string) (string, bool)
	VerifyDatabase(ctx context.Context, host, password string) models.VerificationOutcome
	VerifyWebServer(ctx context.Context, host, restartCommand string, known bool) models.VerificationOutcome
	Verify(ctx context.Context, in Input) *models.VerificationReport
}

// Impl implements the verifier Service interface.
type Impl struct {
	executor  executor.Service
	out       *console.Output
	database  models.DatabaseConfig
	webServer models.WebServerConfig
	logger    zerolog.Logger
}

// New creates a verifier.
func New(
	logger zerolog.Logger,
	out *console.Output,
	exec executor.Service,
	database models.DatabaseConfig,
	webServer models.WebServerConfig,
) *Impl {
	return &Impl{
		executor:  exec,
		out:       out,
		database:  database,
		webServer: webServer,
		logger:    logger,
	}
}

// RestartCommand reads the restart hint left on the host by the playbook and
// turns it into a graceful restart command. The probe is best effort.
func (s *Impl) RestartCommand(ctx context.Context, adminUser, host string) (string, bool) {
	cmd := models.Command{
		Name: "ssh",
		Args: []string{
			adminUser + "@" + host,
			"-o", "PasswordAuthentication no",
			"-C", "cat " + shellescape.Quote(s.webServer.RestartHintPath),
		},
		Silent: true,
	}

	result, err := s.executor.Run(ctx, cmd)
	if err != nil {
		s.logger.Warn().Err(err).Msg("restart hint probe could not run")
		return UnknownRestartCommand, false
	}

	hint := strings.TrimSpace(result.Stdout)
	if hint == "" {
		s.logger.Debug().Int("exit_code", result.ExitCode).Msg("no restart hint found")
		return UnknownRestartCommand, false
	}
	return RestartCommandFor(hint), true
}

// RestartCommandFor builds the privileged graceful restart for a control binary.
func RestartCommandFor(hint string) string {
	return "sudo " + shellescape.Quote(hint) + " graceful"
}

// VerifyDatabase creates and drops a throwaway database on the remote server.
func (s *Impl) VerifyDatabase(ctx context.Context, host, password string) models.VerificationOutcome {
	outcome := models.VerificationOutcome{ServiceName: models.ServiceMySQL}

	cmd := models.Command{
		Name: "mysql",
		Args: []string{
			"-h", host,
			"-u", s.database.User,
			"-p" + password,
			"-e" + accessProbeSQL,
		},
		Secret: password,
	}

	if _, err := s.executor.MustRun(ctx, cmd); err != nil {
		for _, line := range executor.ErrorLines(err) {
			outcome.ErrorLines = append(outcome.ErrorLines, executor.Redact(line, password))
		}
		s.logger.Debug().Strs("error", outcome.ErrorLines).Str("host", host).Msg("database check failed")
		return outcome
	}

	outcome.Succeeded = true
	return outcome
}

// VerifyWebServer restarts the web server over an interactive SSH session as
// the service account.
func (s *Impl) VerifyWebServer(ctx context.Context, host, restartCommand string, known bool) models.VerificationOutcome {
	outcome := models.VerificationOutcome{ServiceName: models.ServiceApache}

	if !known {
		outcome.ErrorLines = []string{"Apache restart command is unknown: " + UnknownRestartCommand}
		return outcome
	}

	cmd := models.Command{
		Name: "ssh",
		Args: []string{
			s.webServer.User + "@" + host,
			"-t",
			"-o", "PasswordAuthentication no",
			"-C", restartCommand,
		},
		Interactive: true,
	}

	if _, err := s.executor.MustRun(ctx, cmd); err != nil {
		outcome.ErrorLines = executor.ErrorLines(err)
		s.logger.Debug().Err(err).Str("host", host).Msg("web server check failed")
		return outcome
	}

	outcome.Succeeded = true
	return outcome
}

// Verify runs the database check when MySQL was requested and always runs
// the web server restart check. One failing check never stops the other.
func (s *Impl) Verify(ctx context.Context, in Input) *models.VerificationReport {
	report := &models.VerificationReport{Skipped: in.Skipped}
	host := in.Target.Hostname

	if in.Credentials.InstallMySQL {
		s.out.Blank()
		s.out.Info("MySQL:", "Testing MySQL Access...")
		outcome := models.VerificationOutcome{ServiceName: models.ServiceMySQL, Skipped: true}
		if in.Skipped {
			s.out.Line("%s", s.out.Comment("Skipping..."))
		} else {
			outcome = s.VerifyDatabase(ctx, host, in.Credentials.MySQLPassword)
			s.report(outcome, "MySQL on remote server is accessible.")
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	s.out.Blank()
	s.out.Info("Apache:", "Testing Apache restart access...")
	web := models.VerificationOutcome{ServiceName: models.ServiceApache, Skipped: true}
	if in.Skipped {
		s.out.Line("%s", s.out.Comment("Skipping..."))
	} else {
		web = s.VerifyWebServer(ctx, host, in.RestartCommand, in.RestartKnown)
		s.report(web, "Apache was restarted successfully.")
	}
	report.Outcomes = append(report.Outcomes, web)

	s.logger.Info().
		Str("host", host).
		Bool("skipped", in.Skipped).
		Bool("failed", report.AnyFailed()).
		Int("checks", len(report.Outcomes)).
		Msg("verification finished")

	return report
}

func (s *Impl) report(outcome models.VerificationOutcome, success string) {
	if outcome.Succeeded {
		s.out.Info("Access Granted!", "%s", success)
		return
	}
	s.out.Lines(outcome.ErrorLines)
}
