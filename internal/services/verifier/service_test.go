package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/fgeck/remote-install/internal/console"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/fgeck/remote-install/internal/services/executor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations.
type mockExecutor struct {
	runFunc     func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error)
	mustRunFunc func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error)
	calls       []models.Command
}

func (m *mockExecutor) Run(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
	m.calls = append(m.calls, cmd)
	if m.runFunc != nil {
		return m.runFunc(ctx, cmd)
	}
	return &models.ProcessResult{}, nil
}

func (m *mockExecutor) MustRun(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
	m.calls = append(m.calls, cmd)
	if m.mustRunFunc != nil {
		return m.mustRunFunc(ctx, cmd)
	}
	return &models.ProcessResult{}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newService(exec *mockExecutor) (*Impl, *bytes.Buffer) {
	var buf bytes.Buffer
	svc := New(
		testLogger(),
		console.NewOutput(&buf),
		exec,
		models.DatabaseConfig{User: "aegir_root"},
		models.WebServerConfig{User: "aegir", RestartHintPath: "/var/aegir/.apache-restart-command"},
	)
	return svc, &buf
}

func failWith(stderr string) func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
	return func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
		return &models.ProcessResult{ExitCode: 1, Stderr: stderr}, &executor.ProcessFailureError{
			Command:     executor.QuoteCommand(cmd),
			ExitCode:    1,
			StderrLines: []string{stderr},
		}
	}
}

func testInput() Input {
	return Input{
		Target: models.ServerTarget{Hostname: "db1.example.com", ResolvedIP: "10.0.0.5"},
		Credentials: models.ServiceCredentials{
			MySQLPassword: "Tr2xKq9mPzW4nVb7",
			InstallMySQL:  true,
			InstallApache: true,
		},
		RestartCommand: "sudo apache2ctl graceful",
		RestartKnown:   true,
	}
}

func TestRestartCommand_FromHint(t *testing.T) {
	exec := &mockExecutor{runFunc: func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
		return &models.ProcessResult{Stdout: "apache2ctl\n"}, nil
	}}
	svc, _ := newService(exec)

	restart, known := svc.RestartCommand(context.Background(), "root", "db1.example.com")

	assert.True(t, known)
	assert.Equal(t, "sudo apache2ctl graceful", restart)
	require.Len(t, exec.calls, 1)
	assert.True(t, exec.calls[0].Silent)
	assert.Equal(t, []string{
		"root@db1.example.com", "-o", "PasswordAuthentication no", "-C", "cat /var/aegir/.apache-restart-command",
	}, exec.calls[0].Args)
}

func TestRestartCommand_NoHint(t *testing.T) {
	exec := &mockExecutor{runFunc: func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
		return &models.ProcessResult{ExitCode: 1}, nil
	}}
	svc, _ := newService(exec)

	restart, known := svc.RestartCommand(context.Background(), "root", "db1.example.com")

	assert.False(t, known)
	assert.Equal(t, UnknownRestartCommand, restart)
}

func TestRestartCommand_ProbeCannotStart(t *testing.T) {
	exec := &mockExecutor{runFunc: func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
		return &models.ProcessResult{ExitCode: -1}, errors.New("ssh not found")
	}}
	svc, _ := newService(exec)

	restart, known := svc.RestartCommand(context.Background(), "root", "db1")

	assert.False(t, known)
	assert.Equal(t, UnknownRestartCommand, restart)
}

func TestRestartCommandFor_QuotesHint(t *testing.T) {
	assert.Equal(t, "sudo /usr/sbin/apache2ctl graceful", RestartCommandFor("/usr/sbin/apache2ctl"))
	assert.Equal(t, "sudo 'apachectl; reboot' graceful", RestartCommandFor("apachectl; reboot"))
}

func TestVerifyDatabase_Success(t *testing.T) {
	exec := &mockExecutor{}
	svc, _ := newService(exec)

	outcome := svc.VerifyDatabase(context.Background(), "db1.example.com", "Tr2xKq9mPzW4nVb7")

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, models.ServiceMySQL, outcome.ServiceName)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "mysql", exec.calls[0].Name)
	assert.Equal(t, []string{
		"-h", "db1.example.com",
		"-u", "aegir_root",
		"-pTr2xKq9mPzW4nVb7",
		"-eCREATE DATABASE test_access; DROP DATABASE test_access;",
	}, exec.calls[0].Args)
	assert.Equal(t, "Tr2xKq9mPzW4nVb7", exec.calls[0].Secret)
}

func TestVerifyDatabase_FailureMasksPassword(t *testing.T) {
	exec := &mockExecutor{mustRunFunc: failWith("ERROR 1045 (28000): Access denied for user 'aegir_root'")}
	svc, _ := newService(exec)

	outcome := svc.VerifyDatabase(context.Background(), "db1.example.com", "S3cretPassw0rdXY")

	require.False(t, outcome.Succeeded)
	joined := strings.Join(outcome.ErrorLines, "\n")
	assert.NotContains(t, joined, "S3cretPassw0rdXY")
	assert.Contains(t, joined, "-p****")
}

func TestVerifyDatabase_FailureMasksPasswordInRawError(t *testing.T) {
	exec := &mockExecutor{mustRunFunc: func(_ context.Context, cmd models.Command) (*models.ProcessResult, error) {
		return &models.ProcessResult{ExitCode: 1}, fmt.Errorf("mysql %s failed", strings.Join(cmd.Args, " "))
	}}
	svc, _ := newService(exec)

	outcome := svc.VerifyDatabase(context.Background(), "db1.example.com", "S3cretPassw0rdXY")

	require.NotEmpty(t, outcome.ErrorLines)
	assert.NotContains(t, strings.Join(outcome.ErrorLines, "\n"), "S3cretPassw0rdXY")
}

func TestVerifyDatabase_Failure(t *testing.T) {
	exec := &mockExecutor{mustRunFunc: failWith("ERROR 1045 (28000): Access denied for user 'aegir_root'")}
	svc, _ := newService(exec)

	outcome := svc.VerifyDatabase(context.Background(), "db1.example.com", "bad")

	assert.False(t, outcome.Succeeded)
	assert.Contains(t, outcome.ErrorLines, "ERROR 1045 (28000): Access denied for user 'aegir_root'")
	for _, l := range outcome.ErrorLines {
		assert.NotEmpty(t, l)
	}
}

func TestVerifyWebServer_Success(t *testing.T) {
	exec := &mockExecutor{}
	svc, _ := newService(exec)

	outcome := svc.VerifyWebServer(context.Background(), "db1.example.com", "sudo apache2ctl graceful", true)

	assert.True(t, outcome.Succeeded)
	require.Len(t, exec.calls, 1)
	assert.True(t, exec.calls[0].Interactive)
	assert.Equal(t, []string{
		"aegir@db1.example.com", "-t", "-o", "PasswordAuthentication no", "-C", "sudo apache2ctl graceful",
	}, exec.calls[0].Args)
}

func TestVerifyWebServer_UnknownRestartCommand(t *testing.T) {
	exec := &mockExecutor{}
	svc, _ := newService(exec)

	outcome := svc.VerifyWebServer(context.Background(), "db1", UnknownRestartCommand, false)

	assert.False(t, outcome.Succeeded)
	assert.NotEmpty(t, outcome.ErrorLines)
	assert.Empty(t, exec.calls)
}

func TestVerify_DatabaseFailsWebServerSucceeds(t *testing.T) {
	exec := &mockExecutor{mustRunFunc: func(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
		if cmd.Name == "mysql" {
			return failWith("ERROR 2003 (HY000): Can't connect to MySQL server")(ctx, cmd)
		}
		return &models.ProcessResult{}, nil
	}}
	svc, out := newService(exec)

	report := svc.Verify(context.Background(), testInput())

	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.AnyFailed())

	db, ok := report.Outcome(models.ServiceMySQL)
	require.True(t, ok)
	assert.False(t, db.Succeeded)
	assert.Contains(t, db.ErrorLines, "ERROR 2003 (HY000): Can't connect to MySQL server")

	web, ok := report.Outcome(models.ServiceApache)
	require.True(t, ok)
	assert.True(t, web.Succeeded)
	assert.Empty(t, web.ErrorLines)

	assert.Contains(t, out.String(), "ERROR 2003 (HY000): Can't connect to MySQL server")
	assert.Contains(t, out.String(), "Apache was restarted successfully.")
}

func TestVerify_BothFailIndependently(t *testing.T) {
	exec := &mockExecutor{mustRunFunc: failWith("boom")}
	svc, _ := newService(exec)

	report := svc.Verify(context.Background(), testInput())

	require.Len(t, report.Outcomes, 2)
	assert.Len(t, exec.calls, 2, "second check runs after the first failed")
	for _, o := range report.Outcomes {
		assert.False(t, o.Succeeded)
		assert.NotEmpty(t, o.ErrorLines)
	}
}

func TestVerify_Skipped(t *testing.T) {
	exec := &mockExecutor{}
	svc, out := newService(exec)

	in := testInput()
	in.Skipped = true
	report := svc.Verify(context.Background(), in)

	assert.Empty(t, exec.calls)
	assert.True(t, report.Skipped)
	assert.False(t, report.AnyFailed())
	require.Len(t, report.Outcomes, 2)
	for _, o := range report.Outcomes {
		assert.True(t, o.Skipped)
	}
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("Skipping...")))
}

func TestVerify_WebServerCheckedWithoutApacheSelection(t *testing.T) {
	exec := &mockExecutor{}
	svc, out := newService(exec)

	in := testInput()
	in.Credentials.InstallApache = false
	report := svc.Verify(context.Background(), in)

	require.Len(t, report.Outcomes, 2)
	web, ok := report.Outcome(models.ServiceApache)
	require.True(t, ok)
	assert.True(t, web.Succeeded)
	require.Len(t, exec.calls, 2)
	assert.Equal(t, "ssh", exec.calls[1].Name)
	assert.Contains(t, out.String(), "Apache was restarted successfully.")
}

func TestVerify_OnlyRequestedServices(t *testing.T) {
	exec := &mockExecutor{}
	svc, _ := newService(exec)

	in := testInput()
	in.Credentials.InstallMySQL = false
	in.Credentials.MySQLPassword = ""
	report := svc.Verify(context.Background(), in)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, models.ServiceApache, report.Outcomes[0].ServiceName)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "ssh", exec.calls[0].Name)
}
