// Package executor runs external commands for the provisioning workflow.
//
// Output is relayed to the operator as it arrives and buffered for the
// caller. No timeout is applied: remote provisioning can legitimately take a
// long time and a hung command blocks the workflow until the operator
// interrupts it.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for running external commands.
type Service interface {
	// Run executes cmd. A non-zero exit status is reported in the result, not as an error.
	Run(ctx context.Context, cmd models.Command) (*models.ProcessResult, error)
	// MustRun executes cmd and returns a *ProcessFailureError on a non-zero exit status.
	MustRun(ctx context.Context, cmd models.Command) (*models.ProcessResult, error)
}

// ProcessFailureError reports a command that exited with a non-zero status.
type ProcessFailureError struct {
	Command     string
	ExitCode    int
	StderrLines []string
}

func (e *ProcessFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The command %q failed.\n\nExit Code: %d\n", e.Command, e.ExitCode)
	if len(e.StderrLines) > 0 {
		b.WriteString("\nError Output:\n")
		b.WriteString(strings.Join(e.StderrLines, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// Lines returns the non-empty lines of the error message.
func (e *ProcessFailureError) Lines() []string {
	return nonEmptyLines(e.Error())
}

// ErrorLines splits any error message into its non-empty lines.
func ErrorLines(err error) []string {
	if err == nil {
		return nil
	}
	var pf *ProcessFailureError
	if errors.As(err, &pf) {
		return pf.Lines()
	}
	return nonEmptyLines(err.Error())
}

// RedactedMask replaces a command's secret in rendered output.
const RedactedMask = "****"

// QuoteCommand renders cmd as a shell-safe line for display, masking cmd.Secret.
func QuoteCommand(cmd models.Command) string {
	words := make([]string, 0, len(cmd.Args)+1)
	words = append(words, cmd.Name)
	for _, a := range cmd.Args {
		words = append(words, Redact(a, cmd.Secret))
	}
	return shellescape.QuoteCommand(words)
}

// Redact replaces every occurrence of secret in s with RedactedMask.
func Redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, RedactedMask)
}

// Impl implements the executor Service interface.
type Impl struct {
	stdin  io.Reader
	stdout io.Writer
	logger zerolog.Logger
}

// New creates an executor that relays output to stdout and reads
// interactive input from os.Stdin.
func New(logger zerolog.Logger, stdout io.Writer) *Impl {
	return NewWithStreams(logger, os.Stdin, stdout)
}

// NewWithStreams creates an executor with custom streams (for testing).
func NewWithStreams(logger zerolog.Logger, stdin io.Reader, stdout io.Writer) *Impl {
	return &Impl{
		stdin:  stdin,
		stdout: stdout,
		logger: logger,
	}
}

// Run executes a command and reports its exit status.
func (s *Impl) Run(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
	line := QuoteCommand(cmd)
	s.logger.Debug().
		Str("command", line).
		Bool("interactive", cmd.Interactive).
		Bool("silent", cmd.Silent).
		Msg("running command")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // argument vector, no shell involved
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Interactive {
		c.Stdin = s.stdin
	}

	var stdout, stderr bytes.Buffer
	if cmd.Silent {
		c.Stdout = &stdout
		c.Stderr = &stderr
	} else {
		c.Stdout = io.MultiWriter(&stdout, s.stdout)
		c.Stderr = io.MultiWriter(&stderr, s.stdout)
	}

	start := time.Now()
	err := c.Run()
	result := &models.ProcessResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			result.ExitCode = -1
			return result, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	s.logger.Debug().
		Str("command", cmd.Name).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("command finished")

	return result, nil
}

// MustRun executes a command and fails on a non-zero exit status.
func (s *Impl) MustRun(ctx context.Context, cmd models.Command) (*models.ProcessResult, error) {
	result, err := s.Run(ctx, cmd)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, &ProcessFailureError{
			Command:     QuoteCommand(cmd),
			ExitCode:    result.ExitCode,
			StderrLines: nonEmptyLines(Redact(result.Stderr, cmd.Secret)),
		}
	}
	return result, nil
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
