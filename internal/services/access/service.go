// Package access confirms the target host and administrative SSH access.
package access

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode"

	"github.com/fgeck/remote-install/internal/console"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/fgeck/remote-install/internal/services/executor"
	"github.com/rs/zerolog"
)

// Service defines the interface for the access verification loop.
type Service interface {
	ResolveTarget(ctx context.Context) (*models.ServerTarget, error)
	AskUsername(ctx context.Context) (string, error)
	VerifyAccess(ctx context.Context, target models.ServerTarget, username string) (*models.AdminIdentity, error)
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Impl implements the access Service interface.
type Impl struct {
	prompter console.Prompter
	out      *console.Output
	executor executor.Service
	resolver Resolver
	logger   zerolog.Logger
}

// New creates an access service using the system resolver.
func New(logger zerolog.Logger, prompter console.Prompter, out *console.Output, exec executor.Service) *Impl {
	return NewWithResolver(logger, prompter, out, exec, net.DefaultResolver)
}

// NewWithResolver creates an access service with a custom resolver (for testing).
func NewWithResolver(
	logger zerolog.Logger,
	prompter console.Prompter,
	out *console.Output,
	exec executor.Service,
	resolver Resolver,
) *Impl {
	return &Impl{
		prompter: prompter,
		out:      out,
		executor: exec,
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveTarget asks for a hostname until one resolves and the operator
// confirms its address.
func (s *Impl) ResolveTarget(ctx context.Context) (*models.ServerTarget, error) {
	state := StateAwaitInput
	var hostname, ip string

	for {
		switch state {
		case StateAwaitInput:
			answer, err := s.prompter.Ask(ctx, "Remote hostname?", "")
			if err != nil {
				return nil, err
			}
			hostname = answer
			state = s.nextHostnameState(state, StateResolving)

		case StateResolving:
			resolved, err := s.resolve(ctx, hostname)
			if err != nil {
				s.logger.Debug().Err(err).Str("hostname", hostname).Msg("hostname did not resolve")
				s.out.Error("WARNING:", "Hostname must resolve to an IP address. Please try a new name or quit to fix your DNS.")
				s.out.Blank()
				hostname = ""
				state = s.nextHostnameState(state, StateAwaitInput)
				continue
			}
			ip = resolved
			s.out.Line("Remote server %s found at %s", s.out.Success(hostname), s.out.Success(ip))
			state = s.nextHostnameState(state, StateConfirming)

		case StateConfirming:
			ok, err := s.prompter.Confirm(ctx, "Is this the correct IP?", false)
			if err != nil {
				return nil, err
			}
			s.out.Blank()
			if !ok {
				hostname, ip = "", ""
				state = s.nextHostnameState(state, StateAwaitInput)
				continue
			}
			state = s.nextHostnameState(state, StateResolved)

		case StateResolved:
			return &models.ServerTarget{Hostname: hostname, ResolvedIP: ip}, nil
		}
	}
}

// AskUsername asks for the administrative account, defaulting to root.
func (s *Impl) AskUsername(ctx context.Context) (string, error) {
	for {
		answer, err := s.prompter.Ask(ctx, "Remote username (must have ssh access from this machine and sudo access)", models.SuperUser)
		if err != nil {
			return "", err
		}
		if err := ValidateUsername(answer); err != nil {
			if answer != "" {
				s.out.Error("WARNING:", "%s", err)
			}
			continue
		}
		return answer, nil
	}
}

// VerifyAccess probes SSH access until it is granted or the operator cancels.
// Cancellation returns models.ErrCancelled.
func (s *Impl) VerifyAccess(ctx context.Context, target models.ServerTarget, username string) (*models.AdminIdentity, error) {
	state := StateAwaitConfirm
	identity := &models.AdminIdentity{Username: username}
	destination := username + "@" + target.Hostname

	for !state.Terminal() {
		switch state {
		case StateAwaitConfirm:
			ok, err := s.prompter.Confirm(ctx, fmt.Sprintf("Ready to check access to %s?", destination), true)
			if err != nil && !errors.Is(err, models.ErrCancelled) {
				return nil, err
			}
			if !ok || err != nil {
				state = s.nextAccessState(state, StateCancelled)
				continue
			}
			state = s.nextAccessState(state, StateProbing)

		case StateProbing:
			cmd := ProbeCommand(username, target.Hostname)
			s.out.Blank()
			s.out.Info("Access Test:", "Running %s to test access...", s.out.Comment(executor.QuoteCommand(cmd)))

			result, err := s.executor.Run(ctx, cmd)
			if err != nil {
				return nil, fmt.Errorf("ssh access probe failed: %w", err)
			}

			clientIP, ok := ParseClientIP(result.Stdout)
			s.out.Blank()
			if !ok {
				s.logger.Debug().Int("exit_code", result.ExitCode).Str("destination", destination).Msg("access probe returned no output")
				s.out.Error("Access Denied:", "Unable to access %s. Please check your keys and try again.", destination)
				s.out.Blank()
				state = s.nextAccessState(state, StateAwaitConfirm)
				continue
			}

			identity.ClientIP = clientIP
			s.out.Info("Access Granted!", "SSH connection was successful. Client IP detected: %s", s.out.Comment(clientIP))
			s.out.Blank()
			state = s.nextAccessState(state, StateGranted)
		}
	}

	if state == StateCancelled {
		s.out.Error("Remote Server Install Cancelled.", "")
		s.out.Blank()
		return nil, models.ErrCancelled
	}
	return identity, nil
}

// ProbeCommand builds the key-only SSH probe that echoes $SSH_CLIENT.
func ProbeCommand(username, hostname string) models.Command {
	return models.Command{
		Name: "ssh",
		Args: []string{
			username + "@" + hostname,
			"-o", "PasswordAuthentication no",
			"-C", "echo $SSH_CLIENT",
		},
	}
}

// ParseClientIP extracts the client address from $SSH_CLIENT output
// ("<client-ip> <client-port> <server-port>"). Empty output means no access.
func ParseClientIP(output string) (string, bool) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// ValidateHostname rejects names that could be mistaken for command options
// or that cannot be a DNS name.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return errors.New("hostname is required")
	}
	if strings.HasPrefix(hostname, "-") {
		return fmt.Errorf("hostname %q must not start with '-'", hostname)
	}
	if strings.IndexFunc(hostname, invalidNameRune) >= 0 || strings.ContainsAny(hostname, `/\@`) {
		return fmt.Errorf("hostname %q contains invalid characters", hostname)
	}
	return nil
}

// ValidateUsername rejects account names that could alter the ssh command.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if strings.HasPrefix(username, "-") {
		return fmt.Errorf("username %q must not start with '-'", username)
	}
	if strings.IndexFunc(username, invalidNameRune) >= 0 || strings.ContainsAny(username, `/\@:`) {
		return fmt.Errorf("username %q contains invalid characters", username)
	}
	return nil
}

func invalidNameRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r) || r == '\'' || r == '"' || r == '`'
}

func (s *Impl) resolve(ctx context.Context, hostname string) (string, error) {
	if err := ValidateHostname(hostname); err != nil {
		return "", err
	}

	addrs, err := s.resolver.LookupHost(ctx, hostname)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", hostname, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses found for %s", hostname)
	}

	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr, nil
		}
	}
	return addrs[0], nil
}

func (s *Impl) nextHostnameState(from, to HostnameState) HostnameState {
	s.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("hostname loop transition")
	return to
}

func (s *Impl) nextAccessState(from, to AccessState) AccessState {
	s.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("access loop transition")
	return to
}
