package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fgeck/remote-install/internal/models"
	"github.com/mattn/go-isatty"
)

// Prompter asks the operator questions.
type Prompter interface {
	// Ask returns a free-text answer, or defaultAnswer when left empty.
	Ask(ctx context.Context, question, defaultAnswer string) (string, error)
	// Confirm returns a yes/no answer, preselected to defaultYes.
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
}

// FormPrompter implements Prompter with huh forms.
type FormPrompter struct {
	accessible bool
}

// NewFormPrompter creates a prompter. Plain line prompts are used when stdin
// is not a terminal so answers can be piped in.
func NewFormPrompter() *FormPrompter {
	fd := os.Stdin.Fd()
	return &FormPrompter{
		accessible: !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd),
	}
}

// Ask prompts for a single line of text.
func (p *FormPrompter) Ask(ctx context.Context, question, defaultAnswer string) (string, error) {
	var answer string

	input := huh.NewInput().
		Title(question).
		Value(&answer)
	if defaultAnswer != "" {
		input = input.Placeholder(defaultAnswer)
	}

	if err := p.run(ctx, input); err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultAnswer, nil
	}
	return answer, nil
}

// Confirm prompts for a yes/no answer.
func (p *FormPrompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	answer := defaultYes

	confirm := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)

	if err := p.run(ctx, confirm); err != nil {
		return false, err
	}
	return answer, nil
}

func (p *FormPrompter) run(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(p.accessible).
		WithShowHelp(false).
		RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return models.ErrCancelled
	}
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}
