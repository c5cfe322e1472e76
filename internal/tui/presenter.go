package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// ErrPromptCancelled is returned when the user aborts the prompt with ctrl+c.
// The repair treats it like any other presenter failure and reverts.
var ErrPromptCancelled = errors.New("repair prompt cancelled")

// Presenter shows repair prompts as an interactive terminal program.
type Presenter struct {
	Input  io.Reader
	Output io.Writer
}

// Present implements port.RepairPresenter.
func (p Presenter) Present(ctx context.Context, prompt port.RepairPrompt) (port.RepairChoice, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.Input != nil {
		opts = append(opts, tea.WithInput(p.Input))
	}
	if p.Output != nil {
		opts = append(opts, tea.WithOutput(p.Output))
	}

	final, err := tea.NewProgram(NewModel(prompt), opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return port.RepairDismissed, ctxErr
		}
		return port.RepairDismissed, fmt.Errorf("run repair prompt: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return port.RepairDismissed, fmt.Errorf("unexpected prompt model %T", final)
	}
	if m.Cancelled() {
		return port.RepairDismissed, ErrPromptCancelled
	}
	return m.Choice(), nil
}

var _ port.RepairPresenter = Presenter{}
