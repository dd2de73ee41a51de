package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/finance"
	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the browser for a logged-in session and blocks until the user
// quits or ctx is canceled.
func Run(ctx context.Context, session *finance.Session, in io.Reader, out io.Writer, opts ...Option) error {
	if session == nil || !session.IsAuthenticated() {
		return fmt.Errorf("%w: browse requires a logged-in session", common.ErrInvalidState)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	_, err := tea.NewProgram(New(session, opts...), programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}
