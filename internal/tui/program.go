package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/storage"
)

// Options configures an interactive reading session.
type Options struct {
	Path   string
	Config config.Config
	// Events, when set, receives every engine event.
	Events reporter.Sink
	// Store, when set, resumes the saved bookmark and saves a new one on exit.
	Store *storage.Storage
}

// Run opens the document at opts.Path and blocks until the reader quits.
func Run(ctx context.Context, opts Options) error {
	src, err := document.ReadFile(opts.Path)
	if err != nil {
		return err
	}
	model := NewModel(opts.Path, src, opts.Config, opts.Events, nil)
	if opts.Store != nil {
		if b, ok := opts.Store.Bookmark(opts.Path); ok {
			model = model.Resume(b)
		}
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(prevOut)

	// Run TUI blocking in this goroutine.
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && opts.Store != nil {
		return opts.Store.Remember(opts.Path, fm.Bookmark())
	}
	return nil
}
