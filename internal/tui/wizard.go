package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vvka-141/pgseed/internal/ui"
)

// ConnectionTester checks the connection described by form values and
// returns a short server description.
type ConnectionTester interface {
	TestConnection(ctx context.Context, values map[string]string) (string, error)
}

// ConnectionTestTimeout bounds the connection check.
const ConnectionTestTimeout = 10 * time.Second

type stage int

const (
	stageForm stage = iota
	stageTesting
	stageDone
)

type testResultMsg struct {
	info string
	err  error
}

// InitWizard collects settings with a Form, then optionally checks the
// connection while showing a spinner.
type InitWizard struct {
	form    Form
	tester  ConnectionTester
	spinner spinner.Model
	stage   stage

	info      string
	testErr   error
	cancelled bool
}

// NewInitWizard creates a wizard over fields. A nil tester skips the check.
func NewInitWizard(tester ConnectionTester, fields ...Field) InitWizard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.WarningStyle
	return InitWizard{
		form:    NewForm("pgseed settings", fields...),
		tester:  tester,
		spinner: s,
	}
}

func (w InitWizard) Init() tea.Cmd {
	return w.form.Init()
}

func (w InitWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch w.stage {
	case stageForm:
		var cmd tea.Cmd
		w.form, cmd = w.form.Update(msg)
		switch {
		case w.form.Cancelled():
			w.cancelled = true
			return w, tea.Quit
		case w.form.Submitted() && w.tester == nil:
			w.stage = stageDone
			return w, tea.Quit
		case w.form.Submitted():
			w.stage = stageTesting
			return w, tea.Batch(w.spinner.Tick, w.testConnection(w.form.Values()))
		}
		return w, cmd

	case stageTesting:
		switch msg := msg.(type) {
		case testResultMsg:
			w.info, w.testErr = msg.info, msg.err
			w.stage = stageDone
			return w, tea.Quit
		case spinner.TickMsg:
			var cmd tea.Cmd
			w.spinner, cmd = w.spinner.Update(msg)
			return w, cmd
		case tea.KeyMsg:
			if msg.String() == "ctrl+c" {
				w.cancelled = true
				return w, tea.Quit
			}
		}
	}
	return w, nil
}

func (w InitWizard) testConnection(values map[string]string) tea.Cmd {
	tester := w.tester
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectionTestTimeout)
		defer cancel()
		info, err := tester.TestConnection(ctx, values)
		return testResultMsg{info: info, err: err}
	}
}

func (w InitWizard) View() string {
	switch w.stage {
	case stageTesting:
		return fmt.Sprintf("%s Testing connection...\n", w.spinner.View())
	case stageDone:
		return w.Summary()
	}
	return w.form.View()
}

// Summary describes the connection check outcome.
func (w InitWizard) Summary() string {
	switch {
	case w.testErr != nil:
		return ui.ErrorStyle.Render("✗ Connection failed: "+firstLine(w.testErr.Error())) + "\n"
	case w.info != "":
		return ui.SuccessStyle.Render("✓ Connected: "+w.info) + "\n"
	}
	return ""
}

// Cancelled reports whether the user aborted the wizard.
func (w InitWizard) Cancelled() bool { return w.cancelled }

// Values returns the submitted values.
func (w InitWizard) Values() map[string]string { return w.form.Values() }

// TestErr returns the connection check error, if any.
func (w InitWizard) TestErr() error { return w.testErr }

// Run drives w inline on in and out and returns its final state.
func Run(w InitWizard, in io.Reader, out io.Writer) (InitWizard, error) {
	final, err := tea.NewProgram(w, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return w, fmt.Errorf("wizard failed: %w", err)
	}
	return final.(InitWizard), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
