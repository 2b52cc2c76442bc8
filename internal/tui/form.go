// Package tui holds the bubbletea models behind interactive commands.
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vvka-141/pgseed/internal/ui"
)

// ErrFieldRequired is returned when a required field is empty.
var ErrFieldRequired = errors.New("this field is required")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Field is one labeled input. Key names the settings entry it fills.
type Field struct {
	Key      string
	Label    string
	Required bool
	Validate func(string) error

	input textinput.Model
	err   error
}

// NewField creates a field prefilled with value.
func NewField(key, label, value string) Field {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40
	ti.SetValue(value)
	return Field{Key: key, Label: label, input: ti}
}

// Value returns the trimmed input.
func (f Field) Value() string {
	return strings.TrimSpace(f.input.Value())
}

func (f *Field) check() error {
	v := f.Value()
	switch {
	case f.Required && v == "":
		f.err = ErrFieldRequired
	case f.Validate != nil && v != "":
		f.err = f.Validate(v)
	default:
		f.err = nil
	}
	return f.err
}

func (f Field) view(focused bool) string {
	var b strings.Builder
	label := f.Label
	if f.Required {
		label += ui.ErrorStyle.Render(" *")
	}
	b.WriteString(labelStyle.Render(label))
	b.WriteString("\n")
	if focused {
		b.WriteString(focusedStyle.Render(f.input.View()))
	} else {
		b.WriteString(f.input.View())
	}
	if f.err != nil {
		b.WriteString("\n")
		b.WriteString(ui.ErrorStyle.Render(f.err.Error()))
	}
	return b.String()
}

// Form moves focus between fields and validates them. It does not quit the
// program on its own; the owning model checks Submitted and Cancelled.
type Form struct {
	title     string
	fields    []Field
	focus     int
	keys      KeyMap
	submitted bool
	cancelled bool
}

// NewForm creates a form over fields with the first one focused.
func NewForm(title string, fields ...Field) Form {
	if len(fields) > 0 {
		fields[0].input.Focus()
	}
	return Form{title: title, fields: fields, keys: DefaultKeyMap()}
}

// Init starts the cursor blink.
func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles navigation keys and forwards everything else to the
// focused field.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, f.keys.Cancel):
			f.cancelled = true
			return f, nil
		case key.Matches(msg, f.keys.Next):
			return f.move(1)
		case key.Matches(msg, f.keys.Prev):
			return f.move(-1)
		case key.Matches(msg, f.keys.Submit):
			if f.focus < len(f.fields)-1 {
				return f.move(1)
			}
			if f.validate() {
				f.submitted = true
			}
			return f, nil
		}
	}

	if f.focus >= len(f.fields) {
		return f, nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

// move validates the focused field, then shifts focus by delta.
func (f Form) move(delta int) (Form, tea.Cmd) {
	if len(f.fields) == 0 {
		return f, nil
	}
	if delta > 0 && f.fields[f.focus].check() != nil {
		return f, nil
	}
	next := f.focus + delta
	if next < 0 || next >= len(f.fields) {
		return f, nil
	}
	f.fields[f.focus].input.Blur()
	f.focus = next
	return f, f.fields[f.focus].input.Focus()
}

func (f *Form) validate() bool {
	valid := true
	for i := range f.fields {
		if err := f.fields[i].check(); err != nil {
			if valid {
				f.fields[f.focus].input.Blur()
				f.focus = i
				f.fields[i].input.Focus()
			}
			valid = false
		}
	}
	return valid
}

// View renders the title, every field and the key help.
func (f Form) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	for i, field := range f.fields {
		b.WriteString(field.view(i == f.focus))
		b.WriteString("\n\n")
	}
	b.WriteString(ui.MutedStyle.Render(f.keys.HelpText()))
	return b.String()
}

// Submitted reports whether every field validated on submit.
func (f Form) Submitted() bool { return f.submitted }

// Cancelled reports whether the user left the form.
func (f Form) Cancelled() bool { return f.cancelled }

// Focused returns the index of the focused field.
func (f Form) Focused() int { return f.focus }

// Values maps field keys to their trimmed values.
func (f Form) Values() map[string]string {
	values := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		values[field.Key] = field.Value()
	}
	return values
}
