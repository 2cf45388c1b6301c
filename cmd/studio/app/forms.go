package app

import (
	"strings"

	"aistudio/cmd/studio/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type fieldSpec struct {
	label       string
	placeholder string
	secret      bool
}

type field struct {
	label string
	input textinput.Model
}

// form is a vertical list of labelled text inputs with one focused field.
type form struct {
	fields []field
	focus  int
}

func newForm(specs ...fieldSpec) form {
	f := form{fields: make([]field, len(specs))}
	for i, spec := range specs {
		in := textinput.New()
		in.Placeholder = spec.placeholder
		in.CharLimit = 256
		in.Width = 40
		if spec.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.fields[i] = field{label: spec.label, input: in}
	}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	i = (i%len(f.fields) + len(f.fields)) % len(f.fields)
	for j := range f.fields {
		if j == i {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	f.focus = i
}

func (f *form) next(delta int) {
	f.setFocus(f.focus + delta)
}

func (f *form) onLast() bool {
	return f.focus == len(f.fields)-1
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

// raw returns the field untrimmed, for passwords.
func (f *form) raw(i int) string {
	return f.fields[i].input.Value()
}

func (f *form) set(i int, v string) {
	f.fields[i].input.SetValue(v)
}

func (f *form) clear(i int) {
	f.fields[i].input.Reset()
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.Reset()
	}
	f.setFocus(0)
}

func (f *form) setWidth(w int) {
	if w < 10 {
		w = 10
	}
	for i := range f.fields {
		f.fields[i].input.Width = w
	}
}

// update feeds msg to the focused field.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f form) view(s ui.Styles) string {
	rows := make([]string, 0, len(f.fields))
	for i, fl := range f.fields {
		label := s.Label.Render(fl.label)
		if i == f.focus {
			label = s.Label.Foreground(s.Theme.Accent).Render(fl.label)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label, fl.input.View()))
	}
	return strings.Join(rows, "\n")
}

// Field indexes of the auth forms.
const (
	loginUsername = iota
	loginPassword
)

const (
	signupUsername = iota
	signupEmail
	signupPassword
)

func newLoginForm() form {
	return newForm(
		fieldSpec{label: "Username", placeholder: "your username"},
		fieldSpec{label: "Password", placeholder: "••••••", secret: true},
	)
}

func newSignupForm() form {
	return newForm(
		fieldSpec{label: "Username", placeholder: "pick a username"},
		fieldSpec{label: "Email", placeholder: "you@example.com"},
		fieldSpec{label: "Password", placeholder: "at least 6 characters", secret: true},
	)
}
