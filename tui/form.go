package tui

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
	"github.com/gatehouse-dev/gatehouse/passkey"
)

// genCounter tags each screen instance so a response spawned by an
// abandoned screen is dropped instead of mutating its replacement.
var genCounter atomic.Int64

func nextGen() int64 { return genCounter.Add(1) }

// form is a vertical stack of text inputs with a single focus.
type form struct {
	inputs []textinput.Model
	focus  int
}

func newForm(inputs ...textinput.Model) form {
	f := form{inputs: inputs}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f *form) Focused() int { return f.focus }

func (f *form) Value(i int) string { return f.inputs[i].Value() }

// Cycle moves focus by delta, wrapping around.
func (f *form) Cycle(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// Update forwards msg to every input. Only the focused one reacts to
// keystrokes; the rest still need cursor blink ticks.
func (f *form) Update(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(f.inputs))
	for i := range f.inputs {
		f.inputs[i], cmds[i] = f.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

// Reset clears every value and returns focus to the first input.
func (f *form) Reset() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
		f.inputs[i].Blur()
	}
	f.focus = 0
	return f.inputs[0].Focus()
}

func (f *form) View() string {
	var b strings.Builder
	for i := range f.inputs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.inputs[i].View())
	}
	return b.String()
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 32
	return ti
}

func newPasswordInput(placeholder string) textinput.Model {
	ti := newInput(placeholder, 128)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	return ti
}

// displayError renders an error the way the forms present it: validation
// messages verbatim, server messages when present, the generic fallback
// otherwise.
func displayError(err error) string {
	if err == nil {
		return ""
	}
	if flow.IsFieldError(err) {
		return err.Error()
	}
	return client.Message(err)
}

func isCeremonyError(err error) bool {
	return errors.Is(err, passkey.ErrCancelled) ||
		errors.Is(err, passkey.ErrUnsupported) ||
		errors.Is(err, passkey.ErrSecurity) ||
		errors.Is(err, passkey.ErrCredentialExists) ||
		errors.Is(err, passkey.ErrNoCredential)
}

// registrationError renders a passkey creation failure.
func registrationError(err error) string {
	switch {
	case err == nil:
		return ""
	case flow.IsFieldError(err):
		return err.Error()
	case isCeremonyError(err):
		return passkey.RegistrationMessage(err)
	default:
		return client.Message(err)
	}
}

// authenticationError renders a passkey login failure.
func authenticationError(err error) string {
	switch {
	case err == nil:
		return ""
	case flow.IsFieldError(err):
		return err.Error()
	case isCeremonyError(err):
		return passkey.AuthenticationMessage(err)
	default:
		return client.Message(err)
	}
}
