package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
)

type passkeyLoginDoneMsg struct {
	gen  int64
	user *client.User
	err  error
}

// passkeyLoginModel runs the passkey authentication ceremony for a typed
// username. Challenge state lives entirely inside the single flow call;
// a failed attempt restarts cleanly.
type passkeyLoginModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
}

func newPasskeyLoginModel(ctx context.Context, f *flow.Flow) screenModel {
	return passkeyLoginModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("username", 20)),
	}
}

func (m passkeyLoginModel) Init() tea.Cmd {
	return nil
}

func (m passkeyLoginModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigate(ScreenLogin)
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		}

	case passkeyLoginDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = authenticationError(msg.err)
			return m, nil
		}
		return m, navigate(ScreenHome)
	}

	return m, m.form.Update(msg)
}

func (m passkeyLoginModel) submit() (screenModel, tea.Cmd) {
	username := m.form.Value(0)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		user, err := m.flow.LoginWithPasskey(m.ctx, username)
		return passkeyLoginDoneMsg{gen: gen, user: user, err: err}
	}
}

func (m passkeyLoginModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in with a passkey") + "\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("waiting for authenticator...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter authenticate | esc back to sign in"))
	return b.String()
}
