package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
)

type verifyDoneMsg struct {
	gen  int64
	user *client.User
	err  error
}

// verifyModel is the two-factor challenge screen shown after a password
// login that requires a code. Leaving this screen abandons the challenge;
// the root model clears the pending nonce on navigation away.
type verifyModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
}

func newVerifyModel(ctx context.Context, f *flow.Flow) screenModel {
	return verifyModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("6-digit code", 6)),
	}
}

func (m verifyModel) Init() tea.Cmd {
	return nil
}

func (m verifyModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
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

	case verifyDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			// The nonce survives a rejected code; only the entered
			// code is discarded.
			m.errText = displayError(msg.err)
			return m, m.form.Reset()
		}
		return m, navigate(ScreenHome)
	}

	return m, m.form.Update(msg)
}

func (m verifyModel) submit() (screenModel, tea.Cmd) {
	code := m.form.Value(0)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		user, err := m.flow.VerifyLogin(m.ctx, code)
		return verifyDoneMsg{gen: gen, user: user, err: err}
	}
}

func (m verifyModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Two-factor verification") + "\n")
	b.WriteString(labelStyle.Render("Enter the code from your authenticator app.") + "\n\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("verifying...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter verify | esc back to sign in"))
	return b.String()
}
