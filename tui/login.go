package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/flow"
)

type loginDoneMsg struct {
	gen     int64
	outcome flow.LoginOutcome
	err     error
}

// loginModel is the password login screen.
type loginModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
}

func newLoginModel(ctx context.Context, f *flow.Flow) screenModel {
	return loginModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("username", 64), newPasswordInput("password")),
	}
}

func (m loginModel) Init() tea.Cmd {
	return nil
}

func (m loginModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m, m.form.Cycle(1)
		case "shift+tab", "up":
			return m, m.form.Cycle(-1)
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		case "ctrl+s":
			return m, navigate(ScreenSignup)
		case "ctrl+p":
			return m, navigate(ScreenPasskeyLogin)
		}

	case loginDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, nil
		}
		if msg.outcome.TwoFactorRequired {
			return m, navigate(ScreenVerifyLogin)
		}
		return m, navigate(ScreenHome)
	}

	return m, m.form.Update(msg)
}

func (m loginModel) submit() (screenModel, tea.Cmd) {
	username := m.form.Value(0)
	password := m.form.Value(1)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		outcome, err := m.flow.Login(m.ctx, username, password)
		return loginDoneMsg{gen: gen, outcome: outcome, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in") + "\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("signing in...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter submit | ctrl+s sign up | ctrl+p passkey | ctrl+c quit"))
	return b.String()
}
