package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
)

type signupDoneMsg struct {
	gen  int64
	user *client.User
	err  error
}

// signupModel is the account creation screen. Signup does not log the
// user in; a success hands off to the login screen.
type signupModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
	created string
}

func newSignupModel(ctx context.Context, f *flow.Flow) screenModel {
	return signupModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("username", 20), newPasswordInput("password")),
	}
}

func (m signupModel) Init() tea.Cmd {
	return nil
}

func (m signupModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m, m.form.Cycle(1)
		case "shift+tab", "up":
			return m, m.form.Cycle(-1)
		case "esc":
			return m, navigate(ScreenLogin)
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.created != "" {
				return m, navigate(ScreenLogin)
			}
			return m.submit()
		}

	case signupDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, nil
		}
		m.created = msg.user.Username
		return m, nil
	}

	return m, m.form.Update(msg)
}

func (m signupModel) submit() (screenModel, tea.Cmd) {
	username := m.form.Value(0)
	password := m.form.Value(1)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		user, err := m.flow.Signup(m.ctx, username, password)
		return signupDoneMsg{gen: gen, user: user, err: err}
	}
}

func (m signupModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create account") + "\n")
	if m.created != "" {
		b.WriteString(successStyle.Render("Account "+m.created+" created.") + "\n")
		b.WriteString(hintStyle.Render("enter go to sign in"))
		return b.String()
	}
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("creating account...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter submit | esc back to sign in"))
	return b.String()
}
