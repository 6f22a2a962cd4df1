package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/flow"
)

type logoutDoneMsg struct {
	gen int64
	err error
}

// menuEntry is one selectable action on the home screen.
type menuEntry struct {
	label  string
	target Screen
	logout bool
}

// homeModel is the authenticated landing screen. The menu reflects the
// current session user, so the two-factor entry flips between set up and
// disable.
type homeModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	cursor  int
	busy    bool
	errText string
}

func newHomeModel(ctx context.Context, f *flow.Flow) screenModel {
	return homeModel{ctx: ctx, flow: f, gen: nextGen()}
}

func (m homeModel) entries() []menuEntry {
	snap := m.flow.Session().Snapshot()
	entries := []menuEntry{
		{label: "Manage passkeys", target: ScreenPasskeys},
		{label: "Add a passkey", target: ScreenAddPasskey},
	}
	if snap.User != nil && snap.User.TwoFactorEnabled {
		entries = append(entries, menuEntry{label: "Disable two-factor authentication", target: ScreenDisableTwoFactor})
	} else {
		entries = append(entries, menuEntry{label: "Set up two-factor authentication", target: ScreenSetupTwoFactor})
	}
	return append(entries, menuEntry{label: "Log out", logout: true})
}

func (m homeModel) Init() tea.Cmd {
	return nil
}

func (m homeModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	entries := m.entries()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(entries)-1 {
				m.cursor++
			}
		case "q":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			entry := entries[m.cursor]
			if entry.logout {
				return m.logout()
			}
			return m, navigate(entry.target)
		}

	case logoutDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, nil
		}
		return m, navigate(ScreenLogin)
	}

	return m, nil
}

func (m homeModel) logout() (screenModel, tea.Cmd) {
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return logoutDoneMsg{gen: gen, err: m.flow.Logout(m.ctx)}
	}
}

func (m homeModel) View() string {
	snap := m.flow.Session().Snapshot()

	var b strings.Builder
	if snap.User != nil {
		b.WriteString(titleStyle.Render("Signed in as "+snap.User.Username) + "\n")
		status := "off"
		if snap.User.TwoFactorEnabled {
			status = "on"
		}
		b.WriteString(labelStyle.Render("two-factor: "+status) + "\n\n")
	}

	for i, entry := range m.entries() {
		line := fmt.Sprintf("  %s", entry.label)
		if i == m.cursor {
			line = selectedStyle.Render("> " + entry.label)
		}
		b.WriteString(line + "\n")
	}

	if m.busy {
		b.WriteString("\n" + labelStyle.Render("logging out..."))
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText))
	}
	b.WriteString("\n" + hintStyle.Render("up/down move | enter select | q quit"))
	return b.String()
}
