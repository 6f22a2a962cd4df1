package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
)

type passkeysLoadedMsg struct {
	gen  int64
	list client.PasskeyList
	err  error
}

type passkeyMutatedMsg struct {
	gen int64
	err error
}

// listMode is the interaction state of the passkey list.
type listMode int

const (
	modeBrowse listMode = iota
	modeRename
	modeConfirmDelete
)

// passkeyListModel shows registered passkeys with inline rename and a
// two-step delete. Every successful mutation re-fetches the list so the
// view never drifts from the server.
type passkeyListModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	list    client.PasskeyList
	cursor  int
	mode    listMode
	rename  form
	loading bool
	busy    bool
	errText string
}

func newPasskeyListModel(ctx context.Context, f *flow.Flow) screenModel {
	return passkeyListModel{
		ctx:     ctx,
		flow:    f,
		gen:     nextGen(),
		rename:  newForm(newInput("new name", 50)),
		loading: true,
	}
}

func (m passkeyListModel) Init() tea.Cmd {
	return m.fetch()
}

func (m passkeyListModel) fetch() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		list, err := m.flow.Passkeys(m.ctx)
		return passkeysLoadedMsg{gen: gen, list: list, err: err}
	}
}

func (m passkeyListModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case passkeysLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.busy = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, nil
		}
		m.list = msg.list
		if m.cursor >= len(m.list.Passkeys) {
			m.cursor = max(0, len(m.list.Passkeys)-1)
		}
		return m, nil

	case passkeyMutatedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.busy = false
			m.errText = displayError(msg.err)
			return m, nil
		}
		m.mode = modeBrowse
		return m, m.fetch()
	}

	if m.mode == modeRename {
		return m, m.rename.Update(msg)
	}
	return m, nil
}

func (m passkeyListModel) handleKey(msg tea.KeyMsg) (screenModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch m.mode {
	case modeRename:
		switch msg.String() {
		case "esc":
			m.mode = modeBrowse
			m.errText = ""
			return m, nil
		case "enter":
			return m.submitRename()
		}
		return m, m.rename.Update(msg)

	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			return m.submitDelete()
		case "n", "esc":
			m.mode = modeBrowse
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, navigate(ScreenHome)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.list.Passkeys)-1 {
			m.cursor++
		}
	case "a":
		return m, navigate(ScreenAddPasskey)
	case "r":
		if len(m.list.Passkeys) > 0 {
			m.mode = modeRename
			m.errText = ""
			return m, m.rename.Reset()
		}
	case "d":
		if len(m.list.Passkeys) > 0 {
			m.mode = modeConfirmDelete
			m.errText = ""
		}
	}
	return m, nil
}

func (m passkeyListModel) submitRename() (screenModel, tea.Cmd) {
	label := m.rename.Value(0)
	id := m.list.Passkeys[m.cursor].ID
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return passkeyMutatedMsg{gen: gen, err: m.flow.RenamePasskey(m.ctx, id, label)}
	}
}

func (m passkeyListModel) submitDelete() (screenModel, tea.Cmd) {
	id := m.list.Passkeys[m.cursor].ID
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return passkeyMutatedMsg{gen: gen, err: m.flow.RemovePasskey(m.ctx, id)}
	}
}

func (m passkeyListModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Passkeys") + "\n")

	switch {
	case m.loading:
		b.WriteString(labelStyle.Render("loading..."))
		return b.String()
	case len(m.list.Passkeys) == 0:
		b.WriteString(labelStyle.Render("No passkeys registered.") + "\n")
		if m.errText != "" {
			b.WriteString(errorStyle.Render(m.errText) + "\n")
		}
		b.WriteString(hintStyle.Render("a add | esc back"))
		return b.String()
	}

	for i, pk := range m.list.Passkeys {
		marker, name := "  ", pk.Label
		if i == m.cursor {
			marker, name = "> ", selectedStyle.Render(pk.Label)
		}
		meta := "added " + pk.CreatedAt.Format("2006-01-02")
		if pk.LastUsedAt != nil {
			meta += ", last used " + pk.LastUsedAt.Format("2006-01-02")
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", marker, name, labelStyle.Render(meta)))
	}

	switch m.mode {
	case modeRename:
		b.WriteString("\n" + m.rename.View() + "\n")
		b.WriteString(hintStyle.Render("enter rename | esc cancel"))
	case modeConfirmDelete:
		b.WriteString("\n" + errorStyle.Render("Delete this passkey? (y/n)"))
	default:
		b.WriteString(hintStyle.Render("r rename | d delete | a add | esc back"))
	}

	if m.busy {
		b.WriteString("\n" + labelStyle.Render("working..."))
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText))
	}
	return b.String()
}

type addPasskeyDoneMsg struct {
	gen int64
	err error
}

// addPasskeyModel names and registers a new credential with the local
// authenticator.
type addPasskeyModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
}

func newAddPasskeyModel(ctx context.Context, f *flow.Flow) screenModel {
	return addPasskeyModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("passkey name", 50)),
	}
}

func (m addPasskeyModel) Init() tea.Cmd {
	return nil
}

func (m addPasskeyModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigate(ScreenPasskeys)
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		}

	case addPasskeyDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = registrationError(msg.err)
			return m, nil
		}
		return m, navigate(ScreenPasskeys)
	}

	return m, m.form.Update(msg)
}

func (m addPasskeyModel) submit() (screenModel, tea.Cmd) {
	label := m.form.Value(0)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return addPasskeyDoneMsg{gen: gen, err: m.flow.RegisterPasskey(m.ctx, label)}
	}
}

func (m addPasskeyModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Add a passkey") + "\n")
	b.WriteString(labelStyle.Render("Name this passkey so you can recognize it later.") + "\n\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("waiting for authenticator...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter create | esc back"))
	return b.String()
}
