package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mdp/qrterminal/v3"

	"github.com/gatehouse-dev/gatehouse/flow"
)

type setupReadyMsg struct {
	gen   int64
	setup flow.TwoFactorSetup
	err   error
}

type setupConfirmedMsg struct {
	gen int64
	err error
}

// setupTwoFactorModel walks TOTP enrollment: fetch provisioning material,
// render the QR code and secret, confirm the first code.
type setupTwoFactorModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	setup   flow.TwoFactorSetup
	qr      string
	form    form
	loading bool
	busy    bool
	errText string
}

func newSetupTwoFactorModel(ctx context.Context, f *flow.Flow) screenModel {
	return setupTwoFactorModel{
		ctx:     ctx,
		flow:    f,
		gen:     nextGen(),
		form:    newForm(newInput("6-digit code", 6)),
		loading: true,
	}
}

func (m setupTwoFactorModel) Init() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		setup, err := m.flow.BeginTwoFactorSetup(m.ctx)
		return setupReadyMsg{gen: gen, setup: setup, err: err}
	}
}

func (m setupTwoFactorModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigate(ScreenHome)
		case "enter":
			if m.busy || m.loading {
				return m, nil
			}
			return m.submit()
		}

	case setupReadyMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, nil
		}
		m.setup = msg.setup
		m.qr = renderQR(msg.setup.OtpauthURI)
		return m, nil

	case setupConfirmedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errText = displayError(msg.err)
			return m, m.form.Reset()
		}
		return m, navigate(ScreenHome)
	}

	return m, m.form.Update(msg)
}

func (m setupTwoFactorModel) submit() (screenModel, tea.Cmd) {
	code := m.form.Value(0)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return setupConfirmedMsg{gen: gen, err: m.flow.ConfirmTwoFactorSetup(m.ctx, code)}
	}
}

func (m setupTwoFactorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Set up two-factor authentication") + "\n")

	if m.loading {
		b.WriteString(labelStyle.Render("preparing enrollment..."))
		return b.String()
	}
	if m.setup.OtpauthURI == "" {
		if m.errText != "" {
			b.WriteString(errorStyle.Render(m.errText) + "\n")
		}
		b.WriteString(hintStyle.Render("esc back"))
		return b.String()
	}

	b.WriteString(labelStyle.Render("Scan the QR code with your authenticator app,") + "\n")
	b.WriteString(labelStyle.Render("or enter the secret manually:") + "\n\n")
	b.WriteString(m.qr + "\n")
	b.WriteString(secretStyle.Render(m.setup.Secret) + "\n\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("verifying...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter confirm | esc cancel"))
	return b.String()
}

// renderQR draws the otpauth URI as a half-block terminal QR code.
func renderQR(uri string) string {
	var buf strings.Builder
	qrterminal.GenerateWithConfig(uri, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     &buf,
		HalfBlocks: true,
		QuietZone:  1,
	})
	return buf.String()
}

type disableDoneMsg struct {
	gen int64
	err error
}

// disableTwoFactorModel confirms a code before turning enforcement off.
type disableTwoFactorModel struct {
	ctx     context.Context
	flow    *flow.Flow
	gen     int64
	form    form
	busy    bool
	errText string
}

func newDisableTwoFactorModel(ctx context.Context, f *flow.Flow) screenModel {
	return disableTwoFactorModel{
		ctx:  ctx,
		flow: f,
		gen:  nextGen(),
		form: newForm(newInput("6-digit code", 6)),
	}
}

func (m disableTwoFactorModel) Init() tea.Cmd {
	return nil
}

func (m disableTwoFactorModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigate(ScreenHome)
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		}

	case disableDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			if errors.Is(msg.err, flow.ErrTwoFactorNotEnabled) {
				return m, navigate(ScreenHome)
			}
			m.errText = displayError(msg.err)
			return m, m.form.Reset()
		}
		return m, navigate(ScreenHome)
	}

	return m, m.form.Update(msg)
}

func (m disableTwoFactorModel) submit() (screenModel, tea.Cmd) {
	code := m.form.Value(0)
	m.busy = true
	m.errText = ""
	gen := m.gen
	return m, func() tea.Msg {
		return disableDoneMsg{gen: gen, err: m.flow.DisableTwoFactor(m.ctx, code)}
	}
}

func (m disableTwoFactorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Disable two-factor authentication") + "\n")
	b.WriteString(labelStyle.Render("Enter a current code to confirm.") + "\n\n")
	b.WriteString(m.form.View() + "\n")
	if m.busy {
		b.WriteString(labelStyle.Render("disabling...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString(hintStyle.Render("enter confirm | esc cancel"))
	return b.String()
}
