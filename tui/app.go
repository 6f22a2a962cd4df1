// Package tui is the interactive terminal frontend. It renders one screen
// at a time over a shared session snapshot; every navigation passes
// through a guard that redirects based on the session phase, so a screen
// can assume its access rule holds while it is visible.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gatehouse-dev/gatehouse/flow"
	"github.com/gatehouse-dev/gatehouse/session"
)

// Screen identifies one of the app's views.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenSignup
	ScreenVerifyLogin
	ScreenPasskeyLogin
	ScreenHome
	ScreenSetupTwoFactor
	ScreenDisableTwoFactor
	ScreenPasskeys
	ScreenAddPasskey
)

// privateScreen reports whether the screen requires an authenticated
// session.
func privateScreen(s Screen) bool {
	switch s {
	case ScreenHome, ScreenSetupTwoFactor, ScreenDisableTwoFactor, ScreenPasskeys, ScreenAddPasskey:
		return true
	}
	return false
}

// publicOnlyScreen reports whether the screen is reserved for anonymous
// sessions.
func publicOnlyScreen(s Screen) bool {
	switch s {
	case ScreenLogin, ScreenSignup, ScreenVerifyLogin, ScreenPasskeyLogin:
		return true
	}
	return false
}

// Guard resolves the screen actually shown for a navigation target. While
// the session is indeterminate nothing but the loading view is reachable,
// so callers render a spinner regardless of the returned value.
func Guard(target Screen, snap session.State) Screen {
	switch {
	case privateScreen(target) && !snap.IsAuthenticated():
		return ScreenLogin
	case publicOnlyScreen(target) && snap.IsAuthenticated():
		return ScreenHome
	}
	return target
}

// screenModel is one view of the app. Screens keep their own form state
// and translate their submissions into flow calls.
type screenModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screenModel, tea.Cmd)
	View() string
}

// navigateMsg asks the app to switch screens.
type navigateMsg struct {
	target Screen
}

// navigate is used by screens to request a transition.
func navigate(target Screen) tea.Cmd {
	return func() tea.Msg { return navigateMsg{target: target} }
}

// sessionResolvedMsg carries the result of the startup identity check.
type sessionResolvedMsg struct{}

// App is the root model. It owns the session bootstrap, the guard, and
// the active screen.
type App struct {
	ctx     context.Context
	flow    *flow.Flow
	screen  Screen
	active  screenModel
	spin    spinner.Model
	booted  bool
	width   int
	height  int
}

// NewApp creates the root model. The context bounds every network call
// the screens issue.
func NewApp(ctx context.Context, f *flow.Flow) App {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = spinnerStyle
	return App{ctx: ctx, flow: f, spin: sp, screen: ScreenLogin}
}

// Run starts the program and blocks until it exits. altScreen selects the
// dedicated terminal buffer instead of drawing inline.
func Run(ctx context.Context, f *flow.Flow, altScreen bool) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(NewApp(ctx, f), opts...)
	_, err := p.Run()
	f.Teardown()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.resolveSession())
}

// resolveSession performs the one-time whoami check before any screen is
// shown.
func (a App) resolveSession() tea.Cmd {
	return func() tea.Msg {
		a.flow.Session().Init(a.ctx)
		return sessionResolvedMsg{}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case sessionResolvedMsg:
		a.booted = true
		if a.flow.Session().Snapshot().IsAuthenticated() {
			return a.setScreen(ScreenHome)
		}
		return a.setScreen(ScreenLogin)

	case navigateMsg:
		return a.setScreen(msg.target)

	case spinner.TickMsg:
		if !a.booted {
			var cmd tea.Cmd
			a.spin, cmd = a.spin.Update(msg)
			return a, cmd
		}
	}

	if !a.booted || a.active == nil {
		return a, nil
	}

	next, cmd := a.active.Update(msg)
	a.active = next
	return a, cmd
}

// setScreen applies the guard and, for screens with preconditions beyond
// the session phase, the screen-specific redirect rules.
func (a App) setScreen(target Screen) (tea.Model, tea.Cmd) {
	snap := a.flow.Session().Snapshot()
	target = Guard(target, snap)

	// Leaving the verify screen for anywhere but itself abandons the
	// pending challenge.
	if a.screen == ScreenVerifyLogin && target != ScreenVerifyLogin {
		a.flow.CancelLogin()
	}

	switch target {
	case ScreenVerifyLogin:
		if !a.flow.Pending().Active() {
			target = ScreenLogin
		}
	case ScreenDisableTwoFactor:
		if snap.User == nil || !snap.User.TwoFactorEnabled {
			target = ScreenHome
		}
	}

	a.screen = target
	a.active = a.newScreen(target)
	return a, a.active.Init()
}

func (a App) newScreen(s Screen) screenModel {
	switch s {
	case ScreenSignup:
		return newSignupModel(a.ctx, a.flow)
	case ScreenVerifyLogin:
		return newVerifyModel(a.ctx, a.flow)
	case ScreenPasskeyLogin:
		return newPasskeyLoginModel(a.ctx, a.flow)
	case ScreenHome:
		return newHomeModel(a.ctx, a.flow)
	case ScreenSetupTwoFactor:
		return newSetupTwoFactorModel(a.ctx, a.flow)
	case ScreenDisableTwoFactor:
		return newDisableTwoFactorModel(a.ctx, a.flow)
	case ScreenPasskeys:
		return newPasskeyListModel(a.ctx, a.flow)
	case ScreenAddPasskey:
		return newAddPasskeyModel(a.ctx, a.flow)
	default:
		return newLoginModel(a.ctx, a.flow)
	}
}

func (a App) View() string {
	if !a.booted {
		return appFrame.Render(a.spin.View() + " checking session...")
	}
	if a.active == nil {
		return ""
	}
	return appFrame.Render(a.active.View())
}
