package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowdapp/profile-dapp/controller"
	"github.com/flowdapp/profile-dapp/view"
)

// DefaultName is submitted by Execute Transaction when the name input is empty.
const DefaultName = "Edoye"

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).PaddingLeft(2)

// stateMsg carries a state published by the controller.
type stateMsg controller.State

// updatesClosedMsg reports that the controller was closed.
type updatesClosedMsg struct{}

// actionDoneMsg reports the outcome of an action.
type actionDoneMsg struct {
	message string
	err     error
}

// model is the screen of the dapp. Every change of the shown state comes from the controller;
// the model only keeps what the screen adds on top: focus, input and the last outcome.
type model struct {
	ctx   context.Context
	ctrl  *controller.Controller
	state controller.State

	focus   int
	input   textinput.Model
	busy    bool
	message string
	err     error
}

func newModel(ctx context.Context, ctrl *controller.Controller) model {
	ti := textinput.New()
	ti.Placeholder = DefaultName
	ti.Prompt = "New name: "
	ti.CharLimit = 64
	ti.Width = 32
	ti.Focus()

	return model{
		ctx:     ctx,
		ctrl:    ctrl,
		state:   ctrl.State(),
		input:   ti,
		message: "Tab to move, Enter to press, Esc to quit",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForState(m.ctrl.Updates()),
	)
}

// waitForState delivers the next published state.
func waitForState(updates <-chan controller.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}

		return stateMsg(s)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyTab, tea.KeyRight:
			m.focus = (m.focus + 1) % len(m.actions())
			return m, nil

		case tea.KeyShiftTab, tea.KeyLeft:
			n := len(m.actions())
			m.focus = (m.focus + n - 1) % n
			return m, nil

		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			action := m.actions()[m.focus]
			m.busy = true
			m.err = nil
			m.message = string(action) + "..."

			return m, m.run(action)
		}

		// the name input only exists on the authenticated screen
		if m.projection().Variant != view.VariantAuthenticated {
			return m, nil
		}

	case stateMsg:
		before := m.projection().Variant
		m.state = controller.State(msg)
		if m.projection().Variant != before {
			m.focus = 0
		}

		return m, waitForState(m.ctrl.Updates())

	case actionDoneMsg:
		m.busy = false
		m.message = msg.message
		m.err = msg.err

		return m, nil

	case updatesClosedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) projection() view.Model { return view.Project(m.state) }

func (m model) actions() []view.Action { return m.projection().Actions }

// name is the profile name Execute Transaction submits.
func (m model) name() string {
	if v := strings.TrimSpace(m.input.Value()); v != "" {
		return v
	}

	return DefaultName
}

// run performs action off the update loop.
func (m model) run(action view.Action) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	identity := m.state.Session.Identity
	name := m.name()

	return func() tea.Msg {
		switch action {
		case view.ActionLogIn:
			return done("", ctrl.LogIn(ctx))
		case view.ActionSignUp:
			return done("Signed up", ctrl.SignUp(ctx))
		case view.ActionLogOut:
			return done("", ctrl.LogOut(ctx))
		case view.ActionSendQuery:
			_, err := ctrl.ReadProfile(ctx, identity)
			return done("Profile read", err)
		case view.ActionInitAccount:
			res, err := ctrl.InitializeAccountResource(ctx, identity)
			return done(fmt.Sprintf("Account initialized in transaction %s", res.ID), err)
		case view.ActionExecuteTransaction:
			sub, err := ctrl.SetProfileName(ctx, identity, name)
			if err != nil {
				return done("", err)
			}
			return done(fmt.Sprintf("Submitted transaction %s", sub.TxID()), nil)
		default:
			return done("", fmt.Errorf("unknown action %q", action))
		}
	}
}

func done(message string, err error) actionDoneMsg {
	if err != nil {
		return actionDoneMsg{err: err}
	}

	return actionDoneMsg{message: message}
}

func (m model) View() string {
	p := m.projection()
	screen := view.Render(p, view.Options{
		Focus:   p.Actions[m.focus],
		Message: m.message,
		Err:     m.err,
	})
	if p.Variant != view.VariantAuthenticated {
		return screen
	}

	return lipgloss.JoinVertical(lipgloss.Left, screen, helpStyle.Render(m.input.View()))
}
