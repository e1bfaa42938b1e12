package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary = lipgloss.Color("#0284C7")
	muted   = lipgloss.Color("#6B7280")
	danger  = lipgloss.Color("#E53935")
)

// Styles holds the styled components of a screen.
type Styles struct {
	Label   lipgloss.Style
	Value   lipgloss.Style
	Button  lipgloss.Style
	Focused lipgloss.Style
	Message lipgloss.Style
	Error   lipgloss.Style
	Frame   lipgloss.Style
}

// DefaultStyles returns the styles used by Render.
func DefaultStyles() Styles {
	button := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(muted)

	return Styles{
		Label:   lipgloss.NewStyle().Bold(true),
		Value:   lipgloss.NewStyle(),
		Button:  button,
		Focused: button.BorderForeground(primary).Foreground(primary).Bold(true),
		Message: lipgloss.NewStyle().Foreground(muted).Italic(true),
		Error:   lipgloss.NewStyle().Foreground(danger),
		Frame:   lipgloss.NewStyle().Padding(1, 2),
	}
}

// Options decorate a rendered Model.
type Options struct {
	// Focus highlights one of the actions.
	Focus Action
	// Message is shown under the actions, e.g. a prompt or the outcome of the last action.
	Message string
	// Err is shown instead of Message when set.
	Err error
	// Styles overrides DefaultStyles.
	Styles *Styles
}

// Render draws m as a block of text.
func Render(m Model, opts Options) string {
	st := DefaultStyles()
	if opts.Styles != nil {
		st = *opts.Styles
	}

	var rows []string
	if m.Variant == VariantAuthenticated {
		rows = append(rows,
			st.Label.Render("Address: ")+st.Value.Render(m.Address),
			st.Label.Render("Profile Name: ")+st.Value.Render(m.ProfileName),
			st.Label.Render("Transaction Status: ")+st.Value.Render(m.TransactionStatus),
			"",
		)
	}

	buttons := make([]string, 0, len(m.Actions))
	for _, a := range m.Actions {
		style := st.Button
		if a == opts.Focus {
			style = st.Focused
		}
		buttons = append(buttons, style.Render(string(a)))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, buttons...))

	switch {
	case opts.Err != nil:
		rows = append(rows, st.Error.Render(opts.Err.Error()))
	case opts.Message != "":
		rows = append(rows, st.Message.Render(opts.Message))
	}

	return st.Frame.Render(strings.Join(rows, "\n"))
}
