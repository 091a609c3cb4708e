package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	var cmds []tea.Cmd
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(x.Width, x.Height)

	case frameMsg:
		m.r.sched.frame(x.at)

	case timerMsg:
		m.r.sched.fire(x.id)

	case tea.MouseMsg:
		if m.mode == ModeRead && x.Action == tea.MouseActionPress {
			switch x.Button { //nolint:exhaustive // only the wheel scrolls
			case tea.MouseButtonWheelUp:
				m.scrollBy(-wheelStep)
			case tea.MouseButtonWheelDown:
				m.scrollBy(wheelStep)
			}
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(x)
		cmds = append(cmds, cmd)
	}

	m.sync()
	cmds = append(cmds, m.r.sched.flush())
	return m, tea.Batch(cmds...)
}
