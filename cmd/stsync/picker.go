package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stlauncher/stsync/internal/discovery"
)

var errPickCancelled = errors.New("no server selected")

type serverItem struct {
	server discovery.Server
}

func (i serverItem) Title() string { return i.server.URL }

func (i serverItem) Description() string {
	desc := fmt.Sprintf("%s  %dms", i.server.DataPath, i.server.Latency.Milliseconds())
	if i.server.Version != "" {
		desc += "  v" + i.server.Version
	}
	return desc
}

func (i serverItem) FilterValue() string { return i.server.URL }

type pickerModel struct {
	list   list.Model
	choice *discovery.Server
}

func newPickerModel(servers []discovery.Server) pickerModel {
	items := make([]list.Item, 0, len(servers))
	for _, s := range servers {
		items = append(items, serverItem{server: s})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(cyan.GetForeground()).BorderForeground(cyan.GetForeground())
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lightGray.GetForeground()).BorderForeground(cyan.GetForeground())

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a sync server"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if item, ok := m.list.SelectedItem().(serverItem); ok {
				m.choice = &item.server
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

func pickServer(servers []discovery.Server) (*discovery.Server, error) {
	final, err := tea.NewProgram(newPickerModel(servers)).Run()
	if err != nil {
		return nil, fmt.Errorf("server picker: %w", err)
	}

	if m, ok := final.(pickerModel); ok && m.choice != nil {
		return m.choice, nil
	}
	return nil, errPickCancelled
}
