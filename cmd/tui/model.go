// Package tui is a terminal browser over the content history.
//
// It lists versions, backups and audit entries, restores a selected version or
// backup after confirmation and creates new backups.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	listLimit  = 200
)

// Store is the part of the content store the browser needs.
type Store interface {
	GetVersionHistory(ctx context.Context, limit int) ([]*model.Version, error)
	RestoreVersion(ctx context.Context, versionID, user string) (*model.Content, error)
	GetBackups(ctx context.Context) ([]*model.BackupMeta, error)
	CreateBackup(ctx context.Context, user string) (string, error)
	RestoreBackup(ctx context.Context, filename, user string) (*model.Content, error)
	GetAuditLogs(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// Tab is one of the browser panes.
type Tab int

const (
	// TabVersions lists version history
	TabVersions Tab = iota
	// TabBackups lists backups
	TabBackups
	// TabAudit lists the audit log
	TabAudit

	tabCount
)

var tabNames = [tabCount]string{"Versions", "Backups", "Audit log"}

// Item is a row of a pane. Key is the version id or backup filename.
type Item struct {
	title       string
	description string
	Key         string
}

// Title implements list.DefaultItem.
func (i Item) Title() string { return i.title }

// Description implements list.DefaultItem.
func (i Item) Description() string { return i.description }

// FilterValue implements list.Item.
func (i Item) FilterValue() string { return i.title }

type loadedMsg struct {
	tab   Tab
	items []list.Item
	err   error
}

type actionMsg struct {
	status string
	err    error
}

type keyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Restore key.Binding
	Backup  key.Binding
	Reload  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	NextTab: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next pane")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev pane")),
	Restore: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "restore")),
	Backup:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "new backup")),
	Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the Bubble Tea model of the browser.
type Model struct {
	ctx   context.Context
	store Store
	user  string

	tab     Tab
	lists   [tabCount]list.Model
	spinner spinner.Model
	loading int

	// confirm holds the row awaiting a restore confirmation
	confirm *Item
	status  string
	err     error

	width    int
	height   int
	quitting bool
}

// NewModel creates a browser acting as user.
func NewModel(ctx context.Context, store Store, user string) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(secondaryColor).
		BorderForeground(secondaryColor)

	m := Model{
		ctx:     ctx,
		store:   store,
		user:    user,
		loading: int(tabCount),
	}
	for i := range m.lists {
		l := list.New(nil, delegate, 80, 20)
		l.Title = tabNames[i]
		l.SetShowHelp(false)
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)
		l.DisableQuitKeybindings()
		m.lists[i] = l
	}

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = lipgloss.NewStyle().Foreground(accentColor)
	return m
}

// Init loads every pane.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(TabVersions), m.load(TabBackups), m.load(TabAudit))
}

// Tab returns the active pane.
func (m Model) Tab() Tab { return m.tab }

// Items returns the rows of a pane.
func (m Model) Items(tab Tab) []list.Item { return m.lists[tab].Items() }

// Status returns the last action result and error.
func (m Model) Status() (string, error) { return m.status, m.err }

// Confirming reports whether a restore awaits confirmation.
func (m Model) Confirming() bool { return m.confirm != nil }

func (m Model) load(tab Tab) tea.Cmd {
	return func() tea.Msg {
		msg := loadedMsg{tab: tab}
		switch tab {
		case TabVersions:
			versions, err := m.store.GetVersionHistory(m.ctx, listLimit)
			msg.err = err
			for _, v := range versions {
				label := v.Label
				if label == "" {
					label = "snapshot"
				}
				msg.items = append(msg.items, Item{
					title:       fmt.Sprintf("%s  %s", v.Timestamp.Local().Format(timeLayout), label),
					description: fmt.Sprintf("by %s  id %s", v.User, v.VersionID),
					Key:         v.VersionID,
				})
			}
		case TabBackups:
			metas, err := m.store.GetBackups(m.ctx)
			msg.err = err
			for _, b := range metas {
				msg.items = append(msg.items, Item{
					title:       b.Filename,
					description: fmt.Sprintf("%s by %s  %d bytes", b.CreatedAt.Local().Format(timeLayout), b.CreatedBy, b.Size),
					Key:         b.Filename,
				})
			}
		case TabAudit:
			entries, err := m.store.GetAuditLogs(m.ctx, listLimit)
			msg.err = err
			for _, e := range entries {
				msg.items = append(msg.items, Item{
					title:       fmt.Sprintf("%s  %s", e.Timestamp.Local().Format(timeLayout), e.Action),
					description: strings.TrimSpace(e.User + "  " + e.Detail),
					Key:         e.ID,
				})
			}
		}

		return msg
	}
}

func (m Model) restore(it Item, tab Tab) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch tab {
		case TabVersions:
			_, err = m.store.RestoreVersion(m.ctx, it.Key, m.user)
		case TabBackups:
			_, err = m.store.RestoreBackup(m.ctx, it.Key, m.user)
		}
		if err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{status: "restored " + it.Key}
	}
}

func (m Model) createBackup() tea.Cmd {
	return func() tea.Msg {
		filename, err := m.store.CreateBackup(m.ctx, m.user)
		if err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{status: "created " + filename}
	}
}

// reloadAll refreshes every pane, actions touch all of them.
func (m *Model) reloadAll() tea.Cmd {
	m.loading += int(tabCount)
	return tea.Batch(m.spinner.Tick, m.load(TabVersions), m.load(TabBackups), m.load(TabAudit))
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for i := range m.lists {
			m.lists[i].SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case loadedMsg:
		if m.loading > 0 {
			m.loading--
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		cmd := m.lists[msg.tab].SetItems(msg.items)
		return m, cmd

	case actionMsg:
		m.status, m.err = msg.status, msg.err
		if msg.err != nil {
			return m, nil
		}
		cmd := m.reloadAll()
		return m, cmd

	case spinner.TickMsg:
		if m.loading == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch {
		case key.Matches(msg, keys.Confirm):
			it := *m.confirm
			m.confirm = nil
			m.status = "restoring " + it.Key
			return m, m.restore(it, m.tab)
		case key.Matches(msg, keys.Cancel), key.Matches(msg, keys.Quit):
			m.confirm = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.Reload):
		m.err = nil
		cmd := m.reloadAll()
		return m, cmd
	case key.Matches(msg, keys.Backup):
		m.err = nil
		m.status = "creating backup"
		return m, m.createBackup()
	case key.Matches(msg, keys.Restore):
		if m.tab == TabAudit {
			return m, nil
		}
		if it, ok := m.lists[m.tab].SelectedItem().(Item); ok {
			m.err = nil
			m.confirm = &it
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.lists[m.tab], cmd = m.lists[m.tab].Update(msg)
	return m, cmd
}

// View renders the browser
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	tabs := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}

	header := headerStyle.Render("institute-cms history")
	if m.loading > 0 {
		header += " " + m.spinner.View()
	}

	var footer string
	switch {
	case m.confirm != nil:
		footer = confirmStyle.Render(fmt.Sprintf("Restore %s as the published content? (y/n)", m.confirm.Key))
	case m.err != nil:
		footer = errorStyle.Render("error: " + m.err.Error())
	case m.status != "":
		footer = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		boxStyle.Render(m.lists[m.tab].View()),
		footer,
		helpStyle.Render("tab switch pane • enter restore • b new backup • r reload • q quit"),
	)
}
