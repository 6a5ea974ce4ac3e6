package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

type fakeStore struct {
	versions []*model.Version
	backups  []*model.BackupMeta
	audit    []*model.AuditEntry

	restored []string
	users    []string
	fail     error
}

func (f *fakeStore) GetVersionHistory(context.Context, int) ([]*model.Version, error) {
	return f.versions, nil
}

func (f *fakeStore) RestoreVersion(_ context.Context, id, user string) (*model.Content, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.restored = append(f.restored, id)
	f.users = append(f.users, user)
	return model.Seed(), nil
}

func (f *fakeStore) GetBackups(context.Context) ([]*model.BackupMeta, error) {
	return f.backups, nil
}

func (f *fakeStore) CreateBackup(_ context.Context, user string) (string, error) {
	name := "backup_new.json"
	f.backups = append([]*model.BackupMeta{{Filename: name, CreatedBy: user}}, f.backups...)
	return name, nil
}

func (f *fakeStore) RestoreBackup(_ context.Context, filename, user string) (*model.Content, error) {
	f.restored = append(f.restored, filename)
	f.users = append(f.users, user)
	return model.Seed(), nil
}

func (f *fakeStore) GetAuditLogs(context.Context, int) ([]*model.AuditEntry, error) {
	return f.audit, nil
}

func newFakeStore() *fakeStore {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &fakeStore{
		versions: []*model.Version{
			{VersionID: "01B", Timestamp: now, User: "alice", Label: "before save (publish)"},
			{VersionID: "01A", Timestamp: now.Add(-time.Hour), User: "alice"},
		},
		backups: []*model.BackupMeta{{Filename: "backup_20240301_100000_x.json", CreatedAt: now, CreatedBy: "bob"}},
		audit:   []*model.AuditEntry{{ID: "a1", Timestamp: now, User: "alice", Action: model.AuditActionSave, Detail: "publish"}},
	}
}

// step feeds msg to the model and returns the updated model and command.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	for _, tab := range []Tab{TabVersions, TabBackups, TabAudit} {
		m, _ = step(t, m, m.load(tab)())
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelLoadsPanes(t *testing.T) {
	m := loaded(t, NewModel(context.Background(), newFakeStore(), "ops"))

	require.Len(t, m.Items(TabVersions), 2)
	require.Len(t, m.Items(TabBackups), 1)
	require.Len(t, m.Items(TabAudit), 1)
	require.Equal(t, "01B", m.Items(TabVersions)[0].(Item).Key)
	require.Contains(t, m.View(), "Versions")
}

func TestModelSwitchesTabs(t *testing.T) {
	m := loaded(t, NewModel(context.Background(), newFakeStore(), "ops"))

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, TabBackups, m.Tab())
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, TabAudit, m.Tab())
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, TabVersions, m.Tab())
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, TabAudit, m.Tab())

	// audit rows cannot be restored
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.False(t, m.Confirming())
}

func TestModelRestoreVersionNeedsConfirmation(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, NewModel(context.Background(), store, "ops"))

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Confirming())
	require.Contains(t, m.View(), "01B")

	m, cmd := step(t, m, runes("n"))
	require.Nil(t, cmd)
	require.False(t, m.Confirming())
	require.Empty(t, store.restored)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = step(t, m, runes("y"))
	require.NotNil(t, cmd)
	m, reload := step(t, m, cmd())
	require.NotNil(t, reload)

	require.Equal(t, []string{"01B"}, store.restored)
	require.Equal(t, []string{"ops"}, store.users)
	status, err := m.Status()
	require.NoError(t, err)
	require.Equal(t, "restored 01B", status)
}

func TestModelRestoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = errors.New("disk full")
	m := loaded(t, NewModel(context.Background(), store, "ops"))

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := step(t, m, runes("y"))
	m, reload := step(t, m, cmd())
	require.Nil(t, reload)

	_, err := m.Status()
	require.EqualError(t, err, "disk full")
	require.Contains(t, m.View(), "disk full")
}

func TestModelCreateBackup(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, NewModel(context.Background(), store, "ops"))

	m, cmd := step(t, m, runes("b"))
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())
	m, _ = step(t, m, m.load(TabBackups)())

	require.Len(t, m.Items(TabBackups), 2)
	require.Equal(t, "backup_new.json", m.Items(TabBackups)[0].(Item).Key)
	status, _ := m.Status()
	require.Equal(t, "created backup_new.json", status)
}

func TestModelQuit(t *testing.T) {
	m := NewModel(context.Background(), newFakeStore(), "ops")

	m, cmd := step(t, m, runes("q"))
	require.NotNil(t, cmd)
	require.Empty(t, m.View())
}
