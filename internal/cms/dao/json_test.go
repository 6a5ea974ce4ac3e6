package dao

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

func newTestJSON(t *testing.T) *JSONAdapter {
	t.Helper()

	a, err := NewJSON(t.TempDir(), logSDK.Shared.Named("test_json"))
	require.NoError(t, err)
	return a
}

func TestNewJSONRequiresRoot(t *testing.T) {
	_, err := NewJSON("", logSDK.Shared)
	require.Error(t, err)
}

func TestJSONAdapterLayout(t *testing.T) {
	ctx := context.Background()
	a := newTestJSON(t)

	require.NoError(t, a.WriteCurrent(ctx, testContent(t, "x")))
	require.NoError(t, a.WriteDraft(ctx, testContent(t, "y")))
	require.NoError(t, a.AppendAudit(ctx, &model.AuditEntry{ID: "1", Action: model.AuditActionSave}))

	for _, name := range []string{"content.json", "content.draft.json", "audit.log", "versions", "backups"} {
		_, err := os.Stat(filepath.Join(a.Root(), name))
		require.NoError(t, err, name)
	}

	entries, err := os.ReadDir(a.Root())
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestJSONAdapterCorruptContent(t *testing.T) {
	ctx := context.Background()
	a := newTestJSON(t)

	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), jsonCurrentFile), []byte("{not json"), 0o644))
	_, err := a.ReadCurrent(ctx)
	require.True(t, model.IsStorageFailure(err), "got %v", err)
}

func TestJSONAdapterSkipsMalformedAuditLines(t *testing.T) {
	ctx := context.Background()
	a := newTestJSON(t)

	require.NoError(t, a.AppendAudit(ctx, &model.AuditEntry{ID: "1", Action: model.AuditActionSave}))
	fp, err := os.OpenFile(filepath.Join(a.Root(), jsonAuditFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fp.WriteString("garbage\n\n")
	require.NoError(t, err)
	require.NoError(t, fp.Close())
	require.NoError(t, a.AppendAudit(ctx, &model.AuditEntry{ID: "2", Action: model.AuditActionPublish}))

	entries, err := a.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "2", entries[0].ID)
}

func TestJSONAdapterListBackupsIgnoresStrayFiles(t *testing.T) {
	ctx := context.Background()
	a := newTestJSON(t)

	require.NoError(t, a.AppendBackup(ctx, &model.Backup{
		BackupMeta: model.BackupMeta{Filename: "backup_1.json", CreatedAt: time.Now()},
		Snapshot:   testContent(t, "b"),
	}))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), jsonBackupsDir, ".hidden.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), jsonBackupsDir, "broken.json"), []byte("{"), 0o644))

	metas, err := a.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "backup_1.json", metas[0].Filename)
	require.Positive(t, metas[0].Size)
}

func TestJSONAdapterConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	a := newTestJSON(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, a.WriteCurrent(ctx, testContent(t, "c")))
			_, err := a.ReadCurrent(ctx)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := a.ReadCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, "c", got.Institute.Name)
}
