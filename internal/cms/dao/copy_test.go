package dao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := newTestJSON(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, src.WriteCurrent(ctx, testContent(t, "live")))
	require.NoError(t, src.WriteDraft(ctx, testContent(t, "draft")))
	for i := 0; i < 3; i++ {
		require.NoError(t, src.AppendVersion(ctx, &model.Version{
			VersionID: ulid.Make().String(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			User:      "admin",
			Snapshot:  testContent(t, fmt.Sprintf("v%d", i)),
		}))
		require.NoError(t, src.AppendAudit(ctx, &model.AuditEntry{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			User:      "admin",
			Action:    model.AuditActionSave,
		}))
	}
	require.NoError(t, src.AppendBackup(ctx, &model.Backup{
		BackupMeta: model.BackupMeta{Filename: "backup_20240301_100000_a.json", CreatedAt: base, CreatedBy: "admin"},
		Snapshot:   testContent(t, "backup"),
	}))
	require.NoError(t, src.PutMedia(ctx, &model.MediaAsset{
		Filename: "01AAA-logo.png", URL: "/uploads/01AAA-logo.png", Size: 3, MimeType: "image/png", UploadedAt: base,
	}))

	dst := NewMemory()
	stats, err := Copy(ctx, src, dst)
	require.NoError(t, err)
	require.Equal(t, CopyStats{Current: true, Draft: true, Versions: 3, Backups: 1, Audit: 3, Media: 1}, stats)

	current, err := dst.ReadCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", current.Institute.Name)
	require.Contains(t, current.Extra, "testimonials")

	srcVersions, err := src.ListVersions(ctx, 0)
	require.NoError(t, err)
	dstVersions, err := dst.ListVersions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dstVersions, len(srcVersions))
	for i := range srcVersions {
		require.Equal(t, srcVersions[i].VersionID, dstVersions[i].VersionID)
	}

	entries, err := dst.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.True(t, entries[0].Timestamp.After(entries[2].Timestamp))

	backup, err := dst.ReadBackup(ctx, "backup_20240301_100000_a.json")
	require.NoError(t, err)
	require.Equal(t, "backup", backup.Snapshot.Institute.Name)

	// rerun skips what the destination already holds
	stats, err = Copy(ctx, src, dst)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Skipped)
	require.Zero(t, stats.Versions)
	require.Zero(t, stats.Backups)
}

func TestCopyEmptySource(t *testing.T) {
	stats, err := Copy(context.Background(), NewMemory(), NewMemory())
	require.NoError(t, err)
	require.Equal(t, CopyStats{}, stats)
}

func TestCopyWriteFailure(t *testing.T) {
	ctx := context.Background()
	src := NewMemory()
	require.NoError(t, src.WriteCurrent(ctx, testContent(t, "live")))

	dst := NewMemory()
	dst.FailWrites = model.NewError(model.ErrCodeStorageFailure, "disk full")
	_, err := Copy(ctx, src, dst)
	require.Error(t, err)
	require.True(t, model.IsStorageFailure(err))
}
