package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// DefaultHistoryLimit is used when a caller asks for a non-positive number of versions.
const DefaultHistoryLimit = 50

// backupTimeLayout formats the timestamp part of backup filenames.
const backupTimeLayout = "20060102_150405"

// GetVersionHistory returns up to limit versions, newest first.
func (s *CMS) GetVersionHistory(ctx context.Context, limit int) (versions []*model.Version, err error) {
	defer func(start time.Time) { s.observe("get_version_history", start, err) }(time.Now())

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if versions, err = s.adapter.ListVersions(ctx, limit); err != nil {
		return nil, errors.Wrap(err, "list versions")
	}

	return versions, nil
}

// RestoreVersion makes a stored version the published document.
// The replaced document is itself kept as a version.
func (s *CMS) RestoreVersion(ctx context.Context, versionID, user string) (c *model.Content, err error) {
	defer func(start time.Time) { s.observe("restore_version", start, err) }(time.Now())
	user = normalizeUser(user)

	v, err := s.adapter.ReadVersion(ctx, versionID)
	if err != nil {
		return nil, errors.Wrapf(err, "read version %s", versionID)
	}

	if c, err = s.replaceCurrent(ctx, v.Snapshot, user, "before restore of version "+versionID); err != nil {
		return nil, err
	}
	if err = s.appendAudit(ctx, user, model.AuditActionRestoreVersion, "restored version "+versionID); err != nil {
		return nil, err
	}

	s.logger.Info("version restored", zap.String("version", versionID), zap.String("user", user))
	return c, nil
}

// GetBackups lists backup metadata, newest first.
func (s *CMS) GetBackups(ctx context.Context) (metas []*model.BackupMeta, err error) {
	defer func(start time.Time) { s.observe("get_backups", start, err) }(time.Now())

	if metas, err = s.adapter.ListBackups(ctx); err != nil {
		return nil, errors.Wrap(err, "list backups")
	}

	return metas, nil
}

// CreateBackup stores the published document under a new timestamped filename.
func (s *CMS) CreateBackup(ctx context.Context, user string) (filename string, err error) {
	defer func(start time.Time) { s.observe("create_backup", start, err) }(time.Now())
	user = normalizeUser(user)

	current, err := s.readCurrent(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	id, err := s.newULID(now)
	if err != nil {
		return "", err
	}
	filename = "backup_" + now.Format(backupTimeLayout) + "_" + id + ".json"

	if err = s.adapter.AppendBackup(ctx, &model.Backup{
		BackupMeta: model.BackupMeta{
			Filename:  filename,
			CreatedAt: now,
			CreatedBy: user,
		},
		Snapshot: current,
	}); err != nil {
		return "", errors.Wrap(err, "append backup")
	}

	if err = s.appendAudit(ctx, user, model.AuditActionBackup, filename); err != nil {
		return "", err
	}

	s.logger.Info("backup created", zap.String("file", filename), zap.String("user", user))
	return filename, nil
}

// RestoreBackup makes a backup the published document.
// The replaced document is kept as a version.
func (s *CMS) RestoreBackup(ctx context.Context, filename, user string) (c *model.Content, err error) {
	defer func(start time.Time) { s.observe("restore_backup", start, err) }(time.Now())
	user = normalizeUser(user)

	b, err := s.adapter.ReadBackup(ctx, filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read backup %s", filename)
	}

	if c, err = s.replaceCurrent(ctx, b.Snapshot, user, "before restore of backup "+filename); err != nil {
		return nil, err
	}
	if err = s.appendAudit(ctx, user, model.AuditActionRestoreBackup, "restored backup "+filename); err != nil {
		return nil, err
	}

	s.logger.Info("backup restored", zap.String("file", filename), zap.String("user", user))
	return c, nil
}

// DeleteBackup removes a backup. Returns false when it did not exist.
func (s *CMS) DeleteBackup(ctx context.Context, filename, user string) (deleted bool, err error) {
	defer func(start time.Time) { s.observe("delete_backup", start, err) }(time.Now())
	user = normalizeUser(user)

	if deleted, err = s.adapter.DeleteBackup(ctx, filename); err != nil {
		return false, errors.Wrapf(err, "delete backup %s", filename)
	}
	if !deleted {
		return false, nil
	}

	if err = s.appendAudit(ctx, user, model.AuditActionDeleteBackup, filename); err != nil {
		return true, err
	}

	return true, nil
}
