package dao

import (
	"context"
	"slices"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// CopyStats counts the records written by Copy.
type CopyStats struct {
	Current  bool
	Draft    bool
	Versions int
	Backups  int
	Audit    int
	Media    int
	// Skipped counts records the destination already had.
	Skipped int
}

// Copy writes every record of src into dst, oldest first so that the
// destination keeps the same newest-first listings.
//
// Records rejected by dst as duplicates are skipped, so an interrupted copy can be rerun.
func Copy(ctx context.Context, src, dst Adapter) (stats CopyStats, err error) {
	skip := func(err error) (bool, error) {
		if err == nil {
			return false, nil
		}
		if model.IsCode(err, model.ErrCodeInvalidArgument) {
			stats.Skipped++
			return true, nil
		}
		return false, err
	}

	current, err := src.ReadCurrent(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "read current")
	}
	if current != nil {
		if err = dst.WriteCurrent(ctx, current); err != nil {
			return stats, errors.Wrap(err, "write current")
		}
		stats.Current = true
	}

	draft, err := src.ReadDraft(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "read draft")
	}
	if draft != nil {
		if err = dst.WriteDraft(ctx, draft); err != nil {
			return stats, errors.Wrap(err, "write draft")
		}
		stats.Draft = true
	}

	versions, err := src.ListVersions(ctx, 0)
	if err != nil {
		return stats, errors.Wrap(err, "list versions")
	}
	slices.Reverse(versions)
	for _, v := range versions {
		skipped, err := skip(dst.AppendVersion(ctx, v))
		if err != nil {
			return stats, errors.Wrapf(err, "copy version %q", v.VersionID)
		}
		if !skipped {
			stats.Versions++
		}
	}

	metas, err := src.ListBackups(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list backups")
	}
	slices.Reverse(metas)
	for _, meta := range metas {
		backup, err := src.ReadBackup(ctx, meta.Filename)
		if err != nil {
			return stats, errors.Wrapf(err, "read backup %q", meta.Filename)
		}

		skipped, err := skip(dst.AppendBackup(ctx, backup))
		if err != nil {
			return stats, errors.Wrapf(err, "copy backup %q", meta.Filename)
		}
		if !skipped {
			stats.Backups++
		}
	}

	entries, err := src.ListAudit(ctx, 0)
	if err != nil {
		return stats, errors.Wrap(err, "list audit")
	}
	slices.Reverse(entries)
	for _, entry := range entries {
		skipped, err := skip(dst.AppendAudit(ctx, entry))
		if err != nil {
			return stats, errors.Wrapf(err, "copy audit entry %q", entry.ID)
		}
		if !skipped {
			stats.Audit++
		}
	}

	assets, err := src.ListMedia(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list media")
	}
	slices.Reverse(assets)
	for _, asset := range assets {
		if err = dst.PutMedia(ctx, asset); err != nil {
			return stats, errors.Wrapf(err, "copy media %q", asset.Filename)
		}
		stats.Media++
	}

	return stats, nil
}
