package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

const detailNoDraft = "no pending draft"

// GetContent returns the published document.
//
// An empty store is seeded: the default document is persisted and returned.
func (s *CMS) GetContent(ctx context.Context) (c *model.Content, err error) {
	defer func(start time.Time) { s.observe("get_content", start, err) }(time.Now())

	var (
		gen     int64
		canFill bool
	)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
		gen, canFill = s.cache.Generation(ctx)
	}

	if c, err = s.readCurrent(ctx); err != nil {
		return nil, err
	}
	if canFill {
		s.cache.Set(ctx, gen, c)
	}

	return c, nil
}

// readCurrent reads the published document, seeding the store when it is empty.
func (s *CMS) readCurrent(ctx context.Context) (*model.Content, error) {
	c, err := s.adapter.ReadCurrent(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read current content")
	}
	if c != nil {
		c.Normalize()
		return c, nil
	}

	c = s.seed()
	if err = s.adapter.WriteCurrent(ctx, c); err != nil {
		return nil, errors.Wrap(err, "persist seed content")
	}
	s.logger.Info("seeded empty content store")

	return c, nil
}

// GetDraft returns the pending draft, or nil when there is none.
func (s *CMS) GetDraft(ctx context.Context) (c *model.Content, err error) {
	defer func(start time.Time) { s.observe("get_draft", start, err) }(time.Now())

	if c, err = s.adapter.ReadDraft(ctx); err != nil {
		return nil, errors.Wrap(err, "read draft")
	}
	if c != nil {
		c.Normalize()
	}

	return c, nil
}

// SaveContent replaces the whole document.
//
// The published document is first captured as a version. A draft save only
// touches the draft slot. Validation problems are logged, never fatal.
// Returns the document now live for the requested mode.
func (s *CMS) SaveContent(ctx context.Context, content *model.Content, user string, isDraft bool) (saved *model.Content, err error) {
	defer func(start time.Time) { s.observe("save_content", start, err) }(time.Now())

	if content == nil {
		return nil, model.InvalidArgumentf("content is required")
	}
	user = normalizeUser(user)

	if saved, err = content.Clone(); err != nil {
		return nil, model.InvalidArgumentf("content cannot be encoded: %v", err)
	}
	saved.Normalize()

	logger := s.logger.With(zap.String("user", user), zap.Bool("draft", isDraft))
	if warnings := s.ValidateContent(saved); len(warnings) > 0 {
		s.metrics.validationWarnings(len(warnings))
		for _, w := range warnings {
			logger.Warn("content validation warning",
				zap.String("code", string(w.Code)),
				zap.String("path", w.Path),
				zap.String("message", w.Message))
		}
	}

	mode := "publish"
	if isDraft {
		mode = "draft"
	}
	if err = s.snapshotCurrent(ctx, user, "before save ("+mode+")"); err != nil {
		return nil, err
	}

	if isDraft {
		if err = s.adapter.WriteDraft(ctx, saved); err != nil {
			return nil, errors.Wrap(err, "write draft")
		}
	} else {
		if err = s.adapter.WriteCurrent(ctx, saved); err != nil {
			return nil, errors.Wrap(err, "write current content")
		}
		s.invalidateCache(ctx)
	}

	if err = s.appendAudit(ctx, user, model.AuditActionSave, mode); err != nil {
		return nil, err
	}

	logger.Info("content saved")
	return saved, nil
}

// PublishContent promotes the draft to published and clears it.
//
// Without a pending draft nothing changes: the published document is returned
// and only the audit entry is written.
func (s *CMS) PublishContent(ctx context.Context, user string) (c *model.Content, err error) {
	defer func(start time.Time) { s.observe("publish_content", start, err) }(time.Now())
	user = normalizeUser(user)

	draft, err := s.adapter.ReadDraft(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read draft")
	}
	if draft == nil {
		if c, err = s.readCurrent(ctx); err != nil {
			return nil, err
		}
		if err = s.appendAudit(ctx, user, model.AuditActionPublish, detailNoDraft); err != nil {
			return nil, err
		}
		return c, nil
	}
	draft.Normalize()

	if err = s.snapshotCurrent(ctx, user, "before publish"); err != nil {
		return nil, err
	}
	if err = s.adapter.WriteCurrent(ctx, draft); err != nil {
		return nil, errors.Wrap(err, "write current content")
	}
	s.invalidateCache(ctx)
	if err = s.adapter.ClearDraft(ctx); err != nil {
		return nil, errors.Wrap(err, "clear draft")
	}

	if err = s.appendAudit(ctx, user, model.AuditActionPublish, "draft published"); err != nil {
		return nil, err
	}

	s.logger.Info("draft published", zap.String("user", user))
	return draft, nil
}

// snapshotCurrent stores the published document as a new version.
func (s *CMS) snapshotCurrent(ctx context.Context, user, label string) error {
	current, err := s.readCurrent(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	id, err := s.newULID(now)
	if err != nil {
		return err
	}

	if err = s.adapter.AppendVersion(ctx, &model.Version{
		VersionID: id,
		Timestamp: now,
		User:      user,
		Label:     label,
		Snapshot:  current,
	}); err != nil {
		return errors.Wrap(err, "append version")
	}

	return nil
}

// replaceCurrent snapshots the published document then overwrites it with next.
func (s *CMS) replaceCurrent(ctx context.Context, next *model.Content, user, label string) (*model.Content, error) {
	if next == nil {
		return nil, model.StorageFailure(errors.New("snapshot is empty"), "restore")
	}
	next.Normalize()

	if err := s.snapshotCurrent(ctx, user, label); err != nil {
		return nil, err
	}
	if err := s.adapter.WriteCurrent(ctx, next); err != nil {
		return nil, errors.Wrap(err, "write current content")
	}
	s.invalidateCache(ctx)

	return next, nil
}

func (s *CMS) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
