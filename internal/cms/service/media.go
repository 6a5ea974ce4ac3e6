package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/institute-cms/internal/cms/media"
	"github.com/Laisky/institute-cms/internal/cms/model"
)

// GetMediaFiles returns the media index, newest first.
func (s *CMS) GetMediaFiles(ctx context.Context) (assets []*model.MediaAsset, err error) {
	defer func(start time.Time) { s.observe("get_media_files", start, err) }(time.Now())

	if assets, err = s.adapter.ListMedia(ctx); err != nil {
		return nil, errors.Wrap(err, "list media")
	}

	return assets, nil
}

// SaveMediaFile stores an upload under a unique name derived from filename.
//
// The stored name is a sortable unique prefix followed by the sanitized requested
// name, so two uploads of the same name never collide.
func (s *CMS) SaveMediaFile(ctx context.Context, user, filename string, data []byte) (asset *model.MediaAsset, err error) {
	defer func(start time.Time) { s.observe("save_media_file", start, err) }(time.Now())
	user = normalizeUser(user)

	if s.storage == nil {
		return nil, model.StorageFailure(errors.New("media storage is not configured"), "save media")
	}
	if len(data) == 0 {
		return nil, model.InvalidArgumentf("media file is empty")
	}
	if s.maxMediaBytes > 0 && int64(len(data)) > s.maxMediaBytes {
		return nil, model.InvalidArgumentf("media file exceeds %d bytes", s.maxMediaBytes)
	}

	now := s.now()
	prefix, err := s.newULID(now)
	if err != nil {
		return nil, err
	}
	name := media.BuildFilename(prefix, filename)
	mimeType := media.DetectMimeType(name, data)

	url, err := s.storage.Put(ctx, name, mimeType, data)
	if err != nil {
		return nil, model.StorageFailure(err, "store media bytes")
	}

	asset = &model.MediaAsset{
		Filename:   name,
		URL:        url,
		Size:       int64(len(data)),
		MimeType:   mimeType,
		UploadedAt: now,
		UploadedBy: user,
	}
	if err = s.adapter.PutMedia(ctx, asset); err != nil {
		if _, rmErr := s.storage.Delete(ctx, name); rmErr != nil {
			s.logger.Warn("remove orphan media bytes", zap.String("file", name), zap.Error(rmErr))
		}
		return nil, errors.Wrap(err, "index media")
	}

	if err = s.appendAudit(ctx, user, model.AuditActionMediaUpload, name); err != nil {
		return nil, err
	}

	s.logger.Info("media uploaded",
		zap.String("file", name),
		zap.Int("size", len(data)),
		zap.String("user", user))
	return asset, nil
}

// DeleteMediaFile removes the stored bytes, then the index entry.
// Returns false, without error, when neither existed.
// A failed byte delete leaves the index entry in place.
func (s *CMS) DeleteMediaFile(ctx context.Context, user, filename string) (deleted bool, err error) {
	defer func(start time.Time) { s.observe("delete_media_file", start, err) }(time.Now())
	user = normalizeUser(user)

	if !media.IsSafeName(filename) {
		return false, nil
	}

	var bytesDeleted bool
	if s.storage != nil {
		if bytesDeleted, err = s.storage.Delete(ctx, filename); err != nil {
			return false, model.StorageFailure(err, "delete media bytes")
		}
	}

	indexDeleted, err := s.adapter.DeleteMedia(ctx, filename)
	if err != nil {
		if bytesDeleted {
			s.logger.Warn("media bytes deleted but index entry kept",
				zap.String("file", filename), zap.Error(err))
		}
		return false, errors.Wrap(err, "delete media index")
	}

	if !indexDeleted && !bytesDeleted {
		return false, nil
	}

	if err = s.appendAudit(ctx, user, model.AuditActionMediaDelete, filename); err != nil {
		return true, err
	}

	s.logger.Info("media deleted", zap.String("file", filename), zap.String("user", user))
	return true, nil
}
