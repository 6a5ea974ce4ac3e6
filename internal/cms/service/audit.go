package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// DefaultAuditLimit is used when a caller asks for a non-positive number of entries.
const DefaultAuditLimit = 100

// GetAuditLogs returns up to limit audit entries, newest first.
func (s *CMS) GetAuditLogs(ctx context.Context, limit int) (entries []*model.AuditEntry, err error) {
	defer func(start time.Time) { s.observe("get_audit_logs", start, err) }(time.Now())

	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if entries, err = s.adapter.ListAudit(ctx, limit); err != nil {
		return nil, errors.Wrap(err, "list audit logs")
	}

	return entries, nil
}

func (s *CMS) appendAudit(ctx context.Context, user string, action model.AuditAction, detail string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return errors.Wrap(err, "new audit id")
	}

	if err = s.adapter.AppendAudit(ctx, &model.AuditEntry{
		ID:        id.String(),
		Timestamp: s.now(),
		User:      user,
		Action:    action,
		Detail:    detail,
	}); err != nil {
		return errors.Wrapf(err, "append audit %s", action)
	}

	return nil
}
