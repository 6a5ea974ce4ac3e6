// Package dao persists the content store's records.
//
// Adapter is implemented by a flat-file JSON backend, a MongoDB backend
// and an in-memory backend for tests. The store never branches on which one it has.
package dao

import (
	"context"
	"regexp"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// DefaultMaxVersions caps version history when no explicit cap is configured.
const DefaultMaxVersions = 200

// Adapter is the storage contract of the content store.
//
// Reads of never-written slots return nil without error.
// Lookups by id or filename return a model NOT_FOUND error when absent.
// Failed I/O is returned as a model STORAGE_FAILURE error.
type Adapter interface {
	ReadCurrent(ctx context.Context) (*model.Content, error)
	// WriteCurrent replaces the published document atomically.
	WriteCurrent(ctx context.Context, content *model.Content) error

	ReadDraft(ctx context.Context) (*model.Content, error)
	WriteDraft(ctx context.Context, content *model.Content) error
	ClearDraft(ctx context.Context) error

	// AppendVersion stores v and prunes the oldest versions beyond the cap.
	AppendVersion(ctx context.Context, v *model.Version) error
	// ListVersions returns at most limit versions, newest first. limit <= 0 means all.
	ListVersions(ctx context.Context, limit int) ([]*model.Version, error)
	ReadVersion(ctx context.Context, versionID string) (*model.Version, error)

	AppendBackup(ctx context.Context, b *model.Backup) error
	// ListBackups returns backup metadata, newest first.
	ListBackups(ctx context.Context) ([]*model.BackupMeta, error)
	ReadBackup(ctx context.Context, filename string) (*model.Backup, error)
	DeleteBackup(ctx context.Context, filename string) (bool, error)

	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	// ListAudit returns at most limit entries, newest first. limit <= 0 means all.
	ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error)

	PutMedia(ctx context.Context, asset *model.MediaAsset) error
	// ListMedia returns the media index, newest first.
	ListMedia(ctx context.Context) ([]*model.MediaAsset, error)
	DeleteMedia(ctx context.Context, filename string) (bool, error)

	Close(ctx context.Context) error
}

var (
	versionIDRegexp = regexp.MustCompile(`^[0-9A-Za-z]{1,64}$`)
	filenameRegexp  = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]{0,254}$`)
)

// checkVersionID rejects ids that cannot have been generated by the store.
func checkVersionID(id string) error {
	if !versionIDRegexp.MatchString(id) {
		return model.NotFoundf("version %q not found", id)
	}
	return nil
}

// checkFilename rejects names that would escape their directory.
func checkFilename(name string) error {
	if !filenameRegexp.MatchString(name) {
		return model.InvalidArgumentf("invalid filename %q", name)
	}
	return nil
}

// Option configures an adapter.
type Option func(*adapterOptions)

type adapterOptions struct {
	maxVersions int
}

// WithMaxVersions sets the version history cap.
func WithMaxVersions(n int) Option {
	return func(o *adapterOptions) {
		o.maxVersions = n
	}
}

func applyOptions(opts []Option) adapterOptions {
	o := adapterOptions{maxVersions: DefaultMaxVersions}
	for _, f := range opts {
		f(&o)
	}
	if o.maxVersions <= 0 {
		o.maxVersions = DefaultMaxVersions
	}

	return o
}
