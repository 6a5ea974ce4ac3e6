package dao

import (
	"context"
	"sort"
	"sync"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// Memory keeps everything in process memory. Values are cloned on the way in and out.
type Memory struct {
	mu       sync.RWMutex
	opts     adapterOptions
	current  *model.Content
	draft    *model.Content
	versions []*model.Version // oldest first
	backups  map[string]*model.Backup
	audit    []*model.AuditEntry // oldest first
	media    map[string]*model.MediaAsset

	// FailWrites makes every mutating call fail with a storage error when set.
	FailWrites error
}

// NewMemory creates an empty in-memory adapter.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		opts:    applyOptions(opts),
		backups: map[string]*model.Backup{},
		media:   map[string]*model.MediaAsset{},
	}
}

func cloneContent(c *model.Content) (*model.Content, error) {
	if c == nil {
		return nil, nil
	}

	cp, err := c.Clone()
	if err != nil {
		return nil, model.StorageFailure(err, "clone content")
	}
	return cp, nil
}

func cloneVersion(v *model.Version) (*model.Version, error) {
	snapshot, err := cloneContent(v.Snapshot)
	if err != nil {
		return nil, err
	}

	cp := *v
	cp.Snapshot = snapshot
	return &cp, nil
}

func (m *Memory) checkWrite() error {
	return model.StorageFailure(m.FailWrites, "memory write")
}

// ReadCurrent implements Adapter.
func (m *Memory) ReadCurrent(ctx context.Context) (*model.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneContent(m.current)
}

// WriteCurrent implements Adapter.
func (m *Memory) WriteCurrent(ctx context.Context, c *model.Content) error {
	if c == nil {
		return model.InvalidArgumentf("content is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	cp, err := cloneContent(c)
	if err != nil {
		return err
	}
	m.current = cp
	return nil
}

// ReadDraft implements Adapter.
func (m *Memory) ReadDraft(ctx context.Context) (*model.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneContent(m.draft)
}

// WriteDraft implements Adapter.
func (m *Memory) WriteDraft(ctx context.Context, c *model.Content) error {
	if c == nil {
		return model.InvalidArgumentf("content is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	cp, err := cloneContent(c)
	if err != nil {
		return err
	}
	m.draft = cp
	return nil
}

// ClearDraft implements Adapter.
func (m *Memory) ClearDraft(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	m.draft = nil
	return nil
}

// AppendVersion implements Adapter.
func (m *Memory) AppendVersion(ctx context.Context, v *model.Version) error {
	if v == nil || v.VersionID == "" {
		return model.InvalidArgumentf("version id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	for _, existing := range m.versions {
		if existing.VersionID == v.VersionID {
			return model.InvalidArgumentf("version %q already exists", v.VersionID)
		}
	}

	cp, err := cloneVersion(v)
	if err != nil {
		return err
	}
	m.versions = append(m.versions, cp)
	sort.Slice(m.versions, func(i, j int) bool {
		return m.versions[i].VersionID < m.versions[j].VersionID
	})
	if overflow := len(m.versions) - m.opts.maxVersions; overflow > 0 {
		m.versions = append([]*model.Version(nil), m.versions[overflow:]...)
	}

	return nil
}

// ListVersions implements Adapter.
func (m *Memory) ListVersions(ctx context.Context, limit int) ([]*model.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Version, 0, len(m.versions))
	for i := len(m.versions) - 1; i >= 0; i-- {
		cp, err := cloneVersion(m.versions[i])
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

// ReadVersion implements Adapter.
func (m *Memory) ReadVersion(ctx context.Context, versionID string) (*model.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.versions {
		if v.VersionID == versionID {
			return cloneVersion(v)
		}
	}

	return nil, model.NotFoundf("version %q not found", versionID)
}

// AppendBackup implements Adapter.
func (m *Memory) AppendBackup(ctx context.Context, b *model.Backup) error {
	if b == nil {
		return model.InvalidArgumentf("backup is nil")
	}
	if err := checkFilename(b.Filename); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}
	if _, ok := m.backups[b.Filename]; ok {
		return model.InvalidArgumentf("backup %q already exists", b.Filename)
	}

	snapshot, err := cloneContent(b.Snapshot)
	if err != nil {
		return err
	}
	m.backups[b.Filename] = &model.Backup{BackupMeta: b.BackupMeta, Snapshot: snapshot}
	return nil
}

// ListBackups implements Adapter.
func (m *Memory) ListBackups(ctx context.Context) ([]*model.BackupMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metas := make([]*model.BackupMeta, 0, len(m.backups))
	for _, b := range m.backups {
		meta := b.BackupMeta
		metas = append(metas, &meta)
	}
	sortBackupMetas(metas)

	return metas, nil
}

// ReadBackup implements Adapter.
func (m *Memory) ReadBackup(ctx context.Context, filename string) (*model.Backup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.backups[filename]
	if !ok {
		return nil, model.NotFoundf("backup %q not found", filename)
	}

	snapshot, err := cloneContent(b.Snapshot)
	if err != nil {
		return nil, err
	}
	return &model.Backup{BackupMeta: b.BackupMeta, Snapshot: snapshot}, nil
}

// DeleteBackup implements Adapter.
func (m *Memory) DeleteBackup(ctx context.Context, filename string) (bool, error) {
	if err := checkFilename(filename); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return false, err
	}

	_, ok := m.backups[filename]
	delete(m.backups, filename)
	return ok, nil
}

// AppendAudit implements Adapter.
func (m *Memory) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return model.InvalidArgumentf("audit entry is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	cp := *entry
	m.audit = append(m.audit, &cp)
	return nil
}

// ListAudit implements Adapter.
func (m *Memory) ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.AuditEntry, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		cp := *m.audit[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

// PutMedia implements Adapter.
func (m *Memory) PutMedia(ctx context.Context, asset *model.MediaAsset) error {
	if asset == nil {
		return model.InvalidArgumentf("media asset is nil")
	}
	if err := checkFilename(asset.Filename); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return err
	}

	cp := *asset
	m.media[asset.Filename] = &cp
	return nil
}

// ListMedia implements Adapter.
func (m *Memory) ListMedia(ctx context.Context) ([]*model.MediaAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assets := make([]*model.MediaAsset, 0, len(m.media))
	for _, asset := range m.media {
		cp := *asset
		assets = append(assets, &cp)
	}
	sortMedia(assets)

	return assets, nil
}

// DeleteMedia implements Adapter.
func (m *Memory) DeleteMedia(ctx context.Context, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkWrite(); err != nil {
		return false, err
	}

	_, ok := m.media[filename]
	delete(m.media, filename)
	return ok, nil
}

// Close implements Adapter.
func (m *Memory) Close(ctx context.Context) error {
	return nil
}
