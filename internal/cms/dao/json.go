package dao

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

const (
	jsonCurrentFile = "content.json"
	jsonDraftFile   = "content.draft.json"
	jsonVersionsDir = "versions"
	jsonBackupsDir  = "backups"
	jsonAuditFile   = "audit.log"
	jsonMediaFile   = "media.json"

	backupReadConcurrency = 8
)

// JSONAdapter stores every concern as files under one root directory.
//
//	content.json        published document
//	content.draft.json  pending draft
//	versions/<id>.json  one file per version
//	backups/<filename>  one file per backup
//	audit.log           JSON lines, append-only
//	media.json          media index
type JSONAdapter struct {
	root   string
	opts   adapterOptions
	logger logSDK.Logger
	mu     sync.RWMutex
}

// NewJSON creates the directory layout under root if needed.
func NewJSON(root string, logger logSDK.Logger, opts ...Option) (*JSONAdapter, error) {
	if root == "" {
		return nil, errors.New("json storage root is empty")
	}

	for _, dir := range []string{root, filepath.Join(root, jsonVersionsDir), filepath.Join(root, jsonBackupsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.StorageFailure(err, "create storage dir")
		}
	}

	return &JSONAdapter{
		root:   root,
		opts:   applyOptions(opts),
		logger: logger,
	}, nil
}

// Root returns the storage directory.
func (a *JSONAdapter) Root() string {
	return a.root
}

func (a *JSONAdapter) path(elem ...string) string {
	return filepath.Join(append([]string{a.root}, elem...)...)
}

// writeFileAtomic writes data to a temp file in the same directory then renames it over path,
// so readers see either the old or the new file.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename temp file")
	}

	return nil
}

// readJSON decodes path into v, found is false when the file does not exist.
func readJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read %s", filepath.Base(path))
	}

	if err = json.Unmarshal(data, v); err != nil {
		return true, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}

	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}

	return writeFileAtomic(path, data)
}

func (a *JSONAdapter) readContent(name string) (*model.Content, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c := new(model.Content)
	found, err := readJSON(a.path(name), c)
	if err != nil {
		return nil, model.StorageFailure(err, "read content")
	}
	if !found {
		return nil, nil
	}

	return c, nil
}

func (a *JSONAdapter) writeContent(name string, c *model.Content) error {
	if c == nil {
		return model.InvalidArgumentf("content is nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return model.StorageFailure(writeJSON(a.path(name), c), "write content")
}

// ReadCurrent implements Adapter.
func (a *JSONAdapter) ReadCurrent(ctx context.Context) (*model.Content, error) {
	return a.readContent(jsonCurrentFile)
}

// WriteCurrent implements Adapter.
func (a *JSONAdapter) WriteCurrent(ctx context.Context, c *model.Content) error {
	return a.writeContent(jsonCurrentFile, c)
}

// ReadDraft implements Adapter.
func (a *JSONAdapter) ReadDraft(ctx context.Context) (*model.Content, error) {
	return a.readContent(jsonDraftFile)
}

// WriteDraft implements Adapter.
func (a *JSONAdapter) WriteDraft(ctx context.Context, c *model.Content) error {
	return a.writeContent(jsonDraftFile, c)
}

// ClearDraft implements Adapter.
func (a *JSONAdapter) ClearDraft(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.path(jsonDraftFile)); err != nil && !os.IsNotExist(err) {
		return model.StorageFailure(err, "remove draft")
	}

	return nil
}

// versionIDs returns stored version ids, newest first. Caller holds the lock.
func (a *JSONAdapter) versionIDs() ([]string, error) {
	entries, err := os.ReadDir(a.path(jsonVersionsDir))
	if err != nil {
		return nil, errors.Wrap(err, "list versions")
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	// ulid ids sort lexicographically by time
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// AppendVersion implements Adapter.
func (a *JSONAdapter) AppendVersion(ctx context.Context, v *model.Version) error {
	if v == nil || v.VersionID == "" {
		return model.InvalidArgumentf("version id is empty")
	}
	if err := checkVersionID(v.VersionID); err != nil {
		return model.InvalidArgumentf("invalid version id %q", v.VersionID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := writeJSON(a.path(jsonVersionsDir, v.VersionID+".json"), v); err != nil {
		return model.StorageFailure(err, "write version")
	}

	ids, err := a.versionIDs()
	if err != nil {
		return model.StorageFailure(err, "prune versions")
	}
	for _, id := range ids[min(len(ids), a.opts.maxVersions):] {
		if err := os.Remove(a.path(jsonVersionsDir, id+".json")); err != nil && !os.IsNotExist(err) {
			return model.StorageFailure(err, "prune versions")
		}
		a.logger.Debug("pruned version", zap.String("version", id))
	}

	return nil
}

// ListVersions implements Adapter.
func (a *JSONAdapter) ListVersions(ctx context.Context, limit int) ([]*model.Version, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids, err := a.versionIDs()
	if err != nil {
		return nil, model.StorageFailure(err, "list versions")
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	versions := make([]*model.Version, 0, len(ids))
	for _, id := range ids {
		v := new(model.Version)
		found, err := readJSON(a.path(jsonVersionsDir, id+".json"), v)
		if err != nil {
			return nil, model.StorageFailure(err, "read version")
		}
		if found {
			versions = append(versions, v)
		}
	}

	return versions, nil
}

// ReadVersion implements Adapter.
func (a *JSONAdapter) ReadVersion(ctx context.Context, versionID string) (*model.Version, error) {
	if err := checkVersionID(versionID); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	v := new(model.Version)
	found, err := readJSON(a.path(jsonVersionsDir, versionID+".json"), v)
	if err != nil {
		return nil, model.StorageFailure(err, "read version")
	}
	if !found {
		return nil, model.NotFoundf("version %q not found", versionID)
	}

	return v, nil
}

// AppendBackup implements Adapter.
func (a *JSONAdapter) AppendBackup(ctx context.Context, b *model.Backup) error {
	if b == nil {
		return model.InvalidArgumentf("backup is nil")
	}
	if err := checkFilename(b.Filename); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.path(jsonBackupsDir, b.Filename)
	if _, err := os.Stat(p); err == nil {
		return model.InvalidArgumentf("backup %q already exists", b.Filename)
	}

	return model.StorageFailure(writeJSON(p, b), "write backup")
}

// ListBackups implements Adapter.
//
// Backup files are decoded concurrently, only their metadata is kept.
func (a *JSONAdapter) ListBackups(ctx context.Context) ([]*model.BackupMeta, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries, err := os.ReadDir(a.path(jsonBackupsDir))
	if err != nil {
		return nil, model.StorageFailure(err, "list backups")
	}

	var (
		mu    sync.Mutex
		metas = make([]*model.BackupMeta, 0, len(entries))
	)
	pool, gctx := errgroup.WithContext(ctx)
	pool.SetLimit(backupReadConcurrency)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || checkFilename(name) != nil {
			continue
		}

		pool.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p := a.path(jsonBackupsDir, name)
			info, err := os.Stat(p)
			if err != nil {
				return errors.Wrapf(err, "stat backup %s", name)
			}

			meta := new(model.BackupMeta)
			if _, err = readJSON(p, meta); err != nil {
				a.logger.Warn("skip unreadable backup", zap.String("file", name), zap.Error(err))
				return nil
			}
			if meta.Filename == "" {
				meta.Filename = name
			}
			meta.Size = info.Size()

			mu.Lock()
			metas = append(metas, meta)
			mu.Unlock()
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, model.StorageFailure(err, "list backups")
	}

	sortBackupMetas(metas)
	return metas, nil
}

func sortBackupMetas(metas []*model.BackupMeta) {
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].CreatedAt.After(metas[j].CreatedAt)
		}
		return metas[i].Filename > metas[j].Filename
	})
}

// ReadBackup implements Adapter.
func (a *JSONAdapter) ReadBackup(ctx context.Context, filename string) (*model.Backup, error) {
	if checkFilename(filename) != nil {
		return nil, model.NotFoundf("backup %q not found", filename)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	b := new(model.Backup)
	found, err := readJSON(a.path(jsonBackupsDir, filename), b)
	if err != nil {
		return nil, model.StorageFailure(err, "read backup")
	}
	if !found {
		return nil, model.NotFoundf("backup %q not found", filename)
	}

	return b, nil
}

// DeleteBackup implements Adapter.
func (a *JSONAdapter) DeleteBackup(ctx context.Context, filename string) (bool, error) {
	if err := checkFilename(filename); err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.path(jsonBackupsDir, filename)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, model.StorageFailure(err, "delete backup")
	}

	return true, nil
}

// AppendAudit implements Adapter.
func (a *JSONAdapter) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return model.InvalidArgumentf("audit entry is nil")
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return model.StorageFailure(err, "encode audit entry")
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	fp, err := os.OpenFile(a.path(jsonAuditFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return model.StorageFailure(err, "open audit log")
	}
	defer fp.Close() // nolint: errcheck

	if _, err = fp.Write(line); err != nil {
		return model.StorageFailure(err, "append audit log")
	}

	return model.StorageFailure(fp.Sync(), "sync audit log")
}

// ListAudit implements Adapter.
func (a *JSONAdapter) ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(a.path(jsonAuditFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.AuditEntry{}, nil
		}
		return nil, model.StorageFailure(err, "read audit log")
	}

	var entries []*model.AuditEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		entry := new(model.AuditEntry)
		if err := json.Unmarshal(line, entry); err != nil {
			a.logger.Warn("skip malformed audit line", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, model.StorageFailure(err, "scan audit log")
	}

	out := make([]*model.AuditEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

// readMediaIndex loads media.json. Caller holds the lock.
func (a *JSONAdapter) readMediaIndex() ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	if _, err := readJSON(a.path(jsonMediaFile), &assets); err != nil {
		return nil, err
	}

	return assets, nil
}

// PutMedia implements Adapter.
func (a *JSONAdapter) PutMedia(ctx context.Context, asset *model.MediaAsset) error {
	if asset == nil {
		return model.InvalidArgumentf("media asset is nil")
	}
	if err := checkFilename(asset.Filename); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	assets, err := a.readMediaIndex()
	if err != nil {
		return model.StorageFailure(err, "read media index")
	}

	replaced := false
	for i := range assets {
		if assets[i].Filename == asset.Filename {
			assets[i] = asset
			replaced = true
		}
	}
	if !replaced {
		assets = append(assets, asset)
	}

	return model.StorageFailure(writeJSON(a.path(jsonMediaFile), assets), "write media index")
}

// ListMedia implements Adapter.
func (a *JSONAdapter) ListMedia(ctx context.Context) ([]*model.MediaAsset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	assets, err := a.readMediaIndex()
	if err != nil {
		return nil, model.StorageFailure(err, "read media index")
	}
	if assets == nil {
		assets = []*model.MediaAsset{}
	}

	sortMedia(assets)
	return assets, nil
}

func sortMedia(assets []*model.MediaAsset) {
	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].UploadedAt.Equal(assets[j].UploadedAt) {
			return assets[i].UploadedAt.After(assets[j].UploadedAt)
		}
		return assets[i].Filename > assets[j].Filename
	})
}

// DeleteMedia implements Adapter.
func (a *JSONAdapter) DeleteMedia(ctx context.Context, filename string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	assets, err := a.readMediaIndex()
	if err != nil {
		return false, model.StorageFailure(err, "read media index")
	}

	kept := assets[:0]
	for _, asset := range assets {
		if asset.Filename != filename {
			kept = append(kept, asset)
		}
	}
	if len(kept) == len(assets) {
		return false, nil
	}

	if err = writeJSON(a.path(jsonMediaFile), kept); err != nil {
		return false, model.StorageFailure(err, "write media index")
	}

	return true, nil
}

// Close implements Adapter.
func (a *JSONAdapter) Close(ctx context.Context) error {
	return nil
}
