package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/library/db/mongo"
)

const (
	colContent   = "content"
	colVersions  = "versions"
	colBackups   = "backups"
	colAuditLogs = "audit_logs"
	colMedia     = "media"

	docPublished = "published"
	docDraft     = "draft"
)

// CollectionGetter is the part of mongo.DB the adapter needs.
type CollectionGetter interface {
	GetCol(colName string) *mongoLib.Collection
}

// MongoAdapter stores every concern in its own collection.
type MongoAdapter struct {
	db     CollectionGetter
	opts   adapterOptions
	logger logSDK.Logger
	now    func() time.Time
}

type contentDoc struct {
	ID        string        `bson:"_id"`
	Doc       bson.RawValue `bson:"doc"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type versionDoc struct {
	ID        string        `bson:"_id"`
	Timestamp time.Time     `bson:"timestamp"`
	User      string        `bson:"user"`
	Label     string        `bson:"label,omitempty"`
	Snapshot  bson.RawValue `bson:"snapshot"`
}

type backupDoc struct {
	ID        string        `bson:"_id"`
	CreatedAt time.Time     `bson:"created_at"`
	CreatedBy string        `bson:"created_by"`
	Size      int64         `bson:"size"`
	Snapshot  bson.RawValue `bson:"snapshot,omitempty"`
}

type auditDoc struct {
	ID        string    `bson:"_id"`
	Timestamp time.Time `bson:"timestamp"`
	User      string    `bson:"user"`
	Action    string    `bson:"action"`
	Detail    string    `bson:"detail,omitempty"`
}

type mediaDoc struct {
	ID         string    `bson:"_id"`
	URL        string    `bson:"url"`
	Size       int64     `bson:"size"`
	MimeType   string    `bson:"mime_type"`
	UploadedAt time.Time `bson:"uploaded_at"`
	UploadedBy string    `bson:"uploaded_by,omitempty"`
}

// NewMongo creates a mongo adapter over db.
func NewMongo(db CollectionGetter, logger logSDK.Logger, opts ...Option) (*MongoAdapter, error) {
	if db == nil {
		return nil, errors.New("mongo db is nil")
	}

	return &MongoAdapter{
		db:     db,
		opts:   applyOptions(opts),
		logger: logger,
		now:    time.Now,
	}, nil
}

// EnsureIndexes creates the secondary indexes used by listings.
func (a *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	if _, err := a.db.GetCol(colAuditLogs).Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
	}); err != nil {
		return model.StorageFailure(err, "create audit index")
	}
	if _, err := a.db.GetCol(colBackups).Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return model.StorageFailure(err, "create backup index")
	}

	return nil
}

// encodeContent stores content as its canonical JSON text in a BSON string.
//
// Admin-defined sections may use "$" keys or integers wider than int64,
// which a BSON document cannot hold unchanged.
func encodeContent(c *model.Content) (raw bson.RawValue, size int, err error) {
	data, err := json.Marshal(c)
	if err != nil {
		return raw, 0, errors.Wrap(err, "marshal content")
	}

	t, value, err := bson.MarshalValue(string(data))
	if err != nil {
		return raw, 0, errors.Wrap(err, "marshal bson content")
	}

	return bson.RawValue{Type: t, Value: value}, len(data), nil
}

// decodeContent reads a stored document. Embedded BSON documents written
// by older releases are still accepted.
func decodeContent(raw bson.RawValue) (*model.Content, error) {
	switch raw.Type {
	case bson.TypeString:
		data, _ := raw.StringValueOK()
		return model.DecodeContent([]byte(data))
	case bson.TypeEmbeddedDocument:
		doc, _ := raw.DocumentOK()
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, errors.Wrap(err, "convert bson content to json")
		}
		return model.DecodeContent(data)
	case 0:
		return nil, errors.New("empty content document")
	default:
		return nil, errors.Errorf("unexpected content type %s", raw.Type)
	}
}

func (a *MongoAdapter) readContent(ctx context.Context, id string) (*model.Content, error) {
	doc := new(contentDoc)
	if err := a.db.GetCol(colContent).FindOne(ctx, bson.M{"_id": id}).Decode(doc); err != nil {
		if mongo.NotFound(err) {
			return nil, nil
		}
		return nil, model.StorageFailure(err, "find content")
	}

	c, err := decodeContent(doc.Doc)
	if err != nil {
		return nil, model.StorageFailure(err, "decode content")
	}

	return c, nil
}

func (a *MongoAdapter) writeContent(ctx context.Context, id string, c *model.Content) error {
	if c == nil {
		return model.InvalidArgumentf("content is nil")
	}

	raw, _, err := encodeContent(c)
	if err != nil {
		return model.StorageFailure(err, "encode content")
	}

	_, err = a.db.GetCol(colContent).ReplaceOne(ctx,
		bson.M{"_id": id},
		contentDoc{ID: id, Doc: raw, UpdatedAt: a.now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return model.StorageFailure(err, "replace content")
}

// ReadCurrent implements Adapter.
func (a *MongoAdapter) ReadCurrent(ctx context.Context) (*model.Content, error) {
	return a.readContent(ctx, docPublished)
}

// WriteCurrent implements Adapter.
func (a *MongoAdapter) WriteCurrent(ctx context.Context, c *model.Content) error {
	return a.writeContent(ctx, docPublished, c)
}

// ReadDraft implements Adapter.
func (a *MongoAdapter) ReadDraft(ctx context.Context) (*model.Content, error) {
	return a.readContent(ctx, docDraft)
}

// WriteDraft implements Adapter.
func (a *MongoAdapter) WriteDraft(ctx context.Context, c *model.Content) error {
	return a.writeContent(ctx, docDraft, c)
}

// ClearDraft implements Adapter.
func (a *MongoAdapter) ClearDraft(ctx context.Context) error {
	_, err := a.db.GetCol(colContent).DeleteOne(ctx, bson.M{"_id": docDraft})
	return model.StorageFailure(err, "delete draft")
}

// AppendVersion implements Adapter.
func (a *MongoAdapter) AppendVersion(ctx context.Context, v *model.Version) error {
	if v == nil || v.VersionID == "" {
		return model.InvalidArgumentf("version id is empty")
	}

	raw, _, err := encodeContent(v.Snapshot)
	if err != nil {
		return model.StorageFailure(err, "encode version snapshot")
	}

	col := a.db.GetCol(colVersions)
	if _, err = col.InsertOne(ctx, versionDoc{
		ID:        v.VersionID,
		Timestamp: v.Timestamp,
		User:      v.User,
		Label:     v.Label,
		Snapshot:  raw,
	}); err != nil {
		if mongo.IsDuplicateKey(err) {
			return model.InvalidArgumentf("version %q already exists", v.VersionID)
		}
		return model.StorageFailure(err, "insert version")
	}

	return a.pruneVersions(ctx, col)
}

// pruneVersions deletes every version older than the newest maxVersions.
func (a *MongoAdapter) pruneVersions(ctx context.Context, col *mongoLib.Collection) error {
	boundary := new(versionDoc)
	err := col.FindOne(ctx, bson.M{},
		options.FindOne().
			SetSort(bson.D{{Key: "_id", Value: -1}}).
			SetSkip(int64(a.opts.maxVersions-1)).
			SetProjection(bson.M{"_id": 1}),
	).Decode(boundary)
	if err != nil {
		if mongo.NotFound(err) {
			return nil
		}
		return model.StorageFailure(err, "find version boundary")
	}

	ret, err := col.DeleteMany(ctx, bson.M{"_id": bson.M{"$lt": boundary.ID}})
	if err != nil {
		return model.StorageFailure(err, "prune versions")
	}
	if ret.DeletedCount > 0 {
		a.logger.Debug("pruned versions", zap.Int64("n", ret.DeletedCount))
	}

	return nil
}

func (d *versionDoc) toModel() (*model.Version, error) {
	snapshot, err := decodeContent(d.Snapshot)
	if err != nil {
		return nil, errors.Wrapf(err, "decode version %s", d.ID)
	}

	return &model.Version{
		VersionID: d.ID,
		Timestamp: d.Timestamp,
		User:      d.User,
		Label:     d.Label,
		Snapshot:  snapshot,
	}, nil
}

// ListVersions implements Adapter.
func (a *MongoAdapter) ListVersions(ctx context.Context, limit int) ([]*model.Version, error) {
	opt := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opt.SetLimit(int64(limit))
	}

	cur, err := a.db.GetCol(colVersions).Find(ctx, bson.M{}, opt)
	if err != nil {
		return nil, model.StorageFailure(err, "find versions")
	}

	var docs []*versionDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, model.StorageFailure(err, "decode versions")
	}

	versions := make([]*model.Version, 0, len(docs))
	for _, d := range docs {
		v, err := d.toModel()
		if err != nil {
			return nil, model.StorageFailure(err, "decode versions")
		}
		versions = append(versions, v)
	}

	return versions, nil
}

// ReadVersion implements Adapter.
func (a *MongoAdapter) ReadVersion(ctx context.Context, versionID string) (*model.Version, error) {
	if err := checkVersionID(versionID); err != nil {
		return nil, err
	}

	doc := new(versionDoc)
	if err := a.db.GetCol(colVersions).FindOne(ctx, bson.M{"_id": versionID}).Decode(doc); err != nil {
		if mongo.NotFound(err) {
			return nil, model.NotFoundf("version %q not found", versionID)
		}
		return nil, model.StorageFailure(err, "find version")
	}

	v, err := doc.toModel()
	if err != nil {
		return nil, model.StorageFailure(err, "decode version")
	}

	return v, nil
}

// AppendBackup implements Adapter.
func (a *MongoAdapter) AppendBackup(ctx context.Context, b *model.Backup) error {
	if b == nil {
		return model.InvalidArgumentf("backup is nil")
	}
	if err := checkFilename(b.Filename); err != nil {
		return err
	}

	raw, size, err := encodeContent(b.Snapshot)
	if err != nil {
		return model.StorageFailure(err, "encode backup snapshot")
	}

	if _, err = a.db.GetCol(colBackups).InsertOne(ctx, backupDoc{
		ID:        b.Filename,
		CreatedAt: b.CreatedAt,
		CreatedBy: b.CreatedBy,
		Size:      int64(size),
		Snapshot:  raw,
	}); err != nil {
		if mongo.IsDuplicateKey(err) {
			return model.InvalidArgumentf("backup %q already exists", b.Filename)
		}
		return model.StorageFailure(err, "insert backup")
	}

	return nil
}

// ListBackups implements Adapter.
func (a *MongoAdapter) ListBackups(ctx context.Context) ([]*model.BackupMeta, error) {
	cur, err := a.db.GetCol(colBackups).Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetProjection(bson.M{"snapshot": 0}),
	)
	if err != nil {
		return nil, model.StorageFailure(err, "find backups")
	}

	var docs []*backupDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, model.StorageFailure(err, "decode backups")
	}

	metas := make([]*model.BackupMeta, 0, len(docs))
	for _, d := range docs {
		metas = append(metas, &model.BackupMeta{
			Filename:  d.ID,
			CreatedAt: d.CreatedAt,
			CreatedBy: d.CreatedBy,
			Size:      d.Size,
		})
	}

	return metas, nil
}

// ReadBackup implements Adapter.
func (a *MongoAdapter) ReadBackup(ctx context.Context, filename string) (*model.Backup, error) {
	doc := new(backupDoc)
	if err := a.db.GetCol(colBackups).FindOne(ctx, bson.M{"_id": filename}).Decode(doc); err != nil {
		if mongo.NotFound(err) {
			return nil, model.NotFoundf("backup %q not found", filename)
		}
		return nil, model.StorageFailure(err, "find backup")
	}

	snapshot, err := decodeContent(doc.Snapshot)
	if err != nil {
		return nil, model.StorageFailure(err, "decode backup")
	}

	return &model.Backup{
		BackupMeta: model.BackupMeta{
			Filename:  doc.ID,
			CreatedAt: doc.CreatedAt,
			CreatedBy: doc.CreatedBy,
			Size:      doc.Size,
		},
		Snapshot: snapshot,
	}, nil
}

// DeleteBackup implements Adapter.
func (a *MongoAdapter) DeleteBackup(ctx context.Context, filename string) (bool, error) {
	if err := checkFilename(filename); err != nil {
		return false, err
	}

	ret, err := a.db.GetCol(colBackups).DeleteOne(ctx, bson.M{"_id": filename})
	if err != nil {
		return false, model.StorageFailure(err, "delete backup")
	}

	return ret.DeletedCount > 0, nil
}

// AppendAudit implements Adapter.
func (a *MongoAdapter) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return model.InvalidArgumentf("audit entry is nil")
	}

	_, err := a.db.GetCol(colAuditLogs).InsertOne(ctx, auditDoc{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		User:      entry.User,
		Action:    string(entry.Action),
		Detail:    entry.Detail,
	})
	return model.StorageFailure(err, "insert audit entry")
}

// ListAudit implements Adapter.
func (a *MongoAdapter) ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	opt := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opt.SetLimit(int64(limit))
	}

	cur, err := a.db.GetCol(colAuditLogs).Find(ctx, bson.M{}, opt)
	if err != nil {
		return nil, model.StorageFailure(err, "find audit logs")
	}

	var docs []*auditDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, model.StorageFailure(err, "decode audit logs")
	}

	entries := make([]*model.AuditEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, &model.AuditEntry{
			ID:        d.ID,
			Timestamp: d.Timestamp,
			User:      d.User,
			Action:    model.AuditAction(d.Action),
			Detail:    d.Detail,
		})
	}

	return entries, nil
}

// PutMedia implements Adapter.
func (a *MongoAdapter) PutMedia(ctx context.Context, asset *model.MediaAsset) error {
	if asset == nil {
		return model.InvalidArgumentf("media asset is nil")
	}
	if err := checkFilename(asset.Filename); err != nil {
		return err
	}

	_, err := a.db.GetCol(colMedia).ReplaceOne(ctx,
		bson.M{"_id": asset.Filename},
		mediaDoc{
			ID:         asset.Filename,
			URL:        asset.URL,
			Size:       asset.Size,
			MimeType:   asset.MimeType,
			UploadedAt: asset.UploadedAt,
			UploadedBy: asset.UploadedBy,
		},
		options.Replace().SetUpsert(true),
	)
	return model.StorageFailure(err, "replace media")
}

// ListMedia implements Adapter.
func (a *MongoAdapter) ListMedia(ctx context.Context) ([]*model.MediaAsset, error) {
	cur, err := a.db.GetCol(colMedia).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, model.StorageFailure(err, "find media")
	}

	var docs []*mediaDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, model.StorageFailure(err, "decode media")
	}

	assets := make([]*model.MediaAsset, 0, len(docs))
	for _, d := range docs {
		assets = append(assets, &model.MediaAsset{
			Filename:   d.ID,
			URL:        d.URL,
			Size:       d.Size,
			MimeType:   d.MimeType,
			UploadedAt: d.UploadedAt,
			UploadedBy: d.UploadedBy,
		})
	}

	return assets, nil
}

// DeleteMedia implements Adapter.
func (a *MongoAdapter) DeleteMedia(ctx context.Context, filename string) (bool, error) {
	ret, err := a.db.GetCol(colMedia).DeleteOne(ctx, bson.M{"_id": filename})
	if err != nil {
		return false, model.StorageFailure(err, "delete media")
	}

	return ret.DeletedCount > 0, nil
}

// Close implements Adapter. The underlying connection is closed when it supports it.
func (a *MongoAdapter) Close(ctx context.Context) error {
	if closer, ok := a.db.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			return errors.Wrap(err, "close mongo")
		}
	}

	return nil
}
