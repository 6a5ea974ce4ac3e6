package dao

import (
	"context"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

type mtestDB struct {
	db *mongoLib.Database
}

func (d mtestDB) GetCol(name string) *mongoLib.Collection {
	return d.db.Collection(name)
}

func newMockAdapter(t *testing.T, mt *mtest.T, opts ...Option) *MongoAdapter {
	t.Helper()

	a, err := NewMongo(mtestDB{db: mt.DB}, logSDK.Shared.Named("test_mongo"), opts...)
	require.NoError(t, err)
	return a
}

func TestNewMongoRequiresDB(t *testing.T) {
	_, err := NewMongo(nil, logSDK.Shared)
	require.Error(t, err)
}

func TestContentBSONRoundTrip(t *testing.T) {
	c := testContent(t, "bson")

	raw, size, err := encodeContent(c)
	require.NoError(t, err)
	require.Equal(t, bson.TypeString, raw.Type)
	require.Positive(t, size)

	got, err := decodeContent(raw)
	require.NoError(t, err)
	requireSameContent(t, c, got)
	require.Contains(t, got.Extra, "testimonials")

	_, err = decodeContent(bson.RawValue{})
	require.Error(t, err)

	// operator keys and wide integers do not survive a BSON document
	c, err = model.DecodeContent([]byte(`{"schedule":{"$date":"soon"},"stats":{"n":12345678901234567890}}`))
	require.NoError(t, err)
	raw, _, err = encodeContent(c)
	require.NoError(t, err)
	got, err = decodeContent(raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"$date":"soon"}`, string(got.Extra["schedule"]))
	require.JSONEq(t, `{"n":12345678901234567890}`, string(got.Extra["stats"]))
}

func TestContentLegacyEmbeddedDocument(t *testing.T) {
	typ, value, err := bson.MarshalValue(bson.D{{Key: "institute", Value: bson.D{{Key: "name", Value: "old"}}}})
	require.NoError(t, err)

	got, err := decodeContent(bson.RawValue{Type: typ, Value: value})
	require.NoError(t, err)
	require.Equal(t, "old", got.Institute.Name)

	typ, value, err = bson.MarshalValue(int32(1))
	require.NoError(t, err)
	_, err = decodeContent(bson.RawValue{Type: typ, Value: value})
	require.Error(t, err)
}

func TestMongoAdapterMock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("read current absent", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.content", mtest.FirstBatch))

		got, err := a.ReadCurrent(ctx)
		require.NoError(mt, err)
		require.Nil(mt, got)
	})

	mt.Run("read current", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.content", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: docPublished},
			{Key: "doc", Value: bson.D{
				{Key: "courses", Value: bson.A{bson.D{{Key: "slug", Value: "devops"}, {Key: "fees", Value: 25000}}}},
				{Key: "institute", Value: bson.D{{Key: "name", Value: "Acme"}}},
				{Key: "faq", Value: bson.A{"q1"}},
			}},
			{Key: "updated_at", Value: now},
		}))

		got, err := a.ReadCurrent(ctx)
		require.NoError(mt, err)
		require.Equal(mt, "Acme", got.Institute.Name)
		require.Equal(mt, "25000", got.Courses[0].Fees.String())
		require.JSONEq(mt, `["q1"]`, string(got.Extra["faq"]))
	})

	mt.Run("read current failure", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))

		_, err := a.ReadCurrent(ctx)
		require.True(mt, model.IsStorageFailure(err), "got %v", err)
	})

	mt.Run("write current", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, a.WriteCurrent(ctx, testContent(mt.T, "x")))
	})

	mt.Run("append version without pruning", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "db.versions", mtest.FirstBatch),
		)

		require.NoError(mt, a.AppendVersion(ctx, &model.Version{
			VersionID: "01HZZZZZZZZZZZZZZZZZZZZZZZ",
			Timestamp: now,
			User:      "admin",
			Snapshot:  testContent(mt.T, "v"),
		}))
	})

	mt.Run("append version prunes", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt, WithMaxVersions(2))
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "db.versions", mtest.FirstBatch, bson.D{{Key: "_id", Value: "01B"}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)

		require.NoError(mt, a.AppendVersion(ctx, &model.Version{
			VersionID: "01C",
			Timestamp: now,
			Snapshot:  testContent(mt.T, "v"),
		}))
	})

	mt.Run("append version duplicate", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := a.AppendVersion(ctx, &model.Version{VersionID: "01C", Snapshot: testContent(mt.T, "v")})
		require.True(mt, model.IsCode(err, model.ErrCodeInvalidArgument), "got %v", err)
	})

	mt.Run("list versions", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		snapshot := bson.D{{Key: "institute", Value: bson.D{{Key: "name", Value: "snap"}}}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.versions", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "01B"}, {Key: "timestamp", Value: now}, {Key: "user", Value: "a"}, {Key: "snapshot", Value: snapshot}},
			bson.D{{Key: "_id", Value: "01A"}, {Key: "timestamp", Value: now}, {Key: "user", Value: "b"}, {Key: "snapshot", Value: snapshot}},
		))

		versions, err := a.ListVersions(ctx, 10)
		require.NoError(mt, err)
		require.Len(mt, versions, 2)
		require.Equal(mt, "01B", versions[0].VersionID)
		require.Equal(mt, "snap", versions[1].Snapshot.Institute.Name)
	})

	mt.Run("read version missing", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.versions", mtest.FirstBatch))

		_, err := a.ReadVersion(ctx, "01ABC")
		require.True(mt, model.IsNotFound(err))
	})

	mt.Run("list backups", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.backups", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "backup_2.json"}, {Key: "created_at", Value: now}, {Key: "created_by", Value: "a"}, {Key: "size", Value: int64(10)}},
		))

		metas, err := a.ListBackups(ctx)
		require.NoError(mt, err)
		require.Len(mt, metas, 1)
		require.Equal(mt, "backup_2.json", metas[0].Filename)
		require.Equal(mt, int64(10), metas[0].Size)
	})

	mt.Run("read backup missing", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.backups", mtest.FirstBatch))

		_, err := a.ReadBackup(ctx, "backup_x.json")
		require.True(mt, model.IsNotFound(err))
	})

	mt.Run("delete backup", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		deleted, err := a.DeleteBackup(ctx, "backup_x.json")
		require.NoError(mt, err)
		require.True(mt, deleted)

		deleted, err = a.DeleteBackup(ctx, "backup_x.json")
		require.NoError(mt, err)
		require.False(mt, deleted)
	})

	mt.Run("list audit", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.audit_logs", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "2"}, {Key: "timestamp", Value: now}, {Key: "user", Value: "a"}, {Key: "action", Value: "publish"}},
			bson.D{{Key: "_id", Value: "1"}, {Key: "timestamp", Value: now}, {Key: "user", Value: "a"}, {Key: "action", Value: "save"}, {Key: "detail", Value: "draft"}},
		))

		entries, err := a.ListAudit(ctx, 2)
		require.NoError(mt, err)
		require.Len(mt, entries, 2)
		require.Equal(mt, model.AuditActionPublish, entries[0].Action)
		require.Equal(mt, "draft", entries[1].Detail)
	})

	mt.Run("media", func(mt *mtest.T) {
		a := newMockAdapter(mt.T, mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, "db.media", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "01A-logo.png"}, {Key: "url", Value: "/uploads/01A-logo.png"}, {Key: "size", Value: int64(3)}, {Key: "mime_type", Value: "image/png"}, {Key: "uploaded_at", Value: now}},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, a.PutMedia(ctx, &model.MediaAsset{Filename: "01A-logo.png", URL: "/uploads/01A-logo.png", Size: 3}))

		assets, err := a.ListMedia(ctx)
		require.NoError(mt, err)
		require.Len(mt, assets, 1)
		require.Equal(mt, "image/png", assets[0].MimeType)

		deleted, err := a.DeleteMedia(ctx, "01A-other.png")
		require.NoError(mt, err)
		require.False(mt, deleted)
	})
}
