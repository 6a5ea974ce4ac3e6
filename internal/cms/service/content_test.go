package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/model"
)

func TestNewRequiresAdapter(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	_, err = New(dao.NewMemory(), nil, WithClock(nil))
	require.Error(t, err)
}

func TestGetContentSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Seed().Institute.Name, c.Institute.Name)
	require.NotNil(t, c.Courses)
	require.Empty(t, c.Courses)
	require.Contains(t, c.Pages, "home")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.Contains(t, string(data), `"courses":[]`)

	// seed is persisted
	stored, err := env.mem.ReadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, 0, versionCount(t, env.cms))
}

func TestGetContentCustomSeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, WithSeed(namedContent(t, "Acme Academy")))

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "Acme Academy", c.Institute.Name)
	require.Len(t, c.Courses, 1)
}

func TestDraftIsolation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	published, err := env.cms.SaveContent(ctx, namedContent(t, "live"), "admin", false)
	require.NoError(t, err)
	require.Equal(t, "live", published.Institute.Name)

	draft, err := env.cms.SaveContent(ctx, namedContent(t, "pending"), "admin", true)
	require.NoError(t, err)
	require.Equal(t, "pending", draft.Institute.Name)

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", c.Institute.Name)

	got, err := env.cms.GetDraft(ctx)
	require.NoError(t, err)
	require.Equal(t, "pending", got.Institute.Name)
}

func TestPublishPromotesDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.cms.SaveContent(ctx, namedContent(t, "live"), "admin", false)
	require.NoError(t, err)
	_, err = env.cms.SaveContent(ctx, namedContent(t, "pending"), "editor", true)
	require.NoError(t, err)
	before := versionCount(t, env.cms)

	c, err := env.cms.PublishContent(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "pending", c.Institute.Name)

	c, err = env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "pending", c.Institute.Name)

	draft, err := env.cms.GetDraft(ctx)
	require.NoError(t, err)
	require.Nil(t, draft)

	versions, err := env.cms.GetVersionHistory(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, before+1, versionCount(t, env.cms))
	require.Equal(t, "live", versions[0].Snapshot.Institute.Name)
}

func TestPublishWithoutDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.cms.SaveContent(ctx, namedContent(t, "live"), "admin", false)
	require.NoError(t, err)
	before := versionCount(t, env.cms)

	c, err := env.cms.PublishContent(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "live", c.Institute.Name)
	require.Equal(t, before, versionCount(t, env.cms))

	entries, err := env.cms.GetAuditLogs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.AuditActionPublish, entries[0].Action)
	require.Equal(t, detailNoDraft, entries[0].Detail)
}

func TestHistoryGrowsByOnePerMutation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for i, isDraft := range []bool{false, true, false} {
		before, err := env.cms.GetContent(ctx)
		require.NoError(t, err)

		_, err = env.cms.SaveContent(ctx, namedContent(t, string(rune('a'+i))), "admin", isDraft)
		require.NoError(t, err)
		require.Equal(t, i+1, versionCount(t, env.cms))

		versions, err := env.cms.GetVersionHistory(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, before.Institute.Name, versions[0].Snapshot.Institute.Name,
			"newest version holds the document published before the save")
		require.Equal(t, "admin", versions[0].User)
	}
}

func TestSaveContentPreservesUnknownSections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	in := decode(t, `{"institute":{"name":"x","hours":"9-5"},"testimonials":[{"name":"a"}],"courses":[]}`)
	_, err := env.cms.SaveContent(ctx, in, "admin", false)
	require.NoError(t, err)

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":"a"}]`, string(c.Extra["testimonials"]))
	require.JSONEq(t, `"9-5"`, string(c.Institute.Extra["hours"]))
}

func TestSaveContentDoesNotAliasInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	in := namedContent(t, "original")
	_, err := env.cms.SaveContent(ctx, in, "admin", false)
	require.NoError(t, err)
	in.Institute.Name = "mutated"

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "original", c.Institute.Name)
}

func TestSaveContentStorageFailureKeepsPublished(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.cms.SaveContent(ctx, namedContent(t, "live"), "admin", false)
	require.NoError(t, err)

	env.mem.FailWrites = errors.New("disk full")
	_, err = env.cms.SaveContent(ctx, namedContent(t, "broken"), "admin", false)
	require.True(t, model.IsStorageFailure(err), "got %v", err)
	env.mem.FailWrites = nil

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", c.Institute.Name)
}

func TestSaveContentRejectsNil(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.cms.SaveContent(context.Background(), nil, "admin", false)
	require.True(t, model.IsCode(err, model.ErrCodeInvalidArgument))
}

func TestCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	env := newTestEnv(t, WithCache(cache))

	_, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	_, err = env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, cache.hits)

	_, err = env.cms.SaveContent(ctx, namedContent(t, "draft"), "admin", true)
	require.NoError(t, err)
	require.Equal(t, 0, cache.invalidated, "draft saves leave the public document alone")

	_, err = env.cms.PublishContent(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, cache.invalidated)

	c, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "draft", c.Institute.Name)
}

func TestCacheSlowReaderDoesNotRestoreReplacedContent(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	gated := newGatedAdapter(dao.NewMemory())
	cms, err := New(gated, newMemoryStorage(),
		WithLogger(logSDK.Shared.Named("test_cms")),
		WithClock(newStepClock().Now),
		WithCache(cache),
	)
	require.NoError(t, err)

	_, err = cms.SaveContent(ctx, namedContent(t, "A"), "admin", false)
	require.NoError(t, err)

	gated.armed.Store(true)
	readDone := make(chan *model.Content, 1)
	go func() {
		c, err := cms.GetContent(ctx)
		if err != nil {
			readDone <- nil
			return
		}
		readDone <- c
	}()

	// the reader holds "A" while the writer publishes "B"
	<-gated.reading
	_, err = cms.SaveContent(ctx, namedContent(t, "B"), "admin", false)
	require.NoError(t, err)
	close(gated.release)

	stale := <-readDone
	require.NotNil(t, stale)
	require.Equal(t, "A", stale.Institute.Name)

	c, err := cms.GetContent(ctx)
	require.NoError(t, err)
	require.Equal(t, "B", c.Institute.Name)
}
