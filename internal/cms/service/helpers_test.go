package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/model"
)

// stepClock advances one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// memoryStorage keeps media bytes in memory.
type memoryStorage struct {
	mu         sync.Mutex
	files      map[string][]byte
	failPut    error
	failDelete error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (m *memoryStorage) Put(_ context.Context, filename, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return "", m.failPut
	}
	if _, ok := m.files[filename]; ok {
		return "", errors.Errorf("%s already exists", filename)
	}

	m.files[filename] = append([]byte(nil), data...)
	return m.URL(filename), nil
}

func (m *memoryStorage) Delete(_ context.Context, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return false, m.failDelete
	}

	_, ok := m.files[filename]
	delete(m.files, filename)
	return ok, nil
}

func (m *memoryStorage) URL(filename string) string {
	return "/uploads/" + filename
}

func (m *memoryStorage) has(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filename]
	return ok
}

// recordingCache is an in-process ContentCache that counts invalidations.
type recordingCache struct {
	mu          sync.Mutex
	content     *model.Content
	gen         int64
	hits        int
	invalidated int
}

func (c *recordingCache) Get(context.Context) (*model.Content, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.content == nil {
		return nil, false
	}

	c.hits++
	cp, _ := c.content.Clone() // nolint: errcheck
	return cp, true
}

func (c *recordingCache) Generation(context.Context) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, true
}

func (c *recordingCache) Set(_ context.Context, gen int64, content *model.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.content, _ = content.Clone() // nolint: errcheck
}

func (c *recordingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = nil
	c.gen++
	c.invalidated++
}

// gatedAdapter holds the first armed ReadCurrent after it has read, until release is closed.
type gatedAdapter struct {
	dao.Adapter
	armed   atomic.Bool
	reading chan struct{}
	release chan struct{}
}

func newGatedAdapter(inner dao.Adapter) *gatedAdapter {
	return &gatedAdapter{
		Adapter: inner,
		reading: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedAdapter) ReadCurrent(ctx context.Context) (*model.Content, error) {
	c, err := g.Adapter.ReadCurrent(ctx)
	if g.armed.CompareAndSwap(true, false) {
		close(g.reading)
		<-g.release
	}

	return c, err
}

type testEnv struct {
	cms     *CMS
	mem     *dao.Memory
	storage *memoryStorage
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		mem:     dao.NewMemory(),
		storage: newMemoryStorage(),
	}
	opts = append([]Option{
		WithLogger(logSDK.Shared.Named("test_cms")),
		WithClock(newStepClock().Now),
	}, opts...)

	var err error
	env.cms, err = New(env.mem, env.storage, opts...)
	require.NoError(t, err)
	return env
}

func decode(t *testing.T, raw string) *model.Content {
	t.Helper()

	c, err := model.DecodeContent([]byte(raw))
	require.NoError(t, err)
	return c
}

func namedContent(t *testing.T, name string) *model.Content {
	t.Helper()

	c := model.Seed()
	c.Institute.Name = name
	c.Courses = []model.Course{{Slug: "devops", Title: "DevOps", Fees: model.NewFlexString("25000"), Tools: []string{"docker"}}}
	return c
}

func versionCount(t *testing.T, s *CMS) int {
	t.Helper()

	versions, err := s.adapter.ListVersions(context.Background(), 0)
	require.NoError(t, err)
	return len(versions)
}
