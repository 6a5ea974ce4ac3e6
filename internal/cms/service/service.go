// Package service is the content store: the single source of truth for site content,
// with draft and publish, version history, backups, media and an audit log.
package service

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/oklog/ulid/v2"

	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/media"
	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/library/log"
)

// Clock returns the current time.
type Clock func() time.Time

// ContentCache caches the published document between reads.
//
// Every Invalidate moves the generation. Set must drop a document read under
// an older generation, so a slow reader cannot put back what a writer replaced.
type ContentCache interface {
	Get(ctx context.Context) (*model.Content, bool)
	Generation(ctx context.Context) (gen int64, ok bool)
	Set(ctx context.Context, gen int64, content *model.Content)
	Invalidate(ctx context.Context)
}

// DefaultMaxMediaBytes bounds a single upload.
const DefaultMaxMediaBytes = 10 << 20

// CMS is the content store.
//
// It holds no content in memory: every call reads or writes through the adapter.
// Concurrent saves are not serialized, the last write wins and each save still
// records the version it replaced.
type CMS struct {
	adapter       dao.Adapter
	storage       media.Storage
	logger        logSDK.Logger
	clock         Clock
	cache         ContentCache
	metrics       *Metrics
	validator     *Validator
	seed          func() *model.Content
	maxMediaBytes int64

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// Option configures a CMS.
type Option func(*CMS) error

// WithLogger sets the logger.
func WithLogger(logger logSDK.Logger) Option {
	return func(s *CMS) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock sets the time source for versions, backups and audit entries.
func WithClock(clock Clock) Option {
	return func(s *CMS) error {
		if clock == nil {
			return errors.New("clock is nil")
		}
		s.clock = clock
		return nil
	}
}

// WithCache enables the published content cache.
func WithCache(cache ContentCache) Option {
	return func(s *CMS) error {
		s.cache = cache
		return nil
	}
}

// WithMetrics records store operations.
func WithMetrics(m *Metrics) Option {
	return func(s *CMS) error {
		s.metrics = m
		return nil
	}
}

// WithSeed replaces the document served to an empty store.
func WithSeed(seed *model.Content) Option {
	return func(s *CMS) error {
		if seed == nil {
			return errors.New("seed is nil")
		}

		frozen, err := seed.Clone()
		if err != nil {
			return errors.Wrap(err, "clone seed")
		}
		frozen.Normalize()

		s.seed = func() *model.Content {
			c, _ := frozen.Clone() // nolint: errcheck
			return c
		}
		return nil
	}
}

// WithMaxMediaBytes bounds uploads. n <= 0 means unlimited.
func WithMaxMediaBytes(n int64) Option {
	return func(s *CMS) error {
		s.maxMediaBytes = n
		return nil
	}
}

// New creates the content store over adapter and storage.
// storage may be nil when media uploads are not served.
func New(adapter dao.Adapter, storage media.Storage, opts ...Option) (*CMS, error) {
	if adapter == nil {
		return nil, errors.New("adapter is required")
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, errors.Wrap(err, "new validator")
	}

	s := &CMS{
		adapter:       adapter,
		storage:       storage,
		logger:        log.Logger.Named("cms"),
		clock:         func() time.Time { return time.Now().UTC() },
		validator:     validator,
		seed:          model.Seed,
		maxMediaBytes: DefaultMaxMediaBytes,
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}
	for _, f := range opts {
		if err := f(s); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	return s, nil
}

// Close releases the adapter.
func (s *CMS) Close(ctx context.Context) error {
	return s.adapter.Close(ctx)
}

func (s *CMS) now() time.Time {
	return s.clock().UTC()
}

// newULID returns a lexicographically sortable id, strictly increasing within this process.
func (s *CMS) newULID(t time.Time) (string, error) {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", errors.Wrap(err, "new ulid")
	}

	return id.String(), nil
}

func normalizeUser(user string) string {
	if user == "" {
		return "anonymous"
	}
	return user
}

// observe records the duration and outcome of op.
func (s *CMS) observe(op string, start time.Time, err error) {
	s.metrics.observe(op, start, err)
}
