package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/institute-cms/internal/cms/cache"
	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/media"
	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/config"
	"github.com/Laisky/institute-cms/library/db/mongo"
	rlib "github.com/Laisky/institute-cms/library/db/redis"
	"github.com/Laisky/institute-cms/library/log"
)

// store bundles the content store with the resources it owns.
type store struct {
	cms      *service.CMS
	storage  media.Storage
	registry *prometheus.Registry
	redis    *rlib.DB
}

func (s *store) Close(ctx context.Context) error {
	err := s.cms.Close(ctx)
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return errors.Wrap(err, "close store")
	}

	return nil
}

// envOr returns the configured value, or the environment variable when it is empty.
func envOr(value, env string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}

	return os.Getenv(env)
}

// openAdapter opens the persistence backend named by kind.
func openAdapter(ctx context.Context, settings service.Settings, kind string) (dao.Adapter, error) {
	logger := log.Logger.Named("dao")
	opts := []dao.Option{dao.WithMaxVersions(settings.MaxVersions)}

	switch kind {
	case service.StorageJSON:
		root := config.ResolvePath(settings.JSONRoot)
		a, err := dao.NewJSON(root, logger.Named("json"), opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "open json store %q", root)
		}

		logger.Info("use json content store", zap.String("root", root))
		return a, nil
	case service.StorageMongo:
		db, err := mongo.NewDB(ctx, mongo.DialInfo{
			URI:    os.Getenv("CMS_MONGO_URI"),
			Addr:   settings.Mongo.Addr,
			DBName: settings.Mongo.DB,
			User:   settings.Mongo.User,
			Pwd:    envOr(settings.Mongo.Pwd, "CMS_MONGO_PWD"),
			AuthDB: settings.Mongo.AuthDB,
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}

		a, err := dao.NewMongo(db, logger.Named("mongo"), opts...)
		if err != nil {
			_ = db.Close(ctx)
			return nil, errors.Wrap(err, "new mongo store")
		}
		if err = a.EnsureIndexes(ctx); err != nil {
			_ = a.Close(ctx)
			return nil, errors.Wrap(err, "ensure mongo indexes")
		}

		logger.Info("use mongo content store", zap.String("db", settings.Mongo.DB))
		return a, nil
	default:
		return nil, errors.Errorf("unknown storage %q", kind)
	}
}

// openMediaStorage opens the backend that holds uploaded bytes.
func openMediaStorage(settings service.Settings) (media.Storage, error) {
	switch settings.Media.Backend {
	case service.MediaLocal:
		dir := config.ResolvePath(settings.Media.Dir)
		s, err := media.NewLocal(dir, settings.Media.URLPrefix)
		if err != nil {
			return nil, errors.Wrapf(err, "open local media dir %q", dir)
		}
		return s, nil
	case service.MediaMinIO:
		cfg := settings.Media.MinIO
		cfg.SecretKey = envOr(cfg.SecretKey, "CMS_MINIO_SECRET_KEY")
		s, err := media.NewMinIO(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "new minio media storage")
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown media backend %q", settings.Media.Backend)
	}
}

// loadSeed reads the optional seed document.
func loadSeed(settings service.Settings) (*model.Content, error) {
	if settings.SeedFile == "" {
		return nil, nil
	}

	path := config.ResolvePath(settings.SeedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %q", path)
	}

	seed, err := model.DecodeContent(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode seed file %q", path)
	}

	return seed, nil
}

// openStore wires the configured adapter, media storage, cache and metrics into a content store.
func openStore(ctx context.Context, settings service.Settings) (_ *store, err error) {
	adapter, err := openAdapter(ctx, settings, settings.Storage)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = adapter.Close(ctx)
		}
	}()

	storage, err := openMediaStorage(settings)
	if err != nil {
		return nil, err
	}

	seed, err := loadSeed(settings)
	if err != nil {
		return nil, err
	}

	s := &store{
		storage:  storage,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(s.registry)
	if err != nil {
		return nil, errors.Wrap(err, "new metrics")
	}

	opts := []service.Option{
		service.WithLogger(log.Logger.Named("cms")),
		service.WithMetrics(metrics),
		service.WithMaxMediaBytes(settings.Media.MaxBytes),
	}
	if seed != nil {
		opts = append(opts, service.WithSeed(seed))
	}

	if settings.Redis.Addr != "" {
		s.redis = rlib.NewDB(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: envOr(settings.Redis.Pwd, "CMS_REDIS_PWD"),
			DB:       settings.Redis.DB,
		})
		if err := s.redis.Ping(ctx); err != nil {
			// cache errors are misses
			log.Logger.Warn("redis unreachable", zap.Error(err))
		}
		opts = append(opts, service.WithCache(
			cache.New(s.redis.Client(), settings.CacheTTL, log.Logger.Named("cache"))))
	}

	if s.cms, err = service.New(adapter, storage, opts...); err != nil {
		if s.redis != nil {
			_ = s.redis.Close()
		}
		return nil, errors.Wrap(err, "new content store")
	}

	return s, nil
}
