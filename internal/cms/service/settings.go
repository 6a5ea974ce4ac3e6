package service

import (
	"strconv"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/media"
)

// Storage backends.
const (
	StorageJSON  = "json"
	StorageMongo = "mongo"
)

// Media backends.
const (
	MediaLocal = "local"
	MediaMinIO = "minio"
)

// Settings captures the content store configuration.
type Settings struct {
	Storage     string
	JSONRoot    string
	MaxVersions int
	SeedFile    string
	Media       MediaSettings
	Mongo       MongoSettings
	Redis       RedisSettings
	CacheTTL    time.Duration
}

// MediaSettings selects where uploaded bytes live.
type MediaSettings struct {
	Backend   string
	Dir       string
	URLPrefix string
	MaxBytes  int64
	MinIO     media.MinIOConfig
}

// MongoSettings locates the mongo database of the mongo backend.
type MongoSettings struct {
	Addr   string
	DB     string
	User   string
	Pwd    string
	AuthDB string
}

// RedisSettings locates the optional content cache. An empty Addr disables it.
type RedisSettings struct {
	Addr string
	Pwd  string
	DB   int
}

// LoadSettingsFromConfig reads configuration and applies defaults.
func LoadSettingsFromConfig() Settings {
	settings := Settings{
		Storage:     strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.cms.storage"))),
		JSONRoot:    strings.TrimSpace(gconfig.S.GetString("settings.cms.json.root")),
		MaxVersions: intFromConfig("settings.cms.versions.max", dao.DefaultMaxVersions),
		SeedFile:    strings.TrimSpace(gconfig.S.GetString("settings.cms.seed_file")),
		Media: MediaSettings{
			Backend:   strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.cms.media.backend"))),
			Dir:       strings.TrimSpace(gconfig.S.GetString("settings.cms.media.dir")),
			URLPrefix: strings.TrimSpace(gconfig.S.GetString("settings.cms.media.url_prefix")),
			MaxBytes:  int64FromConfig("settings.cms.media.max_bytes", DefaultMaxMediaBytes),
			MinIO: media.MinIOConfig{
				Endpoint:  gconfig.S.GetString("settings.cms.media.minio.endpoint"),
				AccessKey: gconfig.S.GetString("settings.cms.media.minio.access_key"),
				SecretKey: gconfig.S.GetString("settings.cms.media.minio.secret_key"),
				Bucket:    gconfig.S.GetString("settings.cms.media.minio.bucket"),
				Prefix:    gconfig.S.GetString("settings.cms.media.minio.prefix"),
				Secure:    boolFromConfig("settings.cms.media.minio.secure", true),
				PublicURL: gconfig.S.GetString("settings.cms.media.minio.public_url"),
			},
		},
		Mongo: MongoSettings{
			Addr:   gconfig.S.GetString("settings.db.cms.addr"),
			DB:     gconfig.S.GetString("settings.db.cms.db"),
			User:   gconfig.S.GetString("settings.db.cms.user"),
			Pwd:    gconfig.S.GetString("settings.db.cms.pwd"),
			AuthDB: gconfig.S.GetString("settings.db.cms.auth_db"),
		},
		Redis: RedisSettings{
			Addr: strings.TrimSpace(gconfig.S.GetString("settings.db.redis.addr")),
			Pwd:  gconfig.S.GetString("settings.db.redis.pwd"),
			DB:   intFromConfig("settings.db.redis.db", 0),
		},
		CacheTTL: time.Duration(intFromConfig("settings.cms.cache.ttl_seconds", 300)) * time.Second,
	}

	if settings.Storage == "" {
		settings.Storage = StorageJSON
	}
	if settings.JSONRoot == "" {
		settings.JSONRoot = "./data"
	}
	if settings.MaxVersions <= 0 {
		settings.MaxVersions = dao.DefaultMaxVersions
	}
	if settings.Media.Backend == "" {
		settings.Media.Backend = MediaLocal
	}
	if settings.Media.Dir == "" {
		settings.Media.Dir = "./data/uploads"
	}
	if settings.Media.URLPrefix == "" {
		settings.Media.URLPrefix = "/uploads"
	}
	if settings.Media.MaxBytes <= 0 {
		settings.Media.MaxBytes = DefaultMaxMediaBytes
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = 300 * time.Second
	}

	return settings
}

// intFromConfig reads an int configuration value with a default fallback.
func intFromConfig(key string, def int) int {
	return int(int64FromConfig(key, int64(def)))
}

// int64FromConfig reads an int64 configuration value with a default fallback.
func int64FromConfig(key string, def int64) int64 {
	switch v := gconfig.S.Get(key).(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// boolFromConfig reads a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	switch v := gconfig.S.Get(key).(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
