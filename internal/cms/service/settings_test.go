package service

import (
	"testing"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/dao"
)

func setConfig(t *testing.T, key string, val any) {
	t.Helper()

	original := gconfig.Shared.Get(key)
	gconfig.Shared.Set(key, val)
	t.Cleanup(func() {
		gconfig.Shared.Set(key, original)
	})
}

func TestLoadSettingsDefaults(t *testing.T) {
	for _, key := range []string{
		"settings.cms.storage",
		"settings.cms.json.root",
		"settings.cms.versions.max",
		"settings.cms.media.backend",
		"settings.cms.media.max_bytes",
		"settings.cms.cache.ttl_seconds",
	} {
		setConfig(t, key, nil)
	}

	settings := LoadSettingsFromConfig()
	require.Equal(t, StorageJSON, settings.Storage)
	require.Equal(t, "./data", settings.JSONRoot)
	require.Equal(t, dao.DefaultMaxVersions, settings.MaxVersions)
	require.Equal(t, MediaLocal, settings.Media.Backend)
	require.Equal(t, "/uploads", settings.Media.URLPrefix)
	require.Equal(t, int64(DefaultMaxMediaBytes), settings.Media.MaxBytes)
	require.Equal(t, 300*time.Second, settings.CacheTTL)
	require.True(t, settings.Media.MinIO.Secure)
}

func TestLoadSettingsOverrides(t *testing.T) {
	setConfig(t, "settings.cms.storage", " Mongo ")
	setConfig(t, "settings.cms.versions.max", "50")
	setConfig(t, "settings.cms.media.backend", "minio")
	setConfig(t, "settings.cms.media.minio.secure", "false")
	setConfig(t, "settings.cms.media.max_bytes", 1024)
	setConfig(t, "settings.cms.cache.ttl_seconds", 60)
	setConfig(t, "settings.db.cms.addr", "mongo:27017")
	setConfig(t, "settings.db.redis.addr", "redis:6379")

	settings := LoadSettingsFromConfig()
	require.Equal(t, StorageMongo, settings.Storage)
	require.Equal(t, 50, settings.MaxVersions)
	require.Equal(t, MediaMinIO, settings.Media.Backend)
	require.False(t, settings.Media.MinIO.Secure)
	require.Equal(t, int64(1024), settings.Media.MaxBytes)
	require.Equal(t, time.Minute, settings.CacheTTL)
	require.Equal(t, "mongo:27017", settings.Mongo.Addr)
	require.Equal(t, "redis:6379", settings.Redis.Addr)
}
