// Package config loads settings into the shared go-config instance.
package config

import (
	"os"
	"path/filepath"

	"github.com/Laisky/institute-cms/library/log"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment overrides from envFile when it exists.
//
// A missing file is not an error.
func LoadDotEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat env file %q", envFile)
	}

	if err := godotenv.Load(envFile); err != nil {
		return errors.Wrapf(err, "load env file %q", envFile)
	}

	log.Logger.Info("load env file", zap.String("file", envFile))
	return nil
}

// LoadFromFile loads the YAML settings file and records its directory as cfg_dir.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// ResolvePath resolves p against cfg_dir when it is relative.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	if dir := gconfig.Shared.GetString("cfg_dir"); dir != "" {
		return filepath.Join(dir, p)
	}

	return p
}
