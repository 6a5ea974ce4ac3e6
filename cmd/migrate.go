package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long: `copy every record of the json store into the mongo store.

Published and draft documents, versions, backups, audit log and the media
index are copied. Media bytes stay where they are. Rerunning skips records
the mongo store already has.`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		settings := service.LoadSettingsFromConfig()
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			settings.JSONRoot = from
		}

		stats, err := migrateJSONToMongo(cmd.Context(), settings)
		if err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}

		log.Logger.Info("migrate done",
			zap.Bool("current", stats.Current),
			zap.Bool("draft", stats.Draft),
			zap.Int("versions", stats.Versions),
			zap.Int("backups", stats.Backups),
			zap.Int("audit", stats.Audit),
			zap.Int("media", stats.Media),
			zap.Int("skipped", stats.Skipped))
	},
}

func migrateJSONToMongo(ctx context.Context, settings service.Settings) (dao.CopyStats, error) {
	src, err := openAdapter(ctx, settings, service.StorageJSON)
	if err != nil {
		return dao.CopyStats{}, errors.Wrap(err, "open source")
	}
	defer src.Close(ctx) // nolint: errcheck

	dst, err := openAdapter(ctx, settings, service.StorageMongo)
	if err != nil {
		return dao.CopyStats{}, errors.Wrap(err, "open destination")
	}
	defer dst.Close(ctx) // nolint: errcheck

	return dao.Copy(ctx, src, dst)
}

func init() {
	rootCMD.AddCommand(migrateCMD)
	migrateCMD.Flags().String("from", "", "json store root, defaults to settings.cms.json.root")
}
