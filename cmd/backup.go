package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/log"
)

var backupCMD = &cobra.Command{
	Use:   "backup",
	Short: "manage content backups",
	Long: `create, list and restore backups of the published content.

Scheduled backups are expected to come from cron or a k8s CronJob:
  institute-cms backup create -c settings.yml`,
}

func backupPreRun(cmd *cobra.Command, args []string) {
	if err := initialize(context.Background(), cmd); err != nil {
		log.Logger.Panic("init", zap.Error(err))
	}
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(ctx context.Context, fn func(*service.CMS) error) error {
	st, err := openStore(ctx, service.LoadSettingsFromConfig())
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close(ctx) // nolint: errcheck

	return fn(st.cms)
}

var backupCreateCMD = &cobra.Command{
	Use:    "create",
	Short:  "snapshot the published content into a new backup",
	Args:   gcmd.NoExtraArgs,
	PreRun: backupPreRun,
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		err := withStore(cmd.Context(), func(cms *service.CMS) error {
			filename, err := cms.CreateBackup(cmd.Context(), user)
			if err != nil {
				return err
			}

			fmt.Println(filename)
			return nil
		})
		if err != nil {
			log.Logger.Panic("create backup", zap.Error(err))
		}
	},
}

var backupListCMD = &cobra.Command{
	Use:    "list",
	Short:  "list backups, newest first",
	Args:   gcmd.NoExtraArgs,
	PreRun: backupPreRun,
	Run: func(cmd *cobra.Command, args []string) {
		err := withStore(cmd.Context(), func(cms *service.CMS) error {
			metas, err := cms.GetBackups(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tCREATED\tBY\tSIZE")
			for _, m := range metas {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.Filename, m.CreatedAt.Format("2006-01-02 15:04:05"), m.CreatedBy, m.Size)
			}
			return w.Flush()
		})
		if err != nil {
			log.Logger.Panic("list backups", zap.Error(err))
		}
	},
}

var backupRestoreCMD = &cobra.Command{
	Use:    "restore <filename>",
	Short:  "replace the published content with a backup",
	Args:   cobra.ExactArgs(1),
	PreRun: backupPreRun,
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		err := withStore(cmd.Context(), func(cms *service.CMS) error {
			_, err := cms.RestoreBackup(cmd.Context(), args[0], user)
			return err
		})
		if err != nil {
			log.Logger.Panic("restore backup", zap.Error(err), zap.String("backup", args[0]))
		}

		log.Logger.Info("backup restored", zap.String("backup", args[0]))
	},
}

func init() {
	rootCMD.AddCommand(backupCMD)
	backupCMD.PersistentFlags().String("user", "cli", "user recorded in the audit log")
	backupCMD.AddCommand(backupCreateCMD, backupListCMD, backupRestoreCMD)
}
