package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/log"
)

var validateCMD = &cobra.Command{
	Use:   "validate [content.json]",
	Short: "report content problems",
	Long: `check a content document and print every warning.

Without an argument the published content of the configured store is checked.
Exits with status 1 when there are warnings.`,
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			// a document on disk needs no store
			return
		}
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		warnings, err := runValidate(cmd.Context(), args)
		if err != nil {
			log.Logger.Panic("validate", zap.Error(err))
		}

		printWarnings(warnings)
		if len(warnings) > 0 {
			os.Exit(1)
		}
	},
}

func runValidate(ctx context.Context, args []string) ([]model.ValidationWarning, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, errors.Wrapf(err, "read %q", args[0])
		}

		v, err := service.NewValidator()
		if err != nil {
			return nil, errors.Wrap(err, "new validator")
		}

		return v.ValidateDocument(data)
	}

	var warnings []model.ValidationWarning
	err := withStore(ctx, func(cms *service.CMS) error {
		c, err := cms.GetContent(ctx)
		if err != nil {
			return err
		}

		warnings = cms.ValidateContent(c)
		return nil
	})

	return warnings, err
}

func printWarnings(warnings []model.ValidationWarning) {
	if len(warnings) == 0 {
		fmt.Println("no problems found")
		return
	}

	for _, w := range warnings {
		fmt.Printf("%-22s %-30s %s\n", w.Code, w.Path, w.Message)
	}
}

func init() {
	rootCMD.AddCommand(validateCMD)
}
