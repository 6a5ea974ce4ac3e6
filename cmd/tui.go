package cmd

import (
	"context"
	"fmt"
	"os"

	errors "github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Laisky/institute-cms/cmd/tui"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/log"
)

var tuiCMD = &cobra.Command{
	Use:   "tui",
	Short: "Browse content history",
	Long: `Launch an interactive Terminal User Interface over the content history.

The TUI lists versions, backups and the audit log of the configured store.
A selected version or backup can be restored after confirmation.

Keyboard shortcuts:
  tab / shift+tab  Switch pane
  ↑/↓ or j/k       Navigate rows
  enter            Restore the selected version or backup
  b                Create a backup
  r                Reload
  q                Quit`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		if err := runTUI(cmd.Context(), user); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
	tuiCMD.Flags().String("user", "tui", "user recorded in the audit log")
}

// runTUI starts the interactive Terminal User Interface and returns any start/run error.
func runTUI(ctx context.Context, user string) error {
	return withStore(ctx, func(cms *service.CMS) error {
		p := tea.NewProgram(
			tui.NewModel(ctx, cms, user),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)

		_, err := p.Run()
		return errors.WithStack(err)
	})
}
