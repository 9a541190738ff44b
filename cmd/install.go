package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/syncer"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install all subscribed mods that are missing locally",
	Long: `Fetches your mod.io subscription list for BONELAB and runs the
install pipeline for every entry not present in the mod folder.`,
	Run: func(_ *cobra.Command, _ []string) {
		executeRun("install", runInstallAll)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstallAll(ctx context.Context, a *app, progress chan<- syncer.ProgressMsg) syncer.Summary {
	remote, err := a.remoteView(ctx, false)
	if err != nil {
		logger.Log.Errorw("Failed to fetch subscriptions", zap.Error(err))
		progress <- syncer.ProgressMsg{Type: "error", Name: "mod.io", Message: err.Error()}
		return syncer.Summary{Failed: 1}
	}

	plan := syncer.BuildPlan(a.items, remote, a.led, logger.Log)
	logger.Log.Infof("Installing %d missing mods", len(plan.ToInstall))
	return a.newRunner(progress).Install(ctx, plan)
}
