package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/syncer"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update all installed mods to their latest release",
	Long: `Compares every installed mod's manifest against the mod.io catalog
and reinstalls the ones with a newer windows release.`,
	Run: func(_ *cobra.Command, _ []string) {
		executeRun("update", runUpdateAll)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdateAll(ctx context.Context, a *app, progress chan<- syncer.ProgressMsg) syncer.Summary {
	remote, err := a.remoteView(ctx, true)
	if err != nil {
		logger.Log.Errorw("Failed to fetch remote state", zap.Error(err))
		progress <- syncer.ProgressMsg{Type: "error", Name: "mod.io", Message: err.Error()}
		return syncer.Summary{Failed: 1}
	}

	plan := syncer.BuildPlan(a.items, remote, a.led, logger.Log)
	logger.Log.Infof("Updating %d stale mods", len(plan.ToUpdate))
	return a.newRunner(progress).Update(ctx, plan)
}
