package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bonelab-mod-manager/logger"
)

// rootCmd is the base command; running it with no subcommand performs a full
// sync (subscribe, update, install).
var rootCmd = &cobra.Command{
	Use:   "bonelab-mod-manager",
	Short: "Keeps a BONELAB mod folder in sync with your mod.io subscriptions",
	Long: `Scans the local mod folder, authenticates against mod.io and keeps
both sides in sync: installed mods get subscribed, stale mods get updated and
new subscriptions get downloaded and installed.`,
	Run: func(cmd *cobra.Command, args []string) {
		syncCmd.Run(syncCmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("mod-folder", "m", "", "folder where BONELAB mods are, usually .../Stress Level Zero/BONELAB/Mods/")
	rootCmd.PersistentFlags().StringP("api-key", "a", "", "your mod.io api key")
	rootCmd.PersistentFlags().StringP("email", "e", "", "email to log into mod.io")

	// Flags take precedence over environment and config file.
	_ = viper.BindPFlag("MOD_FOLDER", rootCmd.PersistentFlags().Lookup("mod-folder"))
	_ = viper.BindPFlag("MODIO_API_KEY", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("MODIO_EMAIL", rootCmd.PersistentFlags().Lookup("email"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Errorw("Command failed", "error", err)
		os.Exit(1)
	}
}
