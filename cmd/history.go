package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bonelab-mod-manager/config"
	"bonelab-mod-manager/history"
	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/ui"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [barcode]",
	Short: "List recorded install, update and rollback actions",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		barcode := ""
		if len(args) > 0 {
			barcode = args[0]
		}
		showHistory(barcode)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func showHistory(barcode string) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}
	history.Init(cfg.DatabasePath)

	query := history.DB.Order("created_at DESC")
	if barcode != "" {
		query = query.Where("barcode = ?", barcode)
	}

	var records []history.InstallRecord
	if err := query.Find(&records).Error; err != nil {
		logger.Log.Fatalw("Failed to query history", zap.Error(err))
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Action", "Barcode", "Title", "Version", "File ID", "Archived"})
	for _, rec := range records {
		archived := ""
		if rec.ArchivePath != "" {
			archived = "yes"
		}
		t.AppendRow(table.Row{
			rec.CreatedAt.Format(time.DateTime),
			ui.Status(rec.Action, rec.Action),
			rec.Barcode,
			rec.Title,
			rec.Version,
			rec.FileID,
			archived,
		})
	}
	t.Render()
}
