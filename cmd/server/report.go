package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medtriage/internal/report"
	"medtriage/internal/triage"
)

var (
	reportOutDir string
	reportShare  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <record.json>",
	Short: "Render a saved history record to PDF",
	Long: `Render a history record exported as JSON into the one-page PDF report.

By default the file is written to --out. With --share it goes to the
configured doctor chat instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutDir, "out", "o", ".", "directory to write the PDF into")
	reportCmd.Flags().BoolVar(&reportShare, "share", false, "send the report to the configured doctor chat")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	var rec triage.HistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse record: %w", err)
	}

	svc := report.NewService(report.NewRenderer(cfg.Report.FontPaths), report.FileSink{Dir: reportOutDir}, logger)
	if reportShare {
		svc = newReportService(cfg, logger)
	}

	location, err := svc.Export(cmd.Context(), rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), location)
	return nil
}
