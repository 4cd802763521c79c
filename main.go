package main

import (
	"fmt"
	"os"
	"time"

	"razorpay_sheets/internal/config"
	"razorpay_sheets/internal/emailer"
	"razorpay_sheets/internal/razorpay"
	"razorpay_sheets/internal/report"
	"razorpay_sheets/internal/sheets"
	"razorpay_sheets/internal/sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	flagDebug    bool
	flagFromDate string
	flagToDate   string
	flagStatus   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Run failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "razorpay-sheets",
		Short:         "Sync Razorpay payment links to Google Sheets and report partial payments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging and raw-response dumps")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch all payment links and replace the main sheet tab",
		PreRun: func(cmd *cobra.Command, args []string) {
			loadConfig("razorpay_sync.log")
		},
		RunE: runSync,
	}
	syncCmd.Flags().StringVar(&flagFromDate, "from_date", "", "start date (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&flagToDate, "to_date", "", "end date (YYYY-MM-DD), inclusive")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Extract partial payments into a report tab, CSV export and email summary",
		PreRun: func(cmd *cobra.Command, args []string) {
			loadConfig("partial_payments.log")
		},
		RunE: runReport,
	}
	reportCmd.Flags().StringVar(&flagStatus, "status", "created",
		"status a row must have to count as a partial payment; empty disables the status clause")

	testEmailCmd := &cobra.Command{
		Use:   "test-email",
		Short: "Exercise the email transport without running a sync",
		PreRun: func(cmd *cobra.Command, args []string) {
			loadConfig("email_test.log")
		},
		RunE: runTestEmail,
	}

	root.AddCommand(syncCmd, reportCmd, testEmailCmd)
	return root
}

func loadConfig(logFile string) {
	loaded, missing := config.Load()
	cfg = loaded
	setupLogging(logFile, cfg.LogLevel, flagDebug || cfg.Debug)
	if len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("Missing required environment variables")
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log.Info().Msg("Starting payment links to Google Sheets sync")

	if err := cfg.Require("RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET", "GOOGLE_SHEET_ID"); err != nil {
		return err
	}

	from, to, err := parseDateRange(flagFromDate, flagToDate)
	if err != nil {
		return err
	}

	client := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	client.DebugDump = flagDebug || cfg.Debug

	sheetsClient, err := sheets.NewClient(ctx, cfg.ServiceAccountFile)
	if err != nil {
		return fmt.Errorf("creating sheets client: %w", err)
	}

	result, err := sync.Run(ctx, client, sheetsClient, sync.Options{
		SpreadsheetID: cfg.SheetID,
		TabName:       cfg.MainTab,
		From:          from,
		To:            to,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("fetched", result.Fetched).
		Int("written", result.Written).
		Msg("Payment links sync completed successfully")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log.Info().Msg("Starting partial payments report")

	if err := cfg.Require("GOOGLE_SHEET_ID"); err != nil {
		return err
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.ServiceAccountFile)
	if err != nil {
		return fmt.Errorf("creating sheets client: %w", err)
	}

	values, err := sheetsClient.ReadTab(ctx, cfg.SheetID, cfg.MainTab)
	if err != nil {
		return fmt.Errorf("reading main tab: %w", err)
	}
	log.Info().Int("records", max(len(values)-1, 0)).Msg("Retrieved records from sheet")

	table := report.NewTable(values)
	cm, err := report.ResolveColumns(table.Header)
	if err != nil {
		return err
	}

	rows := report.Filter(table, cm, report.Policy{Status: flagStatus})
	report.SortByDue(rows)
	header, data := report.BuildReport(rows, cm)

	if err := sheetsClient.ReplaceTab(ctx, cfg.SheetID, cfg.ReportTab, header, data); err != nil {
		return fmt.Errorf("writing report tab: %w", err)
	}
	if err := report.ExportCSV(cfg.CSVPath, header, data); err != nil {
		return fmt.Errorf("exporting CSV: %w", err)
	}

	summary := report.Aggregate(rows, cm, cfg.ReferencePrefix)
	subject, plain, html := emailer.ComposeSummary(rows, cm, summary, time.Now())
	if err := emailer.New(cfg).SendReport(subject, plain, html); err != nil {
		// The report is already exported; a failed notification must not
		// fail the run.
		log.Warn().Err(err).Msg("Report email failed; report tab and CSV were still written")
	}

	fmt.Printf("Partial payments: %d, total due: %.2f (exported to %s)\n",
		len(rows), report.TotalDue(rows), cfg.CSVPath)
	return nil
}

func runTestEmail(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Running email connectivity test")
	if err := emailer.New(cfg).SendTest(); err != nil {
		return err
	}
	fmt.Println("Email connectivity test passed.")
	return nil
}

// parseDateRange converts ISO date flags to unix-second bounds; the end bound
// extends to the last second of its day.
func parseDateRange(fromDate, toDate string) (from, to *int64, err error) {
	if fromDate != "" {
		t, err := time.Parse("2006-01-02", fromDate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --from_date %q: %w", fromDate, err)
		}
		ts := t.Unix()
		from = &ts
	}
	if toDate != "" {
		t, err := time.Parse("2006-01-02", toDate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --to_date %q: %w", toDate, err)
		}
		ts := t.Add(24*time.Hour - time.Second).Unix()
		to = &ts
	}
	return from, to, nil
}
