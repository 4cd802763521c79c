package sync

import (
	"context"
	"fmt"

	"razorpay_sheets/internal/razorpay"

	"github.com/rs/zerolog/log"
)

// Fetcher produces the full ordered stream of raw payment links.
type Fetcher interface {
	FetchAll(ctx context.Context, from, to *int64) ([]razorpay.RawRecord, error)
}

// TabReplacer pushes a full table snapshot into a named tab, creating it if
// absent and clearing it otherwise.
type TabReplacer interface {
	ReplaceTab(ctx context.Context, spreadsheetID, name string, header []string, rows [][]any) error
}

// Options bound one sync run.
type Options struct {
	SpreadsheetID string
	TabName       string
	From          *int64
	To            *int64
}

// Result summarizes a completed run.
type Result struct {
	Fetched int
	Written int
	Tally   StatusTally
}

// Run executes one full sync: fetch pages, normalize, replace the destination
// tab. Any stage failure aborts the run; nothing is retried and sheet writes
// are not rolled back.
func Run(ctx context.Context, fetcher Fetcher, tabs TabReplacer, opts Options) (*Result, error) {
	links, err := fetcher.FetchAll(ctx, opts.From, opts.To)
	if err != nil {
		return nil, fmt.Errorf("fetching payment links: %w", err)
	}
	if len(links) == 0 {
		log.Warn().Msg("No payment links found; updating sheet with header only")
	}

	rows, tally := NormalizeAll(links)

	if err := tabs.ReplaceTab(ctx, opts.SpreadsheetID, opts.TabName, Header, rows); err != nil {
		return nil, fmt.Errorf("updating sheet: %w", err)
	}

	log.Info().
		Int("fetched", len(links)).
		Int("written", len(rows)).
		Str("tab", opts.TabName).
		Msg("Sync completed successfully")

	return &Result{Fetched: len(links), Written: len(rows), Tally: tally}, nil
}
