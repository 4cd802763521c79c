package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Client struct {
	service *sheets.Service
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// ReadTab reads the full values grid of the named tab. A bare sheet name is a
// valid A1 range covering the whole tab.
func (c *Client) ReadTab(ctx context.Context, spreadsheetID, name string) ([][]any, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read tab %s: %w", name, err)
	}
	log.Debug().Str("tab", name).Int("rows", len(resp.Values)).Msg("Read tab values")
	return resp.Values, nil
}

// ReplaceTab pushes a full table snapshot into the named tab. An existing tab
// is cleared entirely first; a missing tab is created sized to the payload.
// The header and the data rows go out as two separate writes, so a failure
// between them leaves the tab header-only until the next run.
func (c *Client) ReplaceTab(ctx context.Context, spreadsheetID, name string, header []string, rows [][]any) error {
	exists, err := c.tabExists(ctx, spreadsheetID, name)
	if err != nil {
		return err
	}

	if exists {
		log.Info().Str("tab", name).Msg("Clearing existing tab data")
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, name, &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab %s: %w", name, err)
		}
	} else {
		log.Info().Str("tab", name).Msg("Creating tab")
		if err := c.addTab(ctx, spreadsheetID, name, len(rows)+1, len(header)); err != nil {
			return err
		}
	}

	lastCol := ColumnLetter(len(header))

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	headerRange := fmt.Sprintf("%s!A1:%s1", name, lastCol)
	if err := c.updateRange(ctx, spreadsheetID, headerRange, [][]any{headerCells}); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	if len(rows) > 0 {
		dataRange := fmt.Sprintf("%s!A2:%s%d", name, lastCol, len(rows)+1)
		if err := c.updateRange(ctx, spreadsheetID, dataRange, rows); err != nil {
			return fmt.Errorf("failed to write data rows: %w", err)
		}
	}

	log.Info().
		Str("tab", name).
		Int("rows", len(rows)).
		Int("columns", len(header)).
		Msg("Tab replaced")
	return nil
}

func (c *Client) tabExists(ctx context.Context, spreadsheetID, name string) (bool, error) {
	ss, err := c.service.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addTab(ctx context.Context, spreadsheetID, name string, rowCount, columnCount int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: name,
						GridProperties: &sheets.GridProperties{
							RowCount:    int64(rowCount),
							ColumnCount: int64(columnCount),
						},
					},
				},
			},
		},
	}
	_, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create tab %s: %w", name, err)
	}
	return nil
}

func (c *Client) updateRange(ctx context.Context, spreadsheetID, range_ string, values [][]any) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", range_, err)
	}

	return nil
}
