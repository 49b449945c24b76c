package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kongming/internal/tabular"
)

// SheetsClient is an authenticated handle to one spreadsheet. Build it once
// at startup and share it; it is never re-created implicitly.
type SheetsClient struct {
	service       *sheets.Service
	logger        *slog.Logger
	spreadsheetID string
}

// NewSheetsClient creates a Sheets client for the spreadsheet.
func NewSheetsClient(ctx context.Context, logger *slog.Logger, creds Credentials, spreadsheetID string) (*SheetsClient, error) {
	opt, err := clientOption(ctx, creds)
	if err != nil {
		return nil, err
	}
	return newSheetsClient(ctx, logger, spreadsheetID, opt)
}

func newSheetsClient(ctx context.Context, logger *slog.Logger, spreadsheetID string, opts ...option.ClientOption) (*SheetsClient, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsClient{service: service, logger: logger, spreadsheetID: spreadsheetID}, nil
}

// Worksheet resolves a worksheet by title. The returned Worksheet caches the
// numeric sheet id needed for row deletion.
func (c *SheetsClient) Worksheet(ctx context.Context, title string) (*Worksheet, error) {
	c.logger.Debug("Opening worksheet", "spreadsheetID", c.spreadsheetID, "worksheet", title)
	ss, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, c.spreadsheetID, "")
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.logger.Info("Opened worksheet", "worksheet", title, "sheetID", sh.Properties.SheetId)
			return &Worksheet{client: c, title: title, sheetID: sh.Properties.SheetId}, nil
		}
	}
	return nil, &tabular.BackendError{
		Kind:     tabular.KindWorksheetMissing,
		Resource: title,
		Err:      fmt.Errorf("no worksheet named %q in spreadsheet %s", title, c.spreadsheetID),
	}
}

// Worksheet is a tabular.Table over one worksheet of the spreadsheet.
type Worksheet struct {
	client  *SheetsClient
	title   string
	sheetID int64
}

var _ tabular.Table = (*Worksheet)(nil)

func (w *Worksheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := w.client.service.Spreadsheets.Values.Get(w.client.spreadsheetID, w.rangeOf("A:ZZ")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, w.client.spreadsheetID, w.title)
	}
	return toStrings(resp.Values), nil
}

func (w *Worksheet) Column(ctx context.Context, index int) ([]string, error) {
	col := columnName(index)
	resp, err := w.client.service.Spreadsheets.Values.Get(w.client.spreadsheetID, w.rangeOf(col+":"+col)).
		MajorDimension("COLUMNS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, w.client.spreadsheetID, w.title)
	}
	rows := toStrings(resp.Values)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (w *Worksheet) Append(ctx context.Context, row []string) error {
	_, err := w.client.service.Spreadsheets.Values.Append(w.client.spreadsheetID, w.rangeOf("A1"), valueRange(row)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, w.client.spreadsheetID, w.title)
	}
	return nil
}

func (w *Worksheet) Update(ctx context.Context, n int, row []string) error {
	a1 := fmt.Sprintf("A%d:%s%d", n, columnName(len(row)-1), n)
	_, err := w.client.service.Spreadsheets.Values.Update(w.client.spreadsheetID, w.rangeOf(a1), valueRange(row)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, w.client.spreadsheetID, w.title)
	}
	return nil
}

func (w *Worksheet) Delete(ctx context.Context, n int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    w.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		}},
	}
	_, err := w.client.service.Spreadsheets.BatchUpdate(w.client.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return classify(err, w.client.spreadsheetID, w.title)
	}
	return nil
}

func (w *Worksheet) rangeOf(a1 string) string {
	return "'" + strings.ReplaceAll(w.title, "'", "''") + "'!" + a1
}

func valueRange(row []string) *sheets.ValueRange {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return &sheets.ValueRange{Values: [][]interface{}{cells}}
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return out
}

// columnName converts a 0-based column index to its A1 letters.
func columnName(index int) string {
	name := ""
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}

// classify maps an API failure to a tabular.BackendError.
func classify(err error, spreadsheetID, worksheet string) error {
	kind := tabular.KindUnknown

	var gerr *googleapi.Error
	var rerr *oauth2.RetrieveError
	var nerr net.Error
	var uerr *url.Error
	switch {
	case errors.As(err, &gerr):
		switch gerr.Code {
		case http.StatusNotFound:
			kind = tabular.KindSpreadsheetNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			kind = tabular.KindPermissionDenied
		case http.StatusBadRequest:
			if strings.Contains(gerr.Message, "Unable to parse range") {
				kind = tabular.KindWorksheetMissing
			}
		}
	case errors.As(err, &rerr):
		kind = tabular.KindPermissionDenied
	case errors.As(err, &nerr), errors.As(err, &uerr):
		kind = tabular.KindUnreachable
	}
	resource := spreadsheetID
	if kind == tabular.KindWorksheetMissing && worksheet != "" {
		resource = worksheet
	}
	return &tabular.BackendError{Kind: kind, Resource: resource, Err: err}
}
