// Package google stores the transactions table in a Google Sheets tab, one
// row per transaction with a header row naming the columns.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"shopledger/internal/core"
	applog "shopledger/internal/log"
	"shopledger/internal/remote"
)

// DefaultSheetName is the tab used when none is configured.
const DefaultSheetName = "Transactions"

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

var _ remote.Table = (*Client)(nil)

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(opts) == 0 {
		creds, err := loadCredentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        applog.Default(applog.ComponentSheets),
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	if j := strings.TrimSpace(cfg.CredentialsJSON); j != "" {
		return []byte(j), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func (c *Client) Select(ctx context.Context, table string, f remote.Filter) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	values, err := c.readValues(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, r := range parseRows(values) {
		if !f.Match(r.tx) {
			continue
		}
		if r.badAmount {
			c.logger.WarnContext(ctx, "Skipping sheet row with unreadable amount",
				"sheet", c.sheet,
				"row", r.index,
				applog.FieldTxID, r.tx.ID)
			continue
		}
		out = append(out, r.tx)
	}
	return out, nil
}

// Insert appends every row in a single API call.
func (c *Client) Insert(ctx context.Context, table string, rows []core.Transaction) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	for _, t := range rows {
		if err := t.ValidatePersisted(); err != nil {
			return nil, err
		}
	}

	values, err := c.readValues(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{})
	for _, r := range parseRows(values) {
		existing[r.tx.ID] = struct{}{}
	}
	for _, t := range rows {
		if _, dup := existing[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", remote.ErrDuplicateID, t.ID)
		}
		existing[t.ID] = struct{}{}
	}

	if len(values) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return nil, err
		}
	}

	vr := &gsheet.ValueRange{Values: make([][]interface{}, 0, len(rows))}
	for _, t := range rows {
		vr.Values = append(vr.Values, formatRow(t))
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("append rows: %w", err)
	}
	c.logger.InfoContext(ctx, "Rows appended to sheet",
		"sheet", c.sheet,
		applog.FieldCount, len(rows))
	return append([]core.Transaction(nil), rows...), nil
}

// DeleteWhere locates matching rows with a fresh read and removes them in one
// batch update, bottom row first so earlier indexes stay valid.
func (c *Client) DeleteWhere(ctx context.Context, table string, f remote.Filter) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	values, err := c.readValues(ctx)
	if err != nil {
		return err
	}
	var idx []int64
	for _, r := range parseRows(values) {
		if f.Match(r.tx) {
			idx = append(idx, r.index)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] > idx[j] })

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}
	reqs := make([]*gsheet.Request, 0, len(idx))
	for _, i := range idx {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: i,
					EndIndex:   i + 1,
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	c.logger.InfoContext(ctx, "Rows deleted from sheet",
		"sheet", c.sheet,
		applog.FieldUserID, f.UserID,
		applog.FieldCount, len(idx))
	return nil
}

func (c *Client) readValues(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A:G").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.sheet, err)
	}
	return resp.Values, nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(header)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.sheet+"!A1:G1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheet)
}
