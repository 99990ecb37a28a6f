package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	pageRows    = 100
	pageColumns = 10
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	loc           *time.Location
	logger        *slog.Logger

	mu    sync.Mutex
	pages map[string]bool // titles known to exist
}

// Ensure interface conformance
var _ ledger.Store = (*Client)(nil)

// Options configures a Sheets ledger.
type Options struct {
	SpreadsheetID string
	// Service account credentials: inline JSON wins over the file path.
	CredentialsJSON string
	CredentialsFile string
	// Location is used to name pages and to read timestamps back.
	Location *time.Location
	Logger   *slog.Logger
	// ClientOptions are appended after the credential options.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets ledger client using service account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, opts.Location, opts.Logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		loc:           loc,
		logger:        logger,
		pages:         map[string]bool{},
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		opts.Logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		opts.Logger.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		credentialsJSON, err = os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	clientOpts := []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	opts.Logger.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Append writes one row to the page for the transaction's week, creating the
// page with a header row first if needed.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	tx.Timestamp = tx.Timestamp.In(c.loc)
	page := ledger.PageName(tx.Timestamp)
	if err := c.ensurePage(ctx, page); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{ledger.EncodeRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, pageRange(page), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row to %s: %w", page, err)
	}

	ref := page
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// LoadAll reads every page in spreadsheet order with a single batch request.
// Header rows are skipped; rows that do not decode are logged and skipped.
func (c *Client) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, nil
	}

	ranges := make([]string, len(titles))
	for i, title := range titles {
		ranges[i] = pageRange(title)
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}

	var out []core.Transaction
	for i, vr := range resp.ValueRanges {
		skipped := 0
		for _, row := range vr.Values {
			if len(row) == 0 || ledger.IsHeader(row) {
				continue
			}
			tx, err := ledger.DecodeRow(row, c.loc)
			if err != nil {
				skipped++
				continue
			}
			out = append(out, tx)
		}
		if skipped > 0 && i < len(titles) {
			c.logger.WarnContext(ctx, "Skipped malformed ledger rows", "page", titles[i], "count", skipped)
		}
	}
	return out, nil
}

func (c *Client) ensurePage(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pages[title] {
		return nil
	}
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}
	for _, t := range titles {
		c.pages[t] = true
	}
	if c.pages[title] {
		return nil
	}

	c.logger.InfoContext(ctx, "Ledger page not found, creating it", "page", title)
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{
					Title: title,
					GridProperties: &gsheet.GridProperties{
						RowCount:    pageRows,
						ColumnCount: pageColumns,
					},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add page %s: %w", title, err)
	}

	header := make([]any, len(ledger.Header))
	for i, h := range ledger.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, pageRange(title), &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %s: %w", title, err)
	}

	c.pages[title] = true
	return nil
}

func (c *Client) sheetTitles(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
	}
	return titles, nil
}

// pageRange quotes the title the way A1 notation requires.
func pageRange(title string) string {
	return fmt.Sprintf("'%s'!A:G", strings.ReplaceAll(title, "'", "''"))
}
