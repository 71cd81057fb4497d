// Package sheets backs the document store port with a Google Spreadsheet:
// one tab per collection, one row per document. Rows carry the document id,
// the server-side creation time in epoch seconds, and the document fields as
// a JSON payload, so the layout is the same for every collection.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetfy/internal/remote"
)

// Row layout: A = id, B = created_at (epoch seconds), C = fields JSON.
const (
	colID        = 0
	colCreatedAt = 1
	colFields    = 2
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab title -> numeric sheet id
}

var _ remote.Client = (*Client)(nil)

// NewFromEnv creates a Sheets-backed client using environment variables.
// Required: SHEETS_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing SHEETS_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// Insert appends a row to the collection's tab and returns the generated id
// with the append time as the server timestamp.
func (c *Client) Insert(ctx context.Context, collection string, fields map[string]any) (remote.InsertResult, error) {
	if c.svc == nil {
		return remote.InsertResult{}, &remote.Error{Op: "insert", Transient: false, Err: errors.New("sheets service not initialized")}
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	payload, err := json.Marshal(fields)
	if err != nil {
		return remote.InsertResult{}, &remote.Error{Op: "insert", Transient: false, Err: fmt.Errorf("encode fields: %w", err)}
	}

	rng := fmt.Sprintf("%s!A:C", collection)
	vr := &gsheet.ValueRange{Values: [][]any{{id, strconv.FormatInt(now.Unix(), 10), string(payload)}}}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return remote.InsertResult{}, classify("insert", err)
	}

	return remote.InsertResult{
		ID:              id,
		ServerTimestamp: &remote.Timestamp{Seconds: now.Unix(), Nanos: int64(now.Nanosecond())},
	}, nil
}

// QueryByField reads the whole tab and filters rows whose decoded field
// equals value. Best effort: malformed rows are skipped, matching how the
// spreadsheet tolerates manual edits.
func (c *Client) QueryByField(ctx context.Context, collection, field, value string) ([]remote.Document, error) {
	rows, err := c.readRows(ctx, collection)
	if err != nil {
		return nil, classify("query", err)
	}

	var out []remote.Document
	for _, row := range rows {
		doc, ok := decodeRow(row)
		if !ok {
			continue
		}
		if v, ok := doc.Fields[field]; ok && v == value {
			out = append(out, doc)
		}
	}
	return out, nil
}

// DeleteByID locates the row by its id column and removes it with a
// DeleteDimension batch update.
func (c *Client) DeleteByID(ctx context.Context, collection, id string) error {
	rows, err := c.readRows(ctx, collection)
	if err != nil {
		return classify("delete", err)
	}

	rowIndex := -1
	for i, row := range rows {
		if len(row) > colID && strings.TrimSpace(fmt.Sprint(row[colID])) == id {
			rowIndex = i
			break
		}
	}
	if rowIndex < 0 {
		return &remote.Error{Op: "delete", Transient: false, Err: remote.ErrNotFound}
	}

	sheetID, err := c.sheetID(ctx, collection)
	if err != nil {
		return classify("delete", err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("delete", err)
	}
	return nil
}

func (c *Client) readRows(ctx context.Context, collection string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:C", collection)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// sheetID resolves and caches the numeric sheet id for a tab title.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	if id, ok := c.sheetIDs[title]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.mu.Lock()
			c.sheetIDs[title] = sh.Properties.SheetId
			c.mu.Unlock()
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

// decodeRow turns a raw row back into a Document.
func decodeRow(row []any) (remote.Document, bool) {
	if len(row) <= colFields {
		return remote.Document{}, false
	}
	id := strings.TrimSpace(fmt.Sprint(row[colID]))
	if id == "" {
		return remote.Document{}, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(fmt.Sprint(row[colFields])), &fields); err != nil {
		return remote.Document{}, false
	}

	doc := remote.Document{ID: id, Fields: fields}
	if secs, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[colCreatedAt])), 10, 64); err == nil {
		doc.CreatedAt = &remote.Timestamp{Seconds: secs}
	}
	return doc, true
}

// classify maps a Sheets API error onto the port's error taxonomy. Rate
// limits and server-side errors are retryable; everything else is not.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		transient := gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
		return &remote.Error{Op: op, Transient: transient, Err: err}
	}
	// Network-level failures come through as plain errors; treat as transient.
	return &remote.Error{Op: op, Transient: true, Err: err}
}
