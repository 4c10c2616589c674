// Package google exports ledger statements to a Google Sheets
// spreadsheet using an OAuth user token.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "tenge/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.StatementWriter = (*Client)(nil)

// Options carries the OAuth client credentials and user token, each
// either inline JSON or a file path. Inline wins when both are set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Statement"
	}

	clientJSON, err := readSecret(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("load OAuth client credentials: %w", err)
	}
	tokenJSON, err := readSecret(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("load OAuth token: %w", err)
	}

	cfg, err := googleauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendStatement appends a statement row after the last filled row of
// the configured sheet and returns the updated range reference.
func (c *Client) AppendStatement(ctx context.Context, row ports.StatementRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.TransactionID,
		row.Date,
		row.Type,
		row.From,
		row.To,
		row.Amount,
		row.Balance,
		row.Comment,
	}}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func readSecret(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, errors.New("neither inline JSON nor file path provided")
	}
}
