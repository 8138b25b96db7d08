package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwatch/internal/report"
)

const defaultSheetName = "Reports"

// Sheets appends one row per category to a spreadsheet.
type Sheets struct {
	spreadsheetID string
	sheet         string
}

func NewSheets(spreadsheetID, sheet string) *Sheets {
	if sheet == "" {
		sheet = defaultSheetName
	}
	return &Sheets{spreadsheetID: spreadsheetID, sheet: sheet}
}

// rows lays out the snapshot as generatedAt, user, timeframe, category,
// amount, share. A final TOTAL row carries the expense total and the
// threshold usage.
func rows(s Snapshot) [][]any {
	ts := s.GeneratedAt.Format("2006-01-02 15:04")
	tf := string(s.View.Timeframe)
	shares := report.CategoryShares(s.View.Categories, s.View.Totals.Expense)
	out := make([][]any, 0, len(shares)+1)
	for _, sh := range shares {
		out = append(out, []any{ts, s.User.Email, tf, sh.Category, sh.Amount.Float(), fmt.Sprintf("%.1f", sh.Percentage)})
	}
	out = append(out, []any{
		ts, s.User.Email, tf, "TOTAL",
		s.View.Totals.Expense.Float(),
		fmt.Sprintf("%.1f", s.View.Alert.Percentage),
	})
	return out
}

func (x *Sheets) Export(ctx context.Context, s Snapshot) error {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return fmt.Errorf("sheets service: %w", err)
	}

	rng := fmt.Sprintf("%s!A:F", x.sheet)
	vr := &gsheet.ValueRange{Values: rows(s)}
	_, err = svc.Spreadsheets.Values.Append(x.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", x.sheet, err)
	}

	slog.InfoContext(ctx, "Exported report to Google Sheets",
		"spreadsheet_id", x.spreadsheetID,
		"sheet", x.sheet,
		"rows", len(vr.Values))
	return nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}
