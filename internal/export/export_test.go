package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

func sampleSnapshot() Snapshot {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{ID: "1", Type: core.Expense, Category: core.CategoryFood, Amount: core.Money{Cents: 300_00}, Date: now.Add(-time.Hour)},
		{ID: "2", Type: core.Expense, Category: core.CategoryBills, Amount: core.Money{Cents: 100_00}, Date: now.Add(-2 * time.Hour)},
	}
	return Snapshot{
		User: core.User{ID: "u1", Email: "asha@example.com"},
		View: report.Build(txs, report.Options{
			Now:       now,
			Location:  time.UTC,
			Timeframe: core.Daily,
			Threshold: core.Money{Cents: 1000_00},
		}),
		GeneratedAt: now,
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		target string
		want   any
	}{
		{"jsonfile:/tmp/out.json", &JSONFile{}},
		{"es8:http://localhost:9200", &ElasticsearchV8{}},
		{"sheets:abc123/Reports", &Sheets{}},
		{"sheets:abc123", &Sheets{}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := Parse(tt.target)
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "jsonfile", "jsonfile:", "ftp:host", "sheets:/Reports"} {
		_, err := Parse(bad)
		assert.True(t, errors.Is(err, ErrUnknownTarget), "target %q: %v", bad, err)
	}
}

func TestParseSheetsDefaults(t *testing.T) {
	got, err := Parse("sheets:abc123")
	require.NoError(t, err)
	s := got.(*Sheets)
	assert.Equal(t, "abc123", s.spreadsheetID)
	assert.Equal(t, defaultSheetName, s.sheet)
}

func TestJSONFileExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	snap := sampleSnapshot()

	require.NoError(t, NewJSONFile(path).Export(context.Background(), snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, int64(400_00), got.View.Totals.Expense.Cents)
	assert.Len(t, got.View.Categories, 2)
}

func TestDocuments(t *testing.T) {
	docs := documents(sampleSnapshot())
	require.Len(t, docs, 4)

	assert.Equal(t, "category", docs[0].Kind)
	assert.Equal(t, core.CategoryFood, docs[0].Category)
	assert.Equal(t, 75.0, docs[0].Percentage)
	assert.Equal(t, "u1-2024-03-10-category-Food", docs[0].ID)

	assert.Equal(t, "series", docs[2].Kind)
	assert.Equal(t, "10:00", docs[2].Label)

	seen := map[string]bool{}
	for _, d := range docs {
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}
}

func TestRows(t *testing.T) {
	got := rows(sampleSnapshot())
	require.Len(t, got, 3)
	assert.Equal(t, []any{"2024-03-10 12:00", "asha@example.com", "daily", core.CategoryFood, 300.0, "75.0"}, got[0])
	assert.Equal(t, "TOTAL", got[2][3])
	assert.Equal(t, "40.0", got[2][5])
}
