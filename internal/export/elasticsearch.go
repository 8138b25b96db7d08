package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"spendwatch/internal/report"
)

const (
	esIndex = "spendwatch"
	esFlush = 2048
)

// ElasticsearchV8 indexes one document per category total and per series
// point.
type ElasticsearchV8 struct {
	addresses []string
	index     string
}

func NewElasticsearchV8(urls ...string) *ElasticsearchV8 {
	if len(urls) == 0 {
		urls = []string{"http://localhost:9200"}
	}
	return &ElasticsearchV8{addresses: urls, index: esIndex}
}

type document struct {
	ID          string    `json:"-"`
	Kind        string    `json:"kind"`
	UserID      string    `json:"userId"`
	Timeframe   string    `json:"timeframe"`
	Category    string    `json:"category,omitempty"`
	Label       string    `json:"label,omitempty"`
	BucketStart time.Time `json:"bucketStart,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Amount      float64   `json:"amount"`
	Percentage  float64   `json:"percentage,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

func documents(s Snapshot) []document {
	tf := string(s.View.Timeframe)
	day := s.GeneratedAt.Format("2006-01-02")
	shares := report.CategoryShares(s.View.Categories, s.View.Totals.Expense)

	docs := make([]document, 0, len(shares)+len(s.View.Series))
	for _, c := range shares {
		docs = append(docs, document{
			ID:          strings.Join([]string{s.User.ID, day, "category", c.Category}, "-"),
			Kind:        "category",
			UserID:      s.User.ID,
			Timeframe:   tf,
			Category:    c.Category,
			AmountCents: c.Amount.Cents,
			Amount:      c.Amount.Float(),
			Percentage:  c.Percentage,
			GeneratedAt: s.GeneratedAt,
		})
	}
	for _, p := range s.View.Series {
		docs = append(docs, document{
			ID:          fmt.Sprintf("%s-%s-%d", s.User.ID, tf, p.Start.Unix()),
			Kind:        "series",
			UserID:      s.User.ID,
			Timeframe:   tf,
			Label:       p.Label,
			BucketStart: p.Start,
			AmountCents: p.Amount.Cents,
			Amount:      p.Amount.Float(),
			GeneratedAt: s.GeneratedAt,
		})
	}
	return docs
}

func (e *ElasticsearchV8) Export(ctx context.Context, s Snapshot) error {
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     e.addresses,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return fmt.Errorf("elasticsearch client: %w", err)
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         e.index,
		FlushBytes:    esFlush,
		Client:        es,
		NumWorkers:    4,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("bulk indexer: %w", err)
	}

	if res, err := es.Indices.Create(e.index); err != nil {
		slog.DebugContext(ctx, "Index create attempt failed", "index", e.index, "error", err)
	} else {
		res.Body.Close()
	}

	for _, doc := range documents(s) {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.ErrorContext(ctx, "Failed to index document", "id", item.DocumentID, "error", err)
					return
				}
				slog.ErrorContext(ctx, "Failed to index document",
					"id", item.DocumentID,
					"type", res.Error.Type,
					"reason", res.Error.Reason)
			},
		})
		if err != nil {
			return fmt.Errorf("queue document %s: %w", doc.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d documents", stats.NumFailed, stats.NumAdded)
	}
	slog.InfoContext(ctx, "Exported report to Elasticsearch",
		"index", e.index,
		"documents", stats.NumFlushed)
	return nil
}
