package report

import (
	"sort"
	"time"

	"spendwatch/internal/core"
)

// Point is one bucket of a spending series. Start is the bucket's first
// instant and defines the ordering; Label is for display only.
type Point struct {
	Label  string     `json:"label"`
	Start  time.Time  `json:"start"`
	Amount core.Money `json:"amount"`
}

// Window returns the half-open range [from, to) covered by the timeframe
// at now, evaluated in loc.
//
//	daily:   today
//	monthly: first of the month through the end of today
//	yearly:  1 January through the end of today
func Window(tf core.Timeframe, now time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to = today.AddDate(0, 0, 1)

	switch tf {
	case core.Monthly:
		from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case core.Yearly:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		from = today
	}
	return from, to
}

// BuildSeries buckets expense transactions for the timeframe: by minute for
// daily, by day for monthly and by month for yearly. Points are ordered by
// bucket start. Records without a date are skipped. An empty window yields
// an empty slice.
func BuildSeries(txs []core.Transaction, tf core.Timeframe, now time.Time, loc *time.Location) []Point {
	if loc == nil {
		loc = now.Location()
	}
	from, to := Window(tf, now, loc)

	buckets := make(map[int64]*Point)
	for _, tx := range txs {
		if !tx.IsExpense() || tx.Date.IsZero() || tx.Validate() != nil {
			continue
		}
		at := tx.Date.In(loc)
		if at.Before(from) || !at.Before(to) {
			continue
		}
		start := bucketStart(tf, at, loc)
		key := start.UnixNano()
		p, ok := buckets[key]
		if !ok {
			p = &Point{Label: bucketLabel(tf, start), Start: start}
			buckets[key] = p
		}
		p.Amount = p.Amount.Add(tx.Amount)
	}

	out := make([]Point, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func bucketStart(tf core.Timeframe, at time.Time, loc *time.Location) time.Time {
	y, m, d := at.Date()
	switch tf {
	case core.Monthly:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case core.Yearly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, at.Hour(), at.Minute(), 0, 0, loc)
	}
}

func bucketLabel(tf core.Timeframe, start time.Time) string {
	switch tf {
	case core.Monthly:
		return start.Format("02 Jan")
	case core.Yearly:
		return start.Format("Jan")
	default:
		return start.Format("15:04")
	}
}
