// Package export writes a built report to an external destination.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

var ErrUnknownTarget = errors.New("unknown export target")

// Snapshot is what gets exported: one user's view at one point in time.
type Snapshot struct {
	User        core.User   `json:"user"`
	View        report.View `json:"view"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

type Exporter interface {
	Export(ctx context.Context, s Snapshot) error
}

// Parse builds an exporter from a target of the form kind:location, e.g.
// jsonfile:/tmp/report.json, es8:http://localhost:9200 or
// sheets:<spreadsheet id>/<sheet name>.
func Parse(target string) (Exporter, error) {
	parts := strings.SplitN(target, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q (want kind:location)", ErrUnknownTarget, target)
	}

	switch strings.ToLower(parts[0]) {
	case "jsonfile":
		return NewJSONFile(parts[1]), nil
	case "es8":
		return NewElasticsearchV8(parts[1]), nil
	case "sheets":
		id, sheet, _ := strings.Cut(parts[1], "/")
		if id == "" {
			return nil, fmt.Errorf("%w: missing spreadsheet id in %q", ErrUnknownTarget, target)
		}
		return NewSheets(id, sheet), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, parts[0])
	}
}
