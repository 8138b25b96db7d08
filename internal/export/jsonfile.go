package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

type JSONFile struct {
	filename string
}

func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{filename: filename}
}

func (f *JSONFile) Export(_ context.Context, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(f.filename, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.filename, err)
	}
	return nil
}
