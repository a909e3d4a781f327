package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/luki/vita/internal/reading"
)

// File replays the backend's db.json: one JSON record per line, appended in
// arrival order. A JSON array file is accepted too. The file is re-read on
// every fetch so a growing log is picked up.
type File struct {
	log  *slog.Logger
	path string
}

// NewFile returns a fetcher reading path.
func NewFile(log *slog.Logger, path string) *File {
	return &File{log: log, path: path}
}

// FetchAll implements Fetcher.
func (f *File) FetchAll(ctx context.Context) ([]reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	var (
		readings []reading.Reading
		skipped  int
	)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		readings, skipped, err = reading.DecodeList(trimmed)
		if err != nil {
			return nil, err
		}
	} else {
		readings, skipped = reading.DecodeLines(data)
	}

	if skipped > 0 {
		f.log.Debug("skipped malformed lines", slog.String("path", f.path), slog.Int("count", skipped))
	}
	return readings, nil
}
