// Package fetcher opens the pipeline's tabular sources. HTTP(S) locations
// are downloaded with retry and per-host rate limiting; anything else is
// treated as a local file path.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote sources.
type Fetcher interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Open resolves a source location to a reader. The caller must close it.
func Open(ctx context.Context, f Fetcher, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.Download(ctx, location)
	}

	file, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", location)
	}
	return file, nil
}
