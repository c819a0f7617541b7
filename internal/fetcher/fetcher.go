package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for retrieving remote query responses.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
