// Package fetcher retrieves and parses the remote sources the geo
// pipeline consumes: census files over HTTP and FTP, zip bundles,
// delimited text, XLSX delineation workbooks, and the JSON problem
// catalog.
package fetcher

import (
	"context"
	"io"
)

// Fetcher is the download contract the pipeline depends on. The HTTP
// and FTP implementations both satisfy it; tests substitute fakes.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The
	// caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into a local file and returns the
	// bytes written.
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*FTPFetcher)(nil)
)
