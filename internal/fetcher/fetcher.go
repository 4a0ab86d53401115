// Package fetcher downloads and parses tabular data from HTTP, FTP and local
// CSV, XLSX and ZIP sources.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Mux routes a source location to the fetcher for its scheme. Locations
// without a scheme, or with file://, are opened from the local filesystem.
type Mux struct {
	HTTP Fetcher
	FTP  Fetcher
}

// Download implements Fetcher.
func (m *Mux) Download(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, path := splitLocation(location)
	switch scheme {
	case "http", "https":
		if m.HTTP == nil {
			return nil, eris.Errorf("fetch: no http fetcher configured for %s", location)
		}
		return m.HTTP.Download(ctx, location)
	case "ftp":
		if m.FTP == nil {
			return nil, eris.Errorf("fetch: no ftp fetcher configured for %s", location)
		}
		return m.FTP.Download(ctx, location)
	case "", "file":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch: open %s", path)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetch: unsupported scheme %q", scheme)
	}
}

// splitLocation returns the lower-cased scheme and, for local files, the path.
func splitLocation(location string) (string, string) {
	if !strings.Contains(location, "://") {
		return "", location
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", location
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "file" {
		return scheme, u.Path
	}
	return scheme, ""
}

// LocalPath returns the filesystem path of a bare path or file:// location.
func LocalPath(location string) (string, bool) {
	scheme, path := splitLocation(location)
	if scheme != "" && scheme != "file" {
		return "", false
	}
	return path, path != ""
}

// Ext returns the lower-cased file extension of a location, ignoring any
// query string.
func Ext(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		return strings.ToLower(filepath.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(location))
}

// ReadAll downloads a location fully into memory.
func ReadAll(ctx context.Context, f Fetcher, location string) ([]byte, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read %s", location)
	}
	return data, nil
}

// DownloadToFile fetches the location and writes it into dir, returning the
// written path.
func DownloadToFile(ctx context.Context, f Fetcher, location, dir string) (string, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create temp dir")
	}

	name := filepath.Base(location)
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		name = filepath.Base(u.Path)
	}
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, body); err != nil {
		return "", eris.Wrap(err, "write file")
	}

	return path, nil
}
