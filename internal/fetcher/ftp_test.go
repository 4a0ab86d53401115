package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "standard ftp url",
			url:      "ftp://ftp2.census.gov/geo/tiger/TIGER2020/COUNTY/tl_2020_us_county.zip",
			wantHost: "ftp2.census.gov:21",
			wantPath: "/geo/tiger/TIGER2020/COUNTY/tl_2020_us_county.zip",
		},
		{
			name:     "ftp url with port",
			url:      "ftp://ftp.example.com:2121/data/pop.csv",
			wantHost: "ftp.example.com:2121",
			wantPath: "/data/pop.csv",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/file.csv",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.example.com",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_DefaultTimeout(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
}

func TestFTPDownload_InvalidURL(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{Timeout: time.Second})
	_, err := f.Download(context.Background(), "http://example.com/x.csv")
	assert.ErrorContains(t, err, "expected ftp scheme")
}

func TestFTPDownload_DialFailure(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{Timeout: 200 * time.Millisecond})
	// Port 1 on loopback is not listening.
	_, err := f.Download(context.Background(), "ftp://127.0.0.1:1/pop.csv")
	assert.ErrorContains(t, err, "ftp dial")
}
