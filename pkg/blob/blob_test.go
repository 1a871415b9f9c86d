package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"rental-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the handful of path-style S3 calls the store makes
type fakeS3 struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	empty := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		keys := make([]string, 0, len(f.objs))
		for k := range f.objs {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objs[k]))
		}
		b.WriteString("</ListBucketResult>")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(b.String())),
			Header:     http.Header{"Content-Type": {"application/xml"}},
		}, nil
	}

	switch req.Method {
	case http.MethodHead, http.MethodGet:
		body, ok := f.objs[key]
		if !ok {
			return empty(http.StatusNotFound), nil
		}
		h := http.Header{
			"Content-Length": {fmt.Sprint(len(body))},
			"Content-Type":   {"application/zip"},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: h}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: h}, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objs[key] = body
		return empty(http.StatusOK), nil
	case http.MethodDelete:
		delete(f.objs, key)
		return empty(http.StatusNoContent), nil
	}
	return empty(http.StatusNotImplemented), nil
}

func newFakeS3Store(t *testing.T) *S3Store {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "backups",
		Region:          "ap-southeast-1",
		Endpoint:        "https://s3.test.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: &fakeS3{objs: map[string][]byte{}}},
	})
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]Store {
	fsStore, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     newFakeS3Store(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := s.Put(ctx, "backup_20240101_020000.zip", strings.NewReader("PK-data"), "application/zip")
			require.NoError(t, err)
			assert.Equal(t, int64(7), info.Size)

			_, err = s.Put(ctx, "backup_20240101_020000.zip", strings.NewReader("other"), "application/zip")
			assert.ErrorIs(t, err, ErrExists)

			_, err = s.Put(ctx, "notes.txt", strings.NewReader("x"), "text/plain")
			require.NoError(t, err)

			head, err := s.Head(ctx, "backup_20240101_020000.zip")
			require.NoError(t, err)
			assert.Equal(t, int64(7), head.Size)

			_, rc, err := s.Get(ctx, "backup_20240101_020000.zip")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, rc.Close())
			require.NoError(t, err)
			assert.Equal(t, "PK-data", string(body))

			list, err := s.List(ctx, "backup_")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "backup_20240101_020000.zip", list[0].Key)

			existed, err := s.Delete(ctx, "backup_20240101_020000.zip")
			require.NoError(t, err)
			assert.True(t, existed)

			existed, err = s.Delete(ctx, "backup_20240101_020000.zip")
			require.NoError(t, err)
			assert.False(t, existed)

			_, err = s.Head(ctx, "backup_20240101_020000.zip")
			assert.ErrorIs(t, err, ErrNotFound)
			_, _, err = s.Get(ctx, "missing.zip")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "/abs.zip"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), "")
		assert.Error(t, err, key)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.BackupConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, config.BackupConfig{Driver: "fs", Directory: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, config.BackupConfig{Driver: "s3"})
	assert.EqualError(t, err, "s3 bucket required")

	_, err = Open(ctx, config.BackupConfig{Driver: "ftp"})
	assert.Error(t, err)
}
