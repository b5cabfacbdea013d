package s3

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

	"github.com/endotrace/endotrace/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	body        []byte
	contentType string
}

// fakeS3 answers the handful of path-style requests the store issues
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]object)}
}

func (f *fakeS3) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// path is /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2025-03-10T08:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	obj, exists := f.objects[key]
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		if !exists {
			return respond(http.StatusNotFound, nil, http.Header{}), nil
		}
		h := http.Header{
			"Content-Length": {fmt.Sprint(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Last-Modified":  {time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil, h), nil
		}
		return respond(http.StatusOK, obj.body, h), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = object{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func respond(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(bytes.NewReader(body))}
}

func newTestStore(t *testing.T, fake *fakeS3) *Store {
	s, err := New(context.Background(), Config{
		Bucket:          "reports",
		Region:          "eu-west-3",
		Endpoint:        "https://s3.test.local",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		PathStyle:       true,
		Prefix:          "endotrace",
		HTTPClient:      fake,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newTestStore(t, fake)
	assert.Equal(t, archive.DriverS3, s.Driver())

	t.Run("Put stores under the prefix", func(t *testing.T) {
		info, err := s.Put(ctx, "inventory/a.pdf", bytes.NewReader([]byte("%PDF-1.3")), archive.PutOptions{ContentType: "application/pdf"})
		require.NoError(t, err)
		assert.Equal(t, "inventory/a.pdf", info.Key)
		assert.Equal(t, int64(8), info.Size)

		_, ok := fake.objects["endotrace/inventory/a.pdf"]
		assert.True(t, ok)
	})

	t.Run("Put refuses to overwrite", func(t *testing.T) {
		_, err := s.Put(ctx, "inventory/a.pdf", bytes.NewReader([]byte("x")), archive.PutOptions{})
		assert.Error(t, err)
	})

	t.Run("Get", func(t *testing.T) {
		info, rc, err := s.Get(ctx, "inventory/a.pdf")
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.3", string(body))
		assert.Equal(t, "application/pdf", info.ContentType)
	})

	t.Run("Get missing key", func(t *testing.T) {
		_, _, err := s.Get(ctx, "inventory/missing.pdf")
		assert.ErrorIs(t, err, archive.ErrNotFound)
	})

	t.Run("List strips the prefix", func(t *testing.T) {
		infos, err := s.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "inventory/a.pdf", infos[0].Key)
	})

	t.Run("Delete", func(t *testing.T) {
		existed, err := s.Delete(ctx, "inventory/a.pdf")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = s.Delete(ctx, "inventory/a.pdf")
		require.NoError(t, err)
		assert.False(t, existed)
	})
}
