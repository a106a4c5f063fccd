package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		case "/large.pdf":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/stream.pdf":
			// No Content-Length: the limit has to hold while reading.
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	f := newFetcher(srv.Client(), 16)

	t.Run("ok", func(t *testing.T) {
		body, ct, err := f.fetch(ctx, srv.URL+"/ok.pdf")
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(body))
		assert.Equal(t, "application/pdf", ct)
	})

	t.Run("non-success status", func(t *testing.T) {
		_, _, err := f.fetch(ctx, srv.URL+"/missing.pdf")
		assert.Equal(t, KindUpstreamFetch, KindOf(err))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("declared size above limit", func(t *testing.T) {
		_, _, err := f.fetch(ctx, srv.URL+"/large.pdf")
		assert.Equal(t, KindInvalidInput, KindOf(err))
		assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	})

	t.Run("streamed size above limit", func(t *testing.T) {
		_, _, err := f.fetch(ctx, srv.URL+"/stream.pdf")
		assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	})
}

func TestFetcher_UnreachableHostHidesURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	link := srv.URL + "/doc.pdf?X-Amz-Signature=secret"
	srv.Close()

	_, _, err := newFetcher(nil, 0).fetch(context.Background(), link)

	require.Error(t, err)
	assert.Equal(t, KindUpstreamFetch, KindOf(err))
	assert.NotContains(t, err.Error(), "secret")
}

func TestFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newFetcher(nil, 0).fetch(ctx, "http://127.0.0.1:1/doc.pdf")

	assert.ErrorIs(t, err, context.Canceled)
}
