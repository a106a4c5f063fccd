package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxAttachmentBytes caps fetched attachments when no limit is configured.
const DefaultMaxAttachmentBytes = 10 << 20

// fetcher downloads documents for attachment delivery.
type fetcher struct {
	client   *http.Client
	maxBytes int64
}

func newFetcher(client *http.Client, maxBytes int64) *fetcher {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &fetcher{client: client, maxBytes: maxBytes}
}

// fetch reads the whole document into memory, never more than maxBytes. Errors never include
// the request URL since it may carry a signature.
func (f *fetcher) fetch(ctx context.Context, link string) ([]byte, string, error) {
	const op = "fetch document"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, "", newError(KindInvalidState, op, errors.New("invalid document link"))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, "", newError(KindUpstreamFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, "", newError(KindUpstreamFetch, op, fmt.Errorf("blob store responded %d", resp.StatusCode))
	}
	if resp.ContentLength > f.maxBytes {
		return nil, "", newError(KindInvalidInput, op, ErrAttachmentTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", newError(KindUpstreamFetch, op, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", newError(KindInvalidInput, op, ErrAttachmentTooLarge)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
