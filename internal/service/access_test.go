package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsend/internal/model"
	storeMocks "docsend/internal/storage/mocks"
)

func TestAccessResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ref        model.DocumentRef
		mode       model.DeliveryMode
		setupMocks func(mStore *storeMocks.MockStorage)
		want       AccessMethod
		wantKind   Kind
		wantErr    error
	}{
		{
			name: "public url is used as-is",
			ref:  model.DocumentRef{Kind: model.DocumentRefPublicURL, URL: "https://cdn.example.com/a.pdf"},
			mode: model.DeliveryModeLink,
			want: AccessMethod{Mode: DirectLink, URL: "https://cdn.example.com/a.pdf"},
		},
		{
			name: "public-read object derives its url",
			ref:  model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a b.pdf", Policy: model.AccessPublicRead},
			mode: model.DeliveryModeLink,
			want: AccessMethod{Mode: DerivedLink, URL: "https://files.example.com/docs/documents/a%20b.pdf"},
		},
		{
			name: "private object gets a signed link",
			ref:  model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: model.AccessPrivate},
			mode: model.DeliveryModeLink,
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("PresignGet", ctx, "documents/a.pdf", 300*time.Second).Return("https://s3/signed", nil)
			},
			want: AccessMethod{Mode: SignedLink, URL: "https://s3/signed", ExpiresAt: now.Add(300 * time.Second)},
		},
		{
			name: "attachment of a storage object fetches through a signed link",
			ref:  model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: model.AccessPublicRead},
			mode: model.DeliveryModeAttachment,
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("PresignGet", ctx, "documents/a.pdf", 300*time.Second).Return("https://s3/signed", nil)
			},
			want: AccessMethod{Mode: AttachmentFetch, URL: "https://s3/signed", ExpiresAt: now.Add(300 * time.Second)},
		},
		{
			name: "attachment of a public url fetches the url",
			ref:  model.DocumentRef{Kind: model.DocumentRefPublicURL, URL: "https://cdn.example.com/a.pdf"},
			mode: model.DeliveryModeAttachment,
			want: AccessMethod{Mode: AttachmentFetch, URL: "https://cdn.example.com/a.pdf"},
		},
		{
			name:     "unknown kind fails closed",
			ref:      model.DocumentRef{Kind: "legacy", URL: "documents/a.pdf"},
			mode:     model.DeliveryModeLink,
			wantKind: KindInvalidState,
			wantErr:  ErrUnknownReference,
		},
		{
			name:     "unknown policy fails closed",
			ref:      model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: "acl"},
			mode:     model.DeliveryModeLink,
			wantKind: KindInvalidState,
			wantErr:  ErrUnknownReference,
		},
		{
			name:     "relative public url fails closed",
			ref:      model.DocumentRef{Kind: model.DocumentRefPublicURL, URL: "documents/a.pdf"},
			mode:     model.DeliveryModeLink,
			wantKind: KindInvalidState,
			wantErr:  ErrUnknownReference,
		},
		{
			name:     "storage object without key",
			ref:      model.DocumentRef{Kind: model.DocumentRefStorageObject, Policy: model.AccessPrivate},
			mode:     model.DeliveryModeLink,
			wantKind: KindInvalidState,
			wantErr:  ErrUnusableReference,
		},
		{
			name: "signing failure is an upstream error",
			ref:  model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: model.AccessPrivate},
			mode: model.DeliveryModeLink,
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("PresignGet", ctx, "documents/a.pdf", 300*time.Second).Return("", errors.New("no credentials"))
			},
			wantKind: KindUpstreamFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			if tt.setupMocks != nil {
				tt.setupMocks(mStore)
			}
			r := NewAccessResolver(mStore, "https://files.example.com/docs/", 0, testclock.NewClock(now))

			got, err := r.Resolve(ctx, &model.Profile{ID: "pid", Document: tt.ref}, tt.mode)

			if tt.wantKind != KindInternal {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			mStore.AssertExpectations(t)
		})
	}
}

func TestAccessResolver_DerivedLinkWithoutRoot(t *testing.T) {
	r := NewAccessResolver(new(storeMocks.MockStorage), "", 0, nil)
	ref := model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: model.AccessPublicRead}

	_, err := r.Resolve(context.Background(), &model.Profile{Document: ref}, model.DeliveryModeLink)

	assert.Equal(t, KindInvalidState, KindOf(err))
}

// signingStore mints tokens that its HTTP server honours until they expire on clk.
type signingStore struct {
	storeMocks.MockStorage
	clk *testclock.Clock
	srv *httptest.Server

	mu      sync.Mutex
	expires map[string]time.Time
}

func newSigningStore(t *testing.T, clk *testclock.Clock) *signingStore {
	s := &signingStore{clk: clk, expires: map[string]time.Time{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		exp, ok := s.expires[r.URL.Query().Get("token")]
		s.mu.Unlock()
		if !ok || s.clk.Now().After(exp) {
			http.Error(w, "Request has expired", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 signed"))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *signingStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.expires[token] = s.clk.Now().Add(expiry)
	s.mu.Unlock()
	return s.srv.URL + "/" + key + "?token=" + token, nil
}

func TestAccessResolver_SignedLinkFreshnessAndExpiry(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Now())
	store := newSigningStore(t, clk)
	r := NewAccessResolver(store, "", 300*time.Second, clk)
	p := &model.Profile{ID: "pid", Document: model.DocumentRef{
		Kind: model.DocumentRefStorageObject, StorageKey: "documents/a.pdf", Policy: model.AccessPrivate,
	}}

	first, err := r.Resolve(ctx, p, model.DeliveryModeLink)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, p, model.DeliveryModeLink)
	require.NoError(t, err)
	assert.NotEqual(t, first.URL, second.URL)

	f := newFetcher(store.srv.Client(), 0)
	body, _, err := f.fetch(ctx, first.URL)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 signed", string(body))

	clk.Advance(301 * time.Second)

	_, _, err = f.fetch(ctx, first.URL)
	assert.Equal(t, KindUpstreamFetch, KindOf(err))

	third, err := r.Resolve(ctx, p, model.DeliveryModeLink)
	require.NoError(t, err)
	_, _, err = f.fetch(ctx, third.URL)
	assert.NoError(t, err)
}
