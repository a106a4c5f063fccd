package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/juju/clock"

	"docsend/internal/model"
	"docsend/internal/storage"
)

// AccessMode is how a recipient (or the service itself) reaches a document.
type AccessMode string

const (
	DirectLink      AccessMode = "direct_link"
	DerivedLink     AccessMode = "derived_link"
	SignedLink      AccessMode = "signed_link"
	AttachmentFetch AccessMode = "attachment_fetch"
)

// DefaultSignedLinkTTL is the validity window of signed links when none is configured.
const DefaultSignedLinkTTL = 300 * time.Second

// AccessMethod is the outcome of resolving a profile's document reference.
// ExpiresAt is zero for links that do not expire. For AttachmentFetch, URL is the link the
// bytes are fetched through and must not reach the recipient.
type AccessMethod struct {
	Mode      AccessMode
	URL       string
	ExpiresAt time.Time
}

// AccessResolver turns a stored document reference into something a mail can carry.
type AccessResolver struct {
	store      storage.Storage
	publicRoot string
	ttl        time.Duration
	clock      clock.Clock
}

// NewAccessResolver builds a resolver. A non-positive ttl falls back to DefaultSignedLinkTTL.
func NewAccessResolver(store storage.Storage, publicRoot string, ttl time.Duration, clk clock.Clock) *AccessResolver {
	if ttl <= 0 {
		ttl = DefaultSignedLinkTTL
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &AccessResolver{store: store, publicRoot: publicRoot, ttl: ttl, clock: clk}
}

// Resolve picks the access method for p under the given delivery mode. Signed links are
// minted on every call. References that match no known convention fail with KindInvalidState.
func (r *AccessResolver) Resolve(ctx context.Context, p *model.Profile, mode model.DeliveryMode) (AccessMethod, error) {
	const op = "resolve access"
	ref := p.Document

	if mode == model.DeliveryModeAttachment {
		switch ref.Kind {
		case model.DocumentRefPublicURL:
			u, err := r.direct(ref)
			if err != nil {
				return AccessMethod{}, newError(KindInvalidState, op, err)
			}
			return AccessMethod{Mode: AttachmentFetch, URL: u}, nil
		case model.DocumentRefStorageObject:
			if ref.StorageKey == "" {
				return AccessMethod{}, newError(KindInvalidState, op, ErrUnusableReference)
			}
			signed, err := r.sign(ctx, ref.StorageKey)
			if err != nil {
				return AccessMethod{}, err
			}
			signed.Mode = AttachmentFetch
			return signed, nil
		default:
			return AccessMethod{}, newError(KindInvalidState, op, ErrUnknownReference)
		}
	}

	switch ref.Kind {
	case model.DocumentRefPublicURL:
		u, err := r.direct(ref)
		if err != nil {
			return AccessMethod{}, newError(KindInvalidState, op, err)
		}
		return AccessMethod{Mode: DirectLink, URL: u}, nil
	case model.DocumentRefStorageObject:
		if ref.StorageKey == "" {
			return AccessMethod{}, newError(KindInvalidState, op, ErrUnusableReference)
		}
		switch ref.Policy {
		case model.AccessPublicRead:
			u, err := storage.PublicURL(r.publicRoot, ref.StorageKey)
			if err != nil {
				return AccessMethod{}, newError(KindInvalidState, op, fmt.Errorf("derive link: %w", err))
			}
			return AccessMethod{Mode: DerivedLink, URL: u}, nil
		case model.AccessPrivate:
			return r.sign(ctx, ref.StorageKey)
		default:
			return AccessMethod{}, newError(KindInvalidState, op, fmt.Errorf("%w: access policy %q", ErrUnknownReference, ref.Policy))
		}
	default:
		return AccessMethod{}, newError(KindInvalidState, op, fmt.Errorf("%w: kind %q", ErrUnknownReference, ref.Kind))
	}
}

func (r *AccessResolver) direct(ref model.DocumentRef) (string, error) {
	if ref.URL == "" {
		return "", ErrUnusableReference
	}
	u, err := url.Parse(ref.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: stored url is not an absolute http(s) url", ErrUnknownReference)
	}
	return ref.URL, nil
}

func (r *AccessResolver) sign(ctx context.Context, key string) (AccessMethod, error) {
	expires := r.clock.Now().Add(r.ttl)
	u, err := r.store.PresignGet(ctx, key, r.ttl)
	if err != nil {
		return AccessMethod{}, newError(KindUpstreamFetch, "sign link", err)
	}
	return AccessMethod{Mode: SignedLink, URL: u, ExpiresAt: expires}, nil
}
