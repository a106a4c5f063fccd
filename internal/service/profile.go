package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	netmail "net/mail"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"docsend/internal/model"
	"docsend/internal/repository"
	"docsend/internal/storage"
)

// Reference modes decide how new profiles point at their document.
const (
	ReferencePublicURL = "public_url"
	ReferenceDerived   = "derived"
	ReferenceSigned    = "signed"
)

// CreateProfileInput carries a document upload together with the sender details.
// Size is the exact payload size, or -1 when unknown.
type CreateProfileInput struct {
	SenderEmail string
	Message     string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// ProfileListResult is the service-level DTO for listed profiles.
type ProfileListResult struct {
	Items []model.Profile `json:"data"`
	Total int             `json:"total"`
}

// ProfileService defines the profile use cases.
type ProfileService interface {
	// Create uploads the document, then stores a new profile referencing it. The uploaded
	// object is removed again if the profile cannot be stored.
	Create(ctx context.Context, in CreateProfileInput) (*model.Profile, error)

	// Get returns a single profile with its history.
	Get(ctx context.Context, id string) (*model.Profile, error)

	// List returns profiles newest first. A non-positive limit returns all of them.
	List(ctx context.Context, limit, offset int) (*ProfileListResult, error)

	// History returns the delivery records of a profile in insertion order.
	History(ctx context.Context, id string) ([]model.DeliveryRecord, error)
}

// ProfileOptions configures how new profiles reference their documents.
type ProfileOptions struct {
	ReferenceMode string
	PublicRoot    string
	Clock         clock.Clock
}

type profileService struct {
	store storage.Storage
	repo  repository.ProfileRepository
	mode  string
	root  string
	clock clock.Clock
}

// NewProfileService constructs a ProfileService. It fails on an unknown reference mode, or
// when a public mode is selected without a public root.
func NewProfileService(store storage.Storage, repo repository.ProfileRepository, opts ProfileOptions) (ProfileService, error) {
	mode := opts.ReferenceMode
	if mode == "" {
		mode = ReferenceSigned
	}
	switch mode {
	case ReferenceSigned:
	case ReferencePublicURL, ReferenceDerived:
		if opts.PublicRoot == "" {
			return nil, fmt.Errorf("reference mode %s requires a storage public root", mode)
		}
	default:
		return nil, fmt.Errorf("unsupported reference mode %q", mode)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &profileService{store: store, repo: repo, mode: mode, root: opts.PublicRoot, clock: clk}, nil
}

func (s *profileService) Create(ctx context.Context, in CreateProfileInput) (*model.Profile, error) {
	const op = "create profile"

	sender := strings.TrimSpace(in.SenderEmail)
	if sender == "" {
		return nil, newError(KindInvalidInput, op, ErrSenderRequired)
	}
	addr, err := netmail.ParseAddress(sender)
	if err != nil {
		return nil, newError(KindInvalidInput, op, ErrInvalidSender)
	}
	sender = addr.Address
	if in.Reader == nil {
		return nil, newError(KindInvalidInput, op, ErrReaderNil)
	}
	if in.Size == 0 {
		return nil, newError(KindInvalidInput, op, ErrDocumentEmpty)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Generate filename using UUID + extension
	ext := strings.ToLower(filepath.Ext(in.Filename))
	key := "documents/" + uuid.New().String() + ext

	// Put returns only once the upload has completed.
	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, newError(KindInternal, op, fmt.Errorf("upload to storage: %w", err))
	}

	ref, err := s.reference(objInfo.Key)
	if err != nil {
		s.rollback(ctx, objInfo.Key)
		return nil, newError(KindInternal, op, err)
	}
	ref.Filename = filepath.Base(in.Filename)
	if in.Filename == "" {
		ref.Filename = filepath.Base(objInfo.Key)
	}
	ref.ContentType = contentType
	ref.Size = objInfo.Size

	p := &model.Profile{
		ID:          uuid.New().String(),
		SenderEmail: sender,
		Message:     in.Message,
		Document:    ref,
		CreatedAt:   s.clock.Now().UTC(),
		SentHistory: []model.DeliveryRecord{},
	}
	stored, err := s.repo.Create(ctx, p)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, objInfo.Key); delErr != nil {
			return nil, newError(KindInternal, op, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr))
		}
		return nil, newError(KindInternal, op, fmt.Errorf("db save failed: %w", err))
	}
	return stored, nil
}

func (s *profileService) reference(key string) (model.DocumentRef, error) {
	switch s.mode {
	case ReferencePublicURL:
		u, err := storage.PublicURL(s.root, key)
		if err != nil {
			return model.DocumentRef{}, err
		}
		return model.DocumentRef{Kind: model.DocumentRefPublicURL, URL: u}, nil
	case ReferenceDerived:
		return model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: key, Policy: model.AccessPublicRead}, nil
	default:
		return model.DocumentRef{Kind: model.DocumentRefStorageObject, StorageKey: key, Policy: model.AccessPrivate}, nil
	}
}

func (s *profileService) rollback(ctx context.Context, key string) {
	_ = s.store.Delete(ctx, key)
}

func (s *profileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	return s.find(ctx, "get profile", id)
}

// List returns paginated profiles without exposing repository types.
func (s *profileService) List(ctx context.Context, limit, offset int) (*ProfileListResult, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, newError(KindInternal, "list profiles", err)
	}
	items := res.Items
	if items == nil {
		items = []model.Profile{}
	}
	return &ProfileListResult{Items: items, Total: res.Total}, nil
}

func (s *profileService) History(ctx context.Context, id string) ([]model.DeliveryRecord, error) {
	p, err := s.find(ctx, "get history", id)
	if err != nil {
		return nil, err
	}
	if p.SentHistory == nil {
		return []model.DeliveryRecord{}, nil
	}
	return p.SentHistory, nil
}

func (s *profileService) find(ctx context.Context, op, id string) (*model.Profile, error) {
	if id == "" {
		return nil, newError(KindInvalidInput, op, ErrIDRequired)
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, op, ErrNotFound)
		}
		return nil, newError(KindInternal, op, err)
	}
	return p, nil
}
