package service

import (
	"context"
	"errors"
	"net/http"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"docsend/internal/events"
	"docsend/internal/mail"
	"docsend/internal/metrics"
	"docsend/internal/model"
	"docsend/internal/notification"
	"docsend/internal/repository"
)

const (
	defaultSubject            = "Your PDF Document"
	defaultHistoryWriteDelay  = 100 * time.Millisecond
	defaultHistoryWriteWindow = 10 * time.Second

	invalidModeLabel = "invalid"
)

var tracer = otel.Tracer("docsend/internal/service")

// DeliverInput identifies one send attempt. An empty Mode uses the configured default.
type DeliverInput struct {
	ProfileID      string
	RecipientEmail string
	Mode           model.DeliveryMode
}

// DeliveryResult describes a delivery that was sent and recorded.
type DeliveryResult struct {
	ProfileID string               `json:"profile_id"`
	Record    model.DeliveryRecord `json:"record"`
	Access    AccessMode           `json:"access"`
}

// DeliveryService sends profile documents to recipients and records every successful send.
type DeliveryService interface {
	// Deliver resolves the document access, renders and dispatches the notification and, once
	// the transport accepted it, appends a history record. Every call is a new send.
	// A failed history write after a successful send returns a KindPersistence error wrapping
	// *UnrecordedDeliveryError.
	Deliver(ctx context.Context, in DeliverInput) (*DeliveryResult, error)

	// RetryRecord writes the history record carried by an error returned from Deliver,
	// without sending anything. Writing the same record twice stores it once.
	RetryRecord(ctx context.Context, deliverErr error) error
}

// DeliveryOptions holds the delivery policy and the optional collaborators.
type DeliveryOptions struct {
	DefaultMode        model.DeliveryMode
	From               string
	Subject            string
	MaxAttachmentBytes int64
	FetchClient        *http.Client

	HistoryWriteAttempts int
	HistoryWriteDelay    time.Duration
	HistoryWriteTimeout  time.Duration

	Clock   clock.Clock
	Events  events.Publisher
	Metrics *metrics.Delivery
	Logger  zerolog.Logger
}

type deliveryService struct {
	repo       repository.ProfileRepository
	resolver   *AccessResolver
	dispatcher mail.Dispatcher
	fetcher    *fetcher

	defaultMode  model.DeliveryMode
	from         string
	subject      string
	attempts     int
	delay        time.Duration
	writeTimeout time.Duration

	clock   clock.Clock
	events  events.Publisher
	metrics *metrics.Delivery
	log     zerolog.Logger
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(repo repository.ProfileRepository, resolver *AccessResolver, dispatcher mail.Dispatcher, opts DeliveryOptions) DeliveryService {
	s := &deliveryService{
		repo:         repo,
		resolver:     resolver,
		dispatcher:   dispatcher,
		fetcher:      newFetcher(opts.FetchClient, opts.MaxAttachmentBytes),
		defaultMode:  opts.DefaultMode,
		from:         opts.From,
		subject:      opts.Subject,
		attempts:     opts.HistoryWriteAttempts,
		delay:        opts.HistoryWriteDelay,
		writeTimeout: opts.HistoryWriteTimeout,
		clock:        opts.Clock,
		events:       opts.Events,
		metrics:      opts.Metrics,
		log:          opts.Logger.With().Str("component", "delivery").Logger(),
	}
	if s.defaultMode == "" {
		s.defaultMode = model.DeliveryModeLink
	}
	if s.subject == "" {
		s.subject = defaultSubject
	}
	if s.attempts <= 0 {
		s.attempts = 1
	}
	if s.delay <= 0 {
		s.delay = defaultHistoryWriteDelay
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultHistoryWriteWindow
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

func (s *deliveryService) Deliver(ctx context.Context, in DeliverInput) (res *DeliveryResult, err error) {
	const op = "deliver"
	start := s.clock.Now()

	mode := in.Mode
	if mode == "" {
		mode = s.defaultMode
	}

	validMode := mode == model.DeliveryModeLink || mode == model.DeliveryModeAttachment
	// Client input must not become a label value.
	label := string(mode)
	if !validMode {
		label = invalidModeLabel
	}

	ctx, span := tracer.Start(ctx, "DeliveryService.Deliver")
	span.SetAttributes(
		attribute.String("profile.id", in.ProfileID),
		attribute.String("delivery.mode", label),
	)
	defer func() {
		outcome := "sent"
		if err != nil {
			outcome = KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		s.metrics.Observe(label, outcome, s.clock.Now().Sub(start))
	}()

	if !validMode {
		return nil, newError(KindInvalidInput, op, ErrInvalidMode)
	}
	if in.ProfileID == "" {
		return nil, newError(KindInvalidInput, op, ErrIDRequired)
	}
	raw := strings.TrimSpace(in.RecipientEmail)
	if raw == "" {
		return nil, newError(KindInvalidInput, op, ErrRecipientRequired)
	}
	addr, perr := netmail.ParseAddress(raw)
	if perr != nil {
		return nil, newError(KindInvalidInput, op, ErrInvalidRecipient)
	}
	recipient := addr.Address

	p, err := s.repo.FindByID(ctx, in.ProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, op, ErrNotFound)
		}
		return nil, newError(KindInternal, op, err)
	}
	if !p.Document.Usable() {
		return nil, newError(KindInvalidState, op, ErrUnusableReference)
	}

	access, err := s.resolver.Resolve(ctx, p, mode)
	if err != nil {
		return nil, err
	}

	msg := mail.Message{
		From:    s.from,
		ReplyTo: p.SenderEmail,
		To:      recipient,
		Subject: s.subject,
	}
	if msg.From == "" {
		msg.From = p.SenderEmail
	}

	data := notification.Data{SenderEmail: p.SenderEmail, Message: p.Message, Filename: p.Document.Filename}
	if access.Mode == AttachmentFetch {
		body, contentType, ferr := s.fetcher.fetch(ctx, access.URL)
		if ferr != nil {
			return nil, ferr
		}
		if p.Document.ContentType != "" {
			contentType = p.Document.ContentType
		}
		msg.Attachments = []mail.Attachment{{
			Filename:    attachmentName(p.Document),
			ContentType: contentType,
			Data:        body,
		}}
	} else {
		data.Link = access.URL
	}

	msg.HTMLBody, err = notification.Render(data)
	if err != nil {
		return nil, newError(KindInternal, op, err)
	}

	// Nothing has been sent yet, so a cancelled caller leaves no trace.
	if cerr := ctx.Err(); cerr != nil {
		return nil, newError(KindInternal, op, cerr)
	}
	if err := s.dispatcher.Send(ctx, msg); err != nil {
		return nil, newError(KindDispatch, op, err)
	}

	rec := model.DeliveryRecord{
		ID:             uuid.New().String(),
		RecipientEmail: recipient,
		Mode:           mode,
		SentAt:         s.clock.Now().UTC(),
	}
	if err := s.record(ctx, p.ID, rec); err != nil {
		unrecorded := &UnrecordedDeliveryError{profileID: p.ID, record: rec, err: err}
		s.log.Error().
			Err(err).
			Bool("reconcile", true).
			Str("profile_id", p.ID).
			Str("delivery_id", rec.ID).
			Str("recipient", rec.RecipientEmail).
			Time("sent_at", rec.SentAt).
			Msg("delivery sent but not recorded")
		s.publish(ctx, events.TypeDeliveryUnrecorded, p.ID, rec, err)
		return nil, newError(KindPersistence, op, unrecorded)
	}

	s.log.Info().
		Str("profile_id", p.ID).
		Str("delivery_id", rec.ID).
		Str("mode", string(mode)).
		Str("access", string(access.Mode)).
		Msg("delivery sent")
	s.publish(ctx, events.TypeDeliverySent, p.ID, rec, nil)

	return &DeliveryResult{ProfileID: p.ID, Record: rec, Access: access.Mode}, nil
}

func (s *deliveryService) RetryRecord(ctx context.Context, deliverErr error) error {
	const op = "retry record"

	var unrecorded *UnrecordedDeliveryError
	if !errors.As(deliverErr, &unrecorded) {
		return newError(KindInvalidInput, op, ErrNotUnrecorded)
	}
	if err := s.record(ctx, unrecorded.profileID, unrecorded.record); err != nil {
		return newError(KindPersistence, op, &UnrecordedDeliveryError{
			profileID: unrecorded.profileID,
			record:    unrecorded.record,
			err:       err,
		})
	}
	s.log.Info().
		Str("profile_id", unrecorded.profileID).
		Str("delivery_id", unrecorded.record.ID).
		Msg("unrecorded delivery reconciled")
	s.publish(ctx, events.TypeDeliverySent, unrecorded.profileID, unrecorded.record, nil)
	return nil
}

// record appends rec with bounded retries. The mail has already left, so the write ignores
// caller cancellation and is bounded by its own timeout instead.
func (s *deliveryService) record(ctx context.Context, profileID string, rec model.DeliveryRecord) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	var lastErr error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return s.repo.AppendDelivery(wctx, profileID, rec)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, repository.ErrNotFound)
		},
		NotifyFunc: func(err error, attempt int) {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt).Str("delivery_id", rec.ID).Msg("history write failed")
		},
		Attempts:    s.attempts,
		Delay:       s.delay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       s.clock,
		Stop:        wctx.Done(),
	})
	if err != nil && lastErr != nil && retry.IsAttemptsExceeded(err) {
		return lastErr
	}
	return err
}

func (s *deliveryService) publish(ctx context.Context, typ, profileID string, rec model.DeliveryRecord, cause error) {
	ev := events.Event{
		Type:           typ,
		ProfileID:      profileID,
		DeliveryID:     rec.ID,
		RecipientEmail: rec.RecipientEmail,
		Mode:           string(rec.Mode),
		SentAt:         rec.SentAt,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Str("delivery_id", rec.ID).Msg("publish delivery event")
	}
}

func attachmentName(ref model.DocumentRef) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	return "document.pdf"
}
