package service

import (
	"errors"
	"fmt"

	"docsend/internal/model"
)

var (
	ErrIDRequired         = errors.New("id is required")
	ErrNotFound           = errors.New("profile not found")
	ErrReaderNil          = errors.New("reader is nil")
	ErrSenderRequired     = errors.New("sender email is required")
	ErrInvalidSender      = errors.New("sender email is invalid")
	ErrDocumentEmpty      = errors.New("document is empty")
	ErrRecipientRequired  = errors.New("recipient email is required")
	ErrInvalidRecipient   = errors.New("recipient email is invalid")
	ErrInvalidMode        = errors.New("unsupported delivery mode")
	ErrUnusableReference  = errors.New("profile has no usable document reference")
	ErrUnknownReference   = errors.New("document reference does not match a known convention")
	ErrAttachmentTooLarge = errors.New("document exceeds the attachment size limit")
	ErrNotUnrecorded      = errors.New("error does not carry an unrecorded delivery")
)

// Kind classifies service failures. Callers branch on the kind, never on message text.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindInvalidState
	KindUpstreamFetch
	KindDispatch
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindUpstreamFetch:
		return "upstream_fetch_error"
	case KindDispatch:
		return "dispatch_error"
	case KindPersistence:
		return "persistence_error"
	default:
		return "internal"
	}
}

// Error is a classified failure of a service operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// UnrecordedDeliveryError reports a mail that left the system but whose history record could
// not be written. It holds what DeliveryService.RetryRecord needs to write the record alone.
type UnrecordedDeliveryError struct {
	profileID string
	record    model.DeliveryRecord
	err       error
}

// NewUnrecordedDeliveryError rebuilds the error from a reconciliation source, such as a
// delivery.unrecorded event, so the record can be passed to DeliveryService.RetryRecord.
func NewUnrecordedDeliveryError(profileID string, rec model.DeliveryRecord, err error) *UnrecordedDeliveryError {
	return &UnrecordedDeliveryError{profileID: profileID, record: rec, err: err}
}

func (e *UnrecordedDeliveryError) Error() string {
	return fmt.Sprintf("delivery %s to %s was sent but not recorded: %v", e.record.ID, e.record.RecipientEmail, e.err)
}

func (e *UnrecordedDeliveryError) Unwrap() error { return e.err }

// ProfileID is the profile the record belongs to.
func (e *UnrecordedDeliveryError) ProfileID() string { return e.profileID }

// Record is the history entry that still has to be written.
func (e *UnrecordedDeliveryError) Record() model.DeliveryRecord { return e.record }
