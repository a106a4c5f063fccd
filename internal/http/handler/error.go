package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docsend/internal/http/middleware"
	"docsend/internal/model"
	"docsend/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Record is set for SENT_NOT_RECORDED: the mail left, this entry is missing from history.
	Record *model.DeliveryRecord `json:"record,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writePayload(c, status, errorEnvelope{Code: code, Message: message})
}

func writePayload(c *fiber.Ctx, status int, env errorEnvelope) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     env,
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a service error kind to its response. Only fixed messages reach the
// client; the error itself is kept for the request log.
func writeServiceError(c *fiber.Ctx, err error) error {
	c.Locals(middleware.ErrorLocalKey, err)

	var se *service.Error
	errors.As(err, &se)

	switch service.KindOf(err) {
	case service.KindNotFound:
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "profile not found")
	case service.KindInvalidInput:
		if errors.Is(err, service.ErrAttachmentTooLarge) {
			return writeError(c, fiber.StatusRequestEntityTooLarge, "ATTACHMENT_TOO_LARGE", service.ErrAttachmentTooLarge.Error())
		}
		msg := "invalid input"
		if se != nil && se.Err != nil {
			msg = se.Err.Error()
		}
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", msg)
	case service.KindInvalidState:
		return writeError(c, fiber.StatusConflict, "INVALID_STATE", "document reference is not usable")
	case service.KindUpstreamFetch:
		return writeError(c, fiber.StatusFailedDependency, "UPSTREAM_FETCH_FAILED", "document could not be fetched from storage")
	case service.KindDispatch:
		return writeError(c, fiber.StatusBadGateway, "DISPATCH_FAILED", "mail transport failed to send the message")
	case service.KindPersistence:
		env := errorEnvelope{Code: "SENT_NOT_RECORDED", Message: "mail was sent but the delivery could not be recorded"}
		var unrecorded *service.UnrecordedDeliveryError
		if errors.As(err, &unrecorded) {
			rec := unrecorded.Record()
			env.Record = &rec
		}
		return writePayload(c, fiber.StatusInternalServerError, env)
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			c.Locals(middleware.ErrorLocalKey, err)
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
