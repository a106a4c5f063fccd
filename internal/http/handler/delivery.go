package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docsend/internal/model"
	"docsend/internal/service"
)

type sendRequest struct {
	Email string `json:"email"`
	// Mode is "link" or "attachment"; empty uses the configured default.
	Mode string `json:"mode,omitempty"`
}

type sendResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Record  model.DeliveryRecord `json:"record"`
}

// SendProfile emails the profile's document to a recipient.
//
// @Summary Send the document
// @Tags profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param body body sendRequest true "Recipient"
// @Success 200 {object} sendResponse
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 424 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /profiles/{id}/send [post]
func SendProfile(svc service.DeliveryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req sendRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		res, err := svc.Deliver(c.UserContext(), service.DeliverInput{
			ProfileID:      id,
			RecipientEmail: req.Email,
			Mode:           model.DeliveryMode(req.Mode),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sendResponse{Success: true, Message: "Email sent successfully", Record: res.Record})
	}
}
