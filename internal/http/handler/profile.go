package handler

import (
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docsend/internal/model"
	"docsend/internal/service"
)

// historyResponse wraps a profile's delivery records.
type historyResponse struct {
	Data []model.DeliveryRecord `json:"data"`
}

// CreateProfile uploads a document and creates a profile for it.
// Multipart fields: document (file, alias pdf), sender_email, message.
//
// @Summary Create a profile
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "Document to share"
// @Param sender_email formData string true "Sender email"
// @Param message formData string false "Message for recipients"
// @Success 201 {object} model.Profile
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /profiles [post]
func CreateProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := formDocument(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "DOCUMENT_REQUIRED", "document is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		p, err := svc.Create(c.UserContext(), service.CreateProfileInput{
			SenderEmail: c.FormValue("sender_email"),
			Message:     c.FormValue("message"),
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Reader:      f,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

func formDocument(c *fiber.Ctx) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("document")
	if err == nil {
		return fh, nil
	}
	return c.FormFile("pdf")
}

// ListProfiles lists profiles newest first. Without limit, all profiles are returned.
//
// @Summary List profiles
// @Tags profiles
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ProfileListResult
// @Failure 400 {object} errorPayload
// @Router /profiles [get]
func ListProfiles(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetProfile returns a profile by ID.
//
// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} model.Profile
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /profiles/{id} [get]
func GetProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// ProfileHistory returns the delivery records of a profile in send order.
//
// @Summary Delivery history
// @Tags profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} historyResponse
// @Failure 404 {object} errorPayload
// @Router /profiles/{id}/history [get]
func ProfileHistory(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		recs, err := svc.History(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(historyResponse{Data: recs})
	}
}
