package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/fault-service/internal/api/dto"
	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/config"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/service"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// FaultsHandler manages fault lifecycle endpoints.
type FaultsHandler struct {
	service *service.FaultService
	uploads config.UploadsConfig
}

// NewFaultsHandler constructs handler.
func NewFaultsHandler(faultService *service.FaultService, uploads config.UploadsConfig) *FaultsHandler {
	return &FaultsHandler{service: faultService, uploads: uploads}
}

// CreateFault POST /faults. Accepts a multipart form with an optional
// image part.
func (h *FaultsHandler) CreateFault(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateFaultRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	imageURL, err := h.saveImage(c)
	if err != nil {
		return err
	}

	fault, err := h.service.Create(c.Context(), principal.User.ID, service.FaultCreateInput{
		HostelName:  req.HostelName,
		Floor:       req.Floor,
		Location:    req.Location,
		Description: req.Description,
		ImageURL:    imageURL,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FaultResponseFrom(fault)})
}

// ListMyFaults GET /faults/my-faults.
func (h *FaultsHandler) ListMyFaults(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	faults, err := h.service.ListMyFaults(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.FaultResponse, 0, len(faults))
	for i := range faults {
		items = append(items, dto.FaultResponseFrom(&faults[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAssignedFaults GET /faults/assigned.
func (h *FaultsHandler) ListAssignedFaults(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	faults, err := h.service.ListAssigned(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": faultDetails(faults)})
}

// ListAllFaults GET /faults/all.
func (h *FaultsHandler) ListAllFaults(c *fiber.Ctx) error {
	faults, err := h.service.ListAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": faultDetails(faults)})
}

// GetFault GET /faults/:id.
func (h *FaultsHandler) GetFault(c *fiber.Ctx) error {
	detail, err := h.service.GetFault(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FaultDetailResponseFrom(detail)})
}

// AssignFault PUT /faults/:id/assign.
func (h *FaultsHandler) AssignFault(c *fiber.Ctx) error {
	detail, err := h.service.Assign(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FaultDetailResponseFrom(detail)})
}

// UpdateStatus PUT /faults/:id/status.
func (h *FaultsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	detail, err := h.service.UpdateStatus(c.Context(), c.Params("id"), domain.FaultStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FaultDetailResponseFrom(detail)})
}

// AddComment POST /faults/:id/comments.
func (h *FaultsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.Context(), c.Params("id"), principal.User.ID, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentResponseFrom(comment)})
}

// ListComments GET /faults/:id/comments.
func (h *FaultsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.CommentResponseFrom(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /faults/stats.
func (h *FaultsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponseFrom(stats)})
}

// saveImage stores the optional multipart image part and returns its public
// URL. A request without an image part is not an error.
func (h *FaultsHandler) saveImage(c *fiber.Ctx) (*string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(h.uploads.Dir, name)); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("save image: %w", err))
	}
	url := h.uploads.BaseURL + "/" + name
	return &url, nil
}

func faultDetails(faults []domain.FaultDetail) []dto.FaultDetailResponse {
	items := make([]dto.FaultDetailResponse, 0, len(faults))
	for i := range faults {
		items = append(items, dto.FaultDetailResponseFrom(&faults[i]))
	}
	return items
}
