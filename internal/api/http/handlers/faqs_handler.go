package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpme/helpdesk/internal/api/dto"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/service"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// FAQsHandler serves the knowledge base.
type FAQsHandler struct {
	faqs *service.FAQService
}

// NewFAQsHandler constructs handler.
func NewFAQsHandler(faqService *service.FAQService) *FAQsHandler {
	return &FAQsHandler{faqs: faqService}
}

// List GET /faqs.
func (h *FAQsHandler) List(c *fiber.Ctx) error {
	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	faqs, err := h.faqs.List(c.Context(), category)
	if err != nil {
		return err
	}
	items := make([]dto.FAQResponse, 0, len(faqs))
	for i := range faqs {
		items = append(items, faqResponse(&faqs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /faqs/:id.
func (h *FAQsHandler) Get(c *fiber.Ctx) error {
	faq, err := h.faqs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": faqResponse(faq)})
}

// Create POST /faqs. Route is restricted to agents and admins.
func (h *FAQsHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateFAQRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	faq, err := h.faqs.Create(c.Context(), user, req.Question, req.Answer, req.Category)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": faqResponse(faq)})
}

func faqResponse(faq *domain.FAQ) dto.FAQResponse {
	return dto.FAQResponse{
		ID:        faq.ID,
		Question:  faq.Question,
		Answer:    faq.Answer,
		Category:  faq.Category,
		CreatedAt: faq.CreatedAt,
	}
}
