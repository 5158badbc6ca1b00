package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/service"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// FilesHandler streams stored attachments.
type FilesHandler struct {
	chat *service.ChatService
}

// NewFilesHandler constructs handler.
func NewFilesHandler(chatService *service.ChatService) *FilesHandler {
	return &FilesHandler{chat: chatService}
}

// Download GET /files/:key. Access follows the owning ticket's
// conversation membership.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	attachment, reader, err := h.chat.OpenAttachment(c.Context(), user, c.Params("key"))
	if err != nil {
		return err
	}
	defer reader.Close()

	if attachment.MimeType != "" {
		c.Set(fiber.HeaderContentType, attachment.MimeType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	return c.SendStream(reader, int(attachment.SizeBytes))
}
