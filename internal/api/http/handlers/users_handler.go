package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/helpme/helpdesk/internal/api/dto"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/repository"
	"github.com/helpme/helpdesk/internal/service"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// UsersHandler exposes auth and profile endpoints.
type UsersHandler struct {
	auth     *service.AuthService
	profiles repository.ProfileRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, profiles repository.ProfileRepository) *UsersHandler {
	return &UsersHandler{auth: authService, profiles: profiles}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "username, name, email, password required")
	}

	user, token, exp, err := h.auth.Register(c.Context(), service.RegisterInput{
		Username:         req.Username,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
		PhoneNumber:      req.PhoneNumber,
		Address:          req.Address,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"name":     user.Name,
				"email":    user.Email,
				"role":     user.Role,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"name":     user.Name,
				"email":    user.Email,
				"role":     user.Role,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *UsersHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	token, err := h.auth.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		// Do not reveal whether the email exists.
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(fiber.Map{"data": fiber.Map{"status": "accepted"}})
		}
		return apperrors.MapError(err)
	}

	// Token would go out via email in production; returned here for the stub flow.
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":     "accepted",
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	}})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *UsersHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := c.BodyParser(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "token and new_password required")
	}
	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password updated"}})
}

// ChangePassword handles POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current_password and new_password required")
	}
	if err := h.auth.ChangePassword(c.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password updated"}})
}

// GetProfile handles GET /profile.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	resp := dto.ProfileResponse{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     string(user.Role),
	}
	profile, err := h.profiles.GetByUserID(c.Context(), user.ID)
	if err == nil {
		resp.PhoneNumber = profile.PhoneNumber
		resp.Address = profile.Address
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpdateProfile handles PUT /profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	profile := &domain.Profile{
		UserID:      user.ID,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	}
	if err := h.profiles.Update(c.Context(), profile); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := h.profiles.Create(c.Context(), profile); err != nil {
				return apperrors.MapError(err)
			}
		} else {
			return apperrors.MapError(err)
		}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "profile updated"}})
}
