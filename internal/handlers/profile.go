package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// maxImageBytes bounds profile image uploads.
const maxImageBytes = 5 << 20

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	users *services.UserService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// UpdateProfile applies the fields present in the body.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var patch services.ProfilePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), userID, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// UploadImage stores the multipart "image" field as the profile picture.
func (h *ProfileHandler) UploadImage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	if header.Size > maxImageBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "image is too large")
	}
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return err
	}
	user, err := h.users.UpdateProfileImage(c.UserContext(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
