package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// AuthHandler manages authentication endpoints.
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Signup registers a user and sends the SIGNUP code.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req services.SignupInput
	if err := bind(c, &req); err != nil {
		return err
	}
	challenge, err := h.users.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "verification code sent",
		"data":    challenge,
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and sends the LOGIN code.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}
	if login == "" {
		login = req.Email
	}
	challenge, err := h.users.Login(c.UserContext(), login, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "verification code sent", "data": challenge})
}

type otpRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
	Purpose    string `json:"purpose"`
}

func parsePurpose(value string) (models.OTPPurpose, error) {
	purpose, ok := models.ParseOTPPurpose(value)
	if !ok {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid purpose")
	}
	return purpose, nil
}

// VerifyOTP exchanges a code for a session token.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	purpose, err := parsePurpose(req.Purpose)
	if err != nil {
		return err
	}
	result, err := h.users.VerifyOTP(c.UserContext(), req.Identifier, req.Code, purpose)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}

type googleRequest struct {
	IDToken    string `json:"id_token"`
	Credential string `json:"credential"`
}

// Google signs in with a Google ID token.
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	var req googleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token := req.IDToken
	if token == "" {
		token = req.Credential
	}
	challenge, err := h.users.GoogleSignIn(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "verification code sent", "data": challenge})
}

// ResendOTP issues a fresh code.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	purpose, err := parsePurpose(req.Purpose)
	if err != nil {
		return err
	}
	challenge, err := h.users.ResendOTP(c.UserContext(), req.Identifier, purpose)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "verification code sent", "data": challenge})
}

// ForgotPassword sends a PASSWORD_RESET code.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req otpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	challenge, err := h.users.ForgotPassword(c.UserContext(), req.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "reset code sent", "data": challenge})
}

type resetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword sets a new password using a PASSWORD_RESET code.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.users.ResetPassword(c.UserContext(), req.Identifier, req.Code, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "password updated"})
}
