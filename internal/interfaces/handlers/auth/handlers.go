package auth

import (
	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/interfaces/handlers"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves sign-up, sign-in and logout for the session coordinator.
type Handlers struct{}

type SignupRequest struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	CompanyName string      `json:"companyName"`
	OwnerName   string      `json:"ownerName"`
	Role        domain.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup POST /api/v1/auth/signup. An omitted role falls back to the form's role selector.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := middleware.GetCoordinator(c).Authenticate(c.UserContext(), coordinator.ModeSignUp, coordinator.Credentials{
		Email:       req.Email,
		Password:    req.Password,
		CompanyName: req.CompanyName,
		OwnerName:   req.OwnerName,
	}, req.Role)
	if err != nil {
		return handlers.Fail(c, err)
	}
	return response.SuccessCreated(c, "Account created", u, nil)
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := middleware.GetCoordinator(c).Authenticate(c.UserContext(), coordinator.ModeSignIn, coordinator.Credentials{
		Email:    req.Email,
		Password: req.Password,
	}, "")
	if err != nil {
		return handlers.Fail(c, err)
	}
	return response.Success(c, "Login successful", u, nil)
}

// Logout POST /api/v1/auth/logout. Always succeeds; the cookie stays so the
// browser keeps its (now anonymous) coordinator.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	middleware.GetCoordinator(c).Logout(c.UserContext())
	return response.Success(c, "Logout successful", nil, nil)
}

// Me GET /api/v1/auth/me (RequireAuth).
func (h *Handlers) Me(c *fiber.Ctx) error {
	return response.Success(c, "Session user", middleware.GetUser(c), nil)
}

// SetRole PUT /api/v1/auth/role selects buyer or seller on the auth form.
func (h *Handlers) SetRole(c *fiber.Ctx) error {
	var req struct {
		Role domain.Role `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := middleware.GetCoordinator(c).SetAuthRole(req.Role); err != nil {
		return handlers.Fail(c, err)
	}
	return response.Success(c, "Role selected", fiber.Map{"role": req.Role}, nil)
}
