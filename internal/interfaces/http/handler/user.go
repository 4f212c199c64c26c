package handler

import (
	"github.com/erp/bizdesk/internal/application/identity"
	"github.com/gin-gonic/gin"
)

// UserHandler manages operator accounts. Every route is admin-only.
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, users)
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req identity.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, user)
}

// Disable handles POST /users/:id/disable
func (h *UserHandler) Disable(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, ok := h.parseID(c, "id", "user")
	if !ok {
		return
	}

	user, err := h.userService.Disable(c.Request.Context(), actorID, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, user)
}
