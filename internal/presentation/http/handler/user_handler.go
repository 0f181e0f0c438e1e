package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/request"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
)

// UserHandler handles staff account management
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListAdmins lists staff accounts
// @Summary List admins
// @Tags admins
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /admins [get]
func (h *UserHandler) ListAdmins(c *gin.Context) {
	users, err := h.userService.ListAdmins(c.Request.Context(), GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	response.OK(c, "Admins retrieved successfully", views)
}

// CreateAdmin grants admin rights to an account, creating it when missing
func (h *UserHandler) CreateAdmin(c *gin.Context) {
	var req request.CreateAdminRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.CreateAdmin(c.Request.Context(), GetActor(c), &service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Admin created successfully", userView(user))
}

// RemoveAdmin revokes admin rights
func (h *UserHandler) RemoveAdmin(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.RemoveAdmin(c.Request.Context(), GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
