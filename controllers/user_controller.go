package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// UserController exposes admin account management.
type UserController struct {
	users *services.UserService
	log   *zap.Logger
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService, log *zap.Logger) *UserController {
	return &UserController{users: users, log: log}
}

// SetActive enables or disables an account.
func (u *UserController) SetActive(ctx *gin.Context) {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40030)
		return
	}
	user, err := u.users.SetActive(ctx.Request.Context(), middleware.CurrentIdentity(ctx), userID, *req.IsActive)
	if err != nil {
		respondError(ctx, u.log, err, 50030)
		return
	}
	utils.Success(ctx, presentUser(*user, true))
}
