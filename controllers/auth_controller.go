package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// AuthController handles registration, login and the caller's own account.
type AuthController struct {
	users    *services.UserService
	sessions *services.SessionIssuer
	log      *zap.Logger
}

// NewAuthController creates an AuthController.
func NewAuthController(users *services.UserService, sessions *services.SessionIssuer, log *zap.Logger) *AuthController {
	return &AuthController{users: users, sessions: sessions, log: log}
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

// Register creates an account and signs the new user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.Registration
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40001)
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, a.log, err, 50002)
		return
	}
	a.respondSession(ctx, http.StatusCreated, *user)
}

// Login exchanges an email and password for a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40003)
		return
	}

	user, err := a.users.VerifyCredentials(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, a.log, err, 50004)
		return
	}
	a.respondSession(ctx, http.StatusOK, *user)
}

func (a *AuthController) respondSession(ctx *gin.Context, status int, user models.User) {
	token, expiresAt, err := a.sessions.Issue(user.ID)
	if err != nil {
		a.log.Error("token signing failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", sessionView{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      presentUser(user, true),
	})
}

// Me returns the authenticated user's account.
func (a *AuthController) Me(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	if err := services.RequireAuthenticated(id); err != nil {
		respondError(ctx, a.log, err, 50010)
		return
	}
	user, err := a.users.Get(ctx.Request.Context(), id.UserID)
	if err != nil {
		respondError(ctx, a.log, err, 50010)
		return
	}
	utils.Success(ctx, presentUser(*user, true))
}

// Logout has nothing to revoke; the client discards its token.
func (a *AuthController) Logout(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// UpdateProfile changes the caller's names or avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var patch services.ProfilePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		badPayload(ctx, 40011)
		return
	}
	user, err := a.users.UpdateProfile(ctx.Request.Context(), middleware.CurrentIdentity(ctx), patch)
	if err != nil {
		respondError(ctx, a.log, err, 50011)
		return
	}
	utils.Success(ctx, presentUser(*user, true))
}

// ChangePassword replaces the caller's password.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, 40012)
		return
	}
	err := a.users.SetPassword(ctx.Request.Context(), middleware.CurrentIdentity(ctx), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(ctx, a.log, err, 50012)
		return
	}
	utils.Success(ctx, gin.H{"message": "password updated"})
}
