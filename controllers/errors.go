package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// respondError writes the envelope for a service error. Untagged errors are
// logged and reported as 500 with internalCode.
func respondError(ctx *gin.Context, log *zap.Logger, err error, internalCode int) {
	var fe *services.FieldError
	var data interface{}
	if errors.As(err, &fe) {
		data = gin.H{"field": fe.Field}
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Respond(ctx, http.StatusBadRequest, 40002, err.Error(), data)
	case errors.Is(err, services.ErrConflict):
		utils.Respond(ctx, http.StatusConflict, 40901, err.Error(), data)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
	case errors.Is(err, services.ErrAccountDisabled):
		utils.Error(ctx, http.StatusUnauthorized, 40108, "account disabled")
	case errors.Is(err, services.ErrAuthentication):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	case errors.Is(err, services.ErrAuthorization):
		utils.Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, err.Error())
	default:
		log.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, internalCode, "internal server error")
	}
}

// parseID reads a positive numeric path parameter, answering 400 when it is not one.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func badPayload(ctx *gin.Context, code int) {
	utils.Error(ctx, http.StatusBadRequest, code, "invalid request payload")
}
