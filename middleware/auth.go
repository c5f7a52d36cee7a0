package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

const (
	// ContextIdentityKey holds the *services.Identity of an authenticated request.
	ContextIdentityKey = "identity"
	// contextAuthErrKey holds why a presented token was rejected.
	contextAuthErrKey = "auth_error"
)

var (
	errMissingHeader = errors.New("authorization header missing")
	errBadHeader     = errors.New("invalid authorization header format")
)

// TokenResolver verifies bearer tokens.
type TokenResolver interface {
	Resolve(token string) (*services.Claims, error)
}

// IdentityLookup loads the identity a verified token names.
type IdentityLookup interface {
	IdentityFor(ctx context.Context, userID uint) (*services.Identity, error)
}

// Authenticate resolves the bearer token when one is sent. It never rejects
// a request itself: public routes stay reachable and AuthRequired decides.
func Authenticate(tokens TokenResolver, users IdentityLookup, log *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := bearerToken(ctx.GetHeader("Authorization"))
		if err != nil {
			ctx.Set(contextAuthErrKey, err)
			ctx.Next()
			return
		}

		claims, err := tokens.Resolve(token)
		if err == nil {
			var id *services.Identity
			id, err = users.IdentityFor(ctx.Request.Context(), claims.UserID)
			if err == nil {
				ctx.Set(ContextIdentityKey, id)
				ctx.Next()
				return
			}
		}

		switch {
		case errors.Is(err, services.ErrExpiredToken):
			log.Debug("expired token", zap.String("path", ctx.FullPath()))
		case errors.Is(err, services.ErrAuthentication):
			log.Info("rejected token", zap.String("path", ctx.FullPath()), zap.Error(err))
		default:
			log.Error("identity lookup failed", zap.Error(err))
		}
		ctx.Set(contextAuthErrKey, err)
		ctx.Next()
	}
}

// AuthRequired aborts with 401 unless Authenticate attached an identity.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentIdentity(ctx) != nil {
			ctx.Next()
			return
		}

		var cause error
		if v, ok := ctx.Get(contextAuthErrKey); ok {
			cause, _ = v.(error)
		}
		switch {
		case errors.Is(cause, errBadHeader):
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
		case errors.Is(cause, services.ErrExpiredToken):
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token expired")
		case errors.Is(cause, services.ErrAccountDisabled):
			utils.Error(ctx, http.StatusUnauthorized, 40108, "account disabled")
		case errors.Is(cause, services.ErrInvalidToken):
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		case cause == nil, errors.Is(cause, errMissingHeader):
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to authenticate")
		}
		ctx.Abort()
	}
}

// CurrentIdentity returns the request's identity, or nil when anonymous.
func CurrentIdentity(ctx *gin.Context) *services.Identity {
	v, ok := ctx.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*services.Identity)
	return id
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errBadHeader
	}
	return token, nil
}
