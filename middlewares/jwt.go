package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/utils"

	"github.com/gin-gonic/gin"
)

// TokenCookie carries the token for browser clients.
const TokenCookie = "Bearer"

const principalKey = "principal"

// PrincipalResolver loads the current state of a token's subject.
type PrincipalResolver interface {
	Principal(ctx context.Context, id string) (models.Principal, error)
}

// JWT authenticates the request from the Authorization header or the
// Bearer cookie. The role is taken from the user store, not from the token.
func JWT(secret []byte, resolver PrincipalResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// Try to get token from Authorization header first (for API clients)
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		// If not in header, try cookie (for browser)
		if tokenString == "" {
			tokenCookie, err := c.Request.Cookie(TokenCookie)
			if err != nil || tokenCookie.Value == "" {
				abort(c, http.StatusUnauthorized, "Not authorized, no token")
				return
			}
			tokenString = tokenCookie.Value
		}

		claims, err := utils.ParseToken(tokenString, secret)
		if errors.Is(err, utils.ErrTokenExpired) {
			abort(c, http.StatusUnauthorized, "Token has expired")
			return
		}
		if err != nil {
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		principal, err := resolver.Principal(c.Request.Context(), claims.UserID)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok && appErr.Kind == apperrors.KindUnauthorized {
				abort(c, http.StatusUnauthorized, appErr.Message)
				return
			}
			logger.Error("resolve principal", slog.String("user_id", claims.UserID), slog.Any("error", err))
			abort(c, http.StatusInternalServerError, "Server error")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// AdminOnly must run after JWT.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		if ok, _ := utils.AuthorizeRole(principal.Role, models.RoleAdmin); !ok {
			abort(c, http.StatusForbidden, "User role "+principal.Role+" is not authorized to access this route")
			return
		}
		c.Next()
	}
}

func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
