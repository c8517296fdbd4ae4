package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realty/catalog/internal/api/apierr"
	"realty/catalog/internal/auth"
	"realty/catalog/internal/logging"
)

// ContextKeySubject holds the authenticated editor in the Gin context.
const ContextKeySubject = "subject"

// AuthMiddleware creates a Gin middleware for JWT authentication. With an
// empty secret every request passes unauthenticated.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected token")
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}
