package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/constants"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
)

// RequireAuth accepts a bearer token, falling back to the token kept in the session cookie.
func RequireAuth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := RequestToken(c)
		if token == "" {
			apierrors.Unauthorized(c, "No token provided")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// RequestToken returns the token from the Authorization header or the session, or "".
func RequestToken(c *gin.Context) string {
	if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}

	// sessions.Default panics when the session middleware is not installed
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if token, ok := sessions.Default(c).Get(constants.SessionKeyToken).(string); ok {
		return token
	}
	return ""
}

// SetClaims stores the authenticated identity in the request context.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(constants.ContextKeyUserID, claims.UserID)
	c.Set(constants.ContextKeyUserEmail, claims.Email)
	c.Set(constants.ContextKeyUserName, claims.Name)
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(constants.ContextKeyUserID)
	return userID, userID != ""
}

func GetUserName(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserName)
}
