package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equilibra/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "userID"

// SessionCookie is the cookie carrying the session token for browser
// clients that can't set an Authorization header.
const SessionCookie = "session"

// JWTAuthMiddleware authenticates requests via a Bearer token or the session
// cookie and stores the user id (int64) in the gin context.
func JWTAuthMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				tokenStr = cookie
			}
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		userID, err := issuer.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// CurrentUserID extracts the authenticated user id set by JWTAuthMiddleware.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
