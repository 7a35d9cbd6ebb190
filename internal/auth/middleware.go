package auth

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// TokenFrom reads a bearer token from the Authorization header, or from the
// token query parameter for websocket upgrades.
func TokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// LocaleFrom prefers the lang query parameter over Accept-Language.
func LocaleFrom(c *gin.Context, fallback domain.Locale) domain.Locale {
	if l, err := domain.ParseLocale(c.Query("lang")); err == nil {
		return l
	}
	return domain.LocaleFromHeader(c.GetHeader("Accept-Language"), fallback)
}

// Middleware rejects requests without a valid token and stores the session
// for handlers.
func Middleware(tokens *Tokens, defaultLocale domain.Locale) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFrom(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header or token query parameter required"})
			return
		}

		sess, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sess.Locale = LocaleFrom(c, defaultLocale)

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session stored by Middleware.
func SessionFrom(c *gin.Context) (domain.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	sess, ok := v.(domain.Session)
	return sess, ok
}
