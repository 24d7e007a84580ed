package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reshmacrochets/backend/internal/domain"
)

const (
	// SessionCookie is the cookie carrying the session token for browser
	// clients; API clients use the Authorization header instead.
	SessionCookie = "token"

	userKey      = "authedUser"
	requestIDKey = "requestId"
)

// RequestID tags every request with an id echoed in the X-Request-Id header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// sessionToken extracts the token from the Authorization header, falling
// back to the session cookie.
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// Authenticate resolves the session token to an account and stores it on
// the context. Missing, invalid and stale tokens all answer 401.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := sessionToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				Success: false,
				Message: "Not authorized to access this route",
			})
			return
		}

		user, err := s.auth.Authenticate(c.Request.Context(), tok)
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after Authenticate.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, envelope{
				Success: false,
				Message: "Access denied. Admin privileges required.",
			})
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated account. Only valid on routes
// behind Authenticate.
func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userKey).(*domain.User)
}
