// Package httpapi is the gin HTTP surface over the service layer. Handlers
// bind and validate requests, call one service operation and translate the
// result into the JSON envelope; no business rules live here.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/service"
)

// CookieConfig controls the session cookie the auth endpoints set.
type CookieConfig struct {
	MaxAge int // seconds
	Secure bool
}

// Server bundles the handler dependencies.
type Server struct {
	auth    *service.AuthService
	users   *service.UserService
	reviews *service.ReviewService
	cookie  CookieConfig
	log     *zap.Logger
}

// NewServer wires the handlers.
func NewServer(auth *service.AuthService, users *service.UserService, reviews *service.ReviewService, cookie CookieConfig, log *zap.Logger) *Server {
	return &Server{auth: auth, users: users, reviews: reviews, cookie: cookie, log: log}
}

// Router builds the route tree.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/logout", s.handleLogout)
		auth.POST("/forgot-password", s.handleForgotPassword)
		auth.PUT("/reset-password/:token", s.handleResetPassword)
		auth.GET("/verify-email/:token", s.handleVerifyEmail)
		auth.POST("/resend-verification", s.handleResendVerification)

		private := auth.Group("", s.Authenticate())
		private.GET("/me", s.handleMe)
		private.PUT("/profile", s.handleUpdateProfile)
		private.PUT("/change-password", s.handleChangePassword)
		private.POST("/addresses", s.handleAddAddress)
		private.PUT("/addresses/:addressId", s.handleUpdateAddress)
		private.DELETE("/addresses/:addressId", s.handleRemoveAddress)
		private.POST("/wishlist/:productId", s.handleAddToWishlist)
		private.DELETE("/wishlist/:productId", s.handleRemoveFromWishlist)
	}

	users := api.Group("/users", s.Authenticate(), s.RequireAdmin())
	{
		users.GET("", s.handleListUsers)
		users.GET("/dashboard/stats", s.handleDashboard)
		users.GET("/:id", s.handleGetUser)
		users.PUT("/:id", s.handleUpdateUser)
		users.DELETE("/:id", s.handleDeleteUser)
	}

	api.GET("/products/:productId/reviews", s.handleListReviews)
	api.POST("/products/:productId/reviews", s.Authenticate(), s.handleCreateReview)

	reviews := api.Group("/reviews", s.Authenticate())
	{
		reviews.PUT("/:id", s.handleUpdateReview)
		reviews.DELETE("/:id", s.handleDeleteReview)
		reviews.PUT("/:id/status", s.RequireAdmin(), s.handleReviewStatus)
	}

	return r
}
