package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reshmacrochets/backend/internal/repository"
	"github.com/reshmacrochets/backend/internal/service"
)

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required,min=2,max=50"`
	LastName  string `json:"lastName" binding:"required,min=2,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// setSessionCookie mirrors the token in an httpOnly cookie for browser
// clients. SameSite=Strict; Secure outside development.
func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, s.cookie.MaxAge, "/", "", s.cookie.Secure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.cookie.Secure, true)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, token, err := s.auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusCreated, envelope{Success: true, User: user, Token: token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, envelope{Success: true, User: user, Token: token})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.clearSessionCookie(c)
	respondMessage(c, http.StatusOK, "Logged out successfully")
}

func (s *Server) handleMe(c *gin.Context) {
	respondUser(c, http.StatusOK, currentUser(c))
}

type profileRequest struct {
	FirstName   *string    `json:"firstName" binding:"omitempty,min=2,max=50"`
	LastName    *string    `json:"lastName" binding:"omitempty,min=2,max=50"`
	Phone       *string    `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Gender      *string    `json:"gender" binding:"omitempty,oneof=male female other"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := s.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, repository.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondUser(c, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	token, err := s.auth.ChangePassword(c.Request.Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Password changed successfully", Token: token})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := s.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password reset email sent")
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, token, err := s.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, envelope{Success: true, User: user, Token: token})
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	user, err := s.auth.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Email verified successfully", User: user})
}

func (s *Server) handleResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := s.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Verification email sent")
}
