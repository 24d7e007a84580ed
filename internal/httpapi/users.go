package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/repository"
)

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "Invalid id",
		})
		return primitive.NilObjectID, false
	}
	return id, true
}

type addressRequest struct {
	Type       string `json:"type" binding:"required,oneof=home work other"`
	FirstName  string `json:"firstName" binding:"omitempty,max=50"`
	LastName   string `json:"lastName" binding:"omitempty,max=50"`
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Phone      string `json:"phone" binding:"omitempty,max=20"`
	IsDefault  bool   `json:"isDefault"`
}

func (r addressRequest) toDomain() domain.Address {
	return domain.Address{
		Type:       r.Type,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Phone:      r.Phone,
		IsDefault:  r.IsDefault,
	}
}

func (s *Server) handleAddAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := s.users.AddAddress(c.Request.Context(), currentUser(c).ID, req.toDomain())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondUser(c, http.StatusCreated, user)
}

func (s *Server) handleUpdateAddress(c *gin.Context) {
	addressID, ok := objectIDParam(c, "addressId")
	if !ok {
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := s.users.UpdateAddress(c.Request.Context(), currentUser(c).ID, addressID, req.toDomain())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondUser(c, http.StatusOK, user)
}

func (s *Server) handleRemoveAddress(c *gin.Context) {
	addressID, ok := objectIDParam(c, "addressId")
	if !ok {
		return
	}

	user, err := s.users.RemoveAddress(c.Request.Context(), currentUser(c).ID, addressID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondUser(c, http.StatusOK, user)
}

func (s *Server) handleAddToWishlist(c *gin.Context) {
	productID, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	if err := s.users.AddToWishlist(c.Request.Context(), currentUser(c).ID, productID); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product added to wishlist")
}

func (s *Server) handleRemoveFromWishlist(c *gin.Context) {
	productID, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	if err := s.users.RemoveFromWishlist(c.Request.Context(), currentUser(c).ID, productID); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product removed from wishlist")
}

func (s *Server) handleListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := repository.ListFilter{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	if v := c.Query("isActive"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	users, total, err := s.users.ListUsers(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  filter.Page,
			"limit": filter.Limit,
			"total": total,
		},
	})
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	user, stats, err := s.users.GetUserWithStats(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user, "orderStats": stats})
}

type adminUpdateRequest struct {
	FirstName  *string      `json:"firstName" binding:"omitempty,min=2,max=50"`
	LastName   *string      `json:"lastName" binding:"omitempty,min=2,max=50"`
	Phone      *string      `json:"phone" binding:"omitempty,max=20"`
	Role       *domain.Role `json:"role" binding:"omitempty,oneof=customer admin"`
	IsVerified *bool        `json:"isVerified"`
	IsActive   *bool        `json:"isActive"`
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req adminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := s.users.UpdateUser(c.Request.Context(), id, repository.AdminUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Role:       req.Role,
		IsVerified: req.IsVerified,
		IsActive:   req.IsActive,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondUser(c, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	deactivated, err := s.users.DeleteUser(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if deactivated {
		respondMessage(c, http.StatusOK, "User has orders and was deactivated instead of deleted")
		return
	}
	respondMessage(c, http.StatusOK, "User deleted successfully")
}

func (s *Server) handleDashboard(c *gin.Context) {
	dash, err := s.users.GetDashboard(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, dash)
}
