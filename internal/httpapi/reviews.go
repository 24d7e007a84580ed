package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/service"
)

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"omitempty,max=100"`
	Comment string `json:"comment" binding:"required,max=500"`
}

func (s *Server) handleListReviews(c *gin.Context) {
	productID, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}

	reviews, err := s.reviews.ListApproved(c.Request.Context(), productID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, reviews)
}

func (s *Server) handleCreateReview(c *gin.Context) {
	productID, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := s.reviews.Create(c.Request.Context(), currentUser(c).ID, productID, service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, review)
}

func (s *Server) handleUpdateReview(c *gin.Context) {
	reviewID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := s.reviews.Update(c.Request.Context(), currentUser(c).ID, reviewID, service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(c *gin.Context) {
	reviewID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.reviews.Delete(c.Request.Context(), currentUser(c), reviewID); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Review deleted successfully")
}

type reviewStatusRequest struct {
	Status domain.ReviewStatus `json:"status" binding:"required,oneof=pending approved rejected"`
}

func (s *Server) handleReviewStatus(c *gin.Context) {
	reviewID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req reviewStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := s.reviews.SetStatus(c.Request.Context(), reviewID, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, review)
}
