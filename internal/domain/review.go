package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewStatus is the moderation state of a review. Only approved reviews
// count toward product rating statistics.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ValidReviewStatus reports whether s is one of the known moderation states.
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// Review is one customer's review of one product. A (user, product) pair
// may have at most one review, enforced by a unique compound index.
type Review struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user" json:"user"`
	ProductID          primitive.ObjectID `bson:"product" json:"product"`
	Rating             int                `bson:"rating" json:"rating"`
	Title              string             `bson:"title,omitempty" json:"title,omitempty"`
	Comment            string             `bson:"comment" json:"comment"`
	Images             []ProductImage     `bson:"images,omitempty" json:"images,omitempty"`
	IsVerifiedPurchase bool               `bson:"isVerifiedPurchase" json:"isVerifiedPurchase"`
	HelpfulVotes       int                `bson:"helpfulVotes" json:"helpfulVotes"`
	Status             ReviewStatus       `bson:"status" json:"status"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within the 1..5 star range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
