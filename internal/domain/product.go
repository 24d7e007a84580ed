package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductImage is a stored image reference.
type ProductImage struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
	Alt      string `bson:"alt,omitempty" json:"alt,omitempty"`
}

// ColorOption is a per-color stock entry.
type ColorOption struct {
	Name    string `bson:"name" json:"name"`
	HexCode string `bson:"hexCode,omitempty" json:"hexCode,omitempty"`
	Stock   int    `bson:"stock" json:"stock"`
}

// SizeOption is a per-size stock entry.
type SizeOption struct {
	Name       string `bson:"name" json:"name"`
	Dimensions string `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Stock      int    `bson:"stock" json:"stock"`
}

// RatingSummary is the denormalized review statistic block written by the
// rating aggregator. Invariant: the distribution buckets sum to NumReviews.
type RatingSummary struct {
	NumReviews   int         `bson:"numReviews" json:"numReviews"`
	AvgRating    float64     `bson:"avgRating" json:"avgRating"`
	Distribution map[int]int `bson:"ratingDistribution" json:"ratingDistribution"`
}

// EmptyRatingSummary returns the zero summary with all five buckets present.
func EmptyRatingSummary() RatingSummary {
	return RatingSummary{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
}

// Product is the catalog document. The rating fields are recomputed in full
// from approved reviews on every review mutation; they are never adjusted
// incrementally.
type Product struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Description      string             `bson:"description" json:"description"`
	ShortDescription string             `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	Price            float64            `bson:"price" json:"price"`
	DiscountPrice    float64            `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	CategoryID       primitive.ObjectID `bson:"category,omitempty" json:"category,omitempty"`
	Subcategory      string             `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Images           []ProductImage     `bson:"images,omitempty" json:"images,omitempty"`
	Colors           []ColorOption      `bson:"colors,omitempty" json:"colors,omitempty"`
	Sizes            []SizeOption       `bson:"sizes,omitempty" json:"sizes,omitempty"`
	Materials        []string           `bson:"materials,omitempty" json:"materials,omitempty"`
	Tags             []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Featured         bool               `bson:"featured" json:"featured"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	Stock            int                `bson:"stock" json:"stock"`
	Sold             int                `bson:"sold" json:"sold"`
	NumReviews       int                `bson:"numReviews" json:"numReviews"`
	AvgRating        float64            `bson:"avgRating" json:"avgRating"`
	RatingDistribution map[int]int      `bson:"ratingDistribution,omitempty" json:"ratingDistribution,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DiscountPercentage is derived from price and discount price, rounded to
// the nearest whole percent. Zero when there is no effective discount.
func (p *Product) DiscountPercentage() int {
	if p.DiscountPrice > 0 && p.Price > p.DiscountPrice {
		return int(math.Round((p.Price - p.DiscountPrice) / p.Price * 100))
	}
	return 0
}

// EffectivePrice is the discount price when set, the regular price otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.Price
}
