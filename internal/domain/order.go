package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is a product snapshot at purchase time.
type OrderItem struct {
	ProductID     primitive.ObjectID `bson:"product" json:"product"`
	Name          string             `bson:"name" json:"name"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	Price         float64            `bson:"price" json:"price"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	SelectedColor string             `bson:"selectedColor,omitempty" json:"selectedColor,omitempty"`
	SelectedSize  string             `bson:"selectedSize,omitempty" json:"selectedSize,omitempty"`
}

// Order records a purchase. Accounts that own at least one order are never
// hard-deleted, only deactivated.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	UserID          primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"orderItems" json:"orderItems"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  Address            `bson:"billingAddress" json:"billingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	ItemsPrice      float64            `bson:"itemsPrice" json:"itemsPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderStats is the per-user purchase aggregate shown on admin user detail.
type OrderStats struct {
	TotalOrders   int     `bson:"totalOrders" json:"totalOrders"`
	TotalSpent    float64 `bson:"totalSpent" json:"totalSpent"`
	AvgOrderValue float64 `bson:"avgOrderValue" json:"avgOrderValue"`
}

// NewOrderNumber generates a human-pasteable order reference, e.g.
// "ORD-9F86D081B2C4".
func NewOrderNumber() string {
	u := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(u.String(), "-", ""))
	return "ORD-" + hex[:12]
}
