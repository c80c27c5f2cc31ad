// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "Cash on Delivery"

type Order struct {
	BaseModel
	BuyerID            uuid.UUID       `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID           uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index"`
	Items              []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress    string          `json:"shipping_address" gorm:"type:text;not null"`
	City               string          `json:"city" gorm:"size:100;not null"`
	State              string          `json:"state" gorm:"size:100;not null"`
	ZipCode            string          `json:"zip_code" gorm:"size:20;not null"`
	Phone              string          `json:"phone" gorm:"size:20;not null"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Status             OrderStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentMethod      string          `json:"payment_method" gorm:"size:50"`
	IsPaid             bool            `json:"is_paid" gorm:"default:false"`
	PaidAt             *time.Time      `json:"paid_at"`
	DeliveredAt        *time.Time      `json:"delivered_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CancellationReason string          `json:"cancellation_reason,omitempty" gorm:"type:text"`
	PrescriptionImage  string          `json:"prescription_image,omitempty" gorm:"size:500"`

	// Relationships
	Buyer  *User `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller *User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// OrderItem is a snapshot of a listing taken when the order was placed.
type OrderItem struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID    uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	MedicineID uuid.UUID       `json:"medicine_id" gorm:"type:uuid;not null;index"`
	Name       string          `json:"name" gorm:"size:200;not null"`
	Quantity   int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Image      string          `json:"image" gorm:"size:500"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal sums the line items. Called once, at placement.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// IsParty reports whether the user is the buyer or the seller of the order.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}
