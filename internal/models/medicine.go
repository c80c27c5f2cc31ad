// internal/models/medicine.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Medicine struct {
	BaseModel
	SellerID             uuid.UUID          `json:"seller_id" gorm:"type:uuid;not null;index"`
	Name                 string             `json:"name" gorm:"size:200;not null"`
	Manufacturer         string             `json:"manufacturer" gorm:"size:200;not null"`
	Description          string             `json:"description" gorm:"type:text"`
	Category             string             `json:"category" gorm:"size:100;not null;index"`
	Composition          string             `json:"composition" gorm:"type:text"`
	DosageForm           DosageForm         `json:"dosage_form" gorm:"type:varchar(20);not null"`
	Strength             string             `json:"strength" gorm:"size:100"`
	PackageSize          string             `json:"package_size" gorm:"size:100"`
	BatchNumber          string             `json:"batch_number" gorm:"size:100;not null"`
	ExpiryDate           time.Time          `json:"expiry_date" gorm:"not null"`
	ManufacturingDate    time.Time          `json:"manufacturing_date" gorm:"not null"`
	OriginalPrice        decimal.Decimal    `json:"original_price" gorm:"type:decimal(12,2);not null"`
	SellingPrice         decimal.Decimal    `json:"selling_price" gorm:"type:decimal(12,2);not null"`
	Quantity             int                `json:"quantity" gorm:"not null;default:0;check:quantity >= 0"`
	Images               pq.StringArray     `json:"images" gorm:"type:text[]"`
	StorageConditions    string             `json:"storage_conditions" gorm:"type:text"`
	PrescriptionRequired bool               `json:"prescription_required" gorm:"default:false"`
	VerificationStatus   VerificationStatus `json:"verification_status" gorm:"type:varchar(20);default:'pending';index"`
	VerifiedBy           *uuid.UUID         `json:"verified_by" gorm:"type:uuid"`
	VerificationDate     *time.Time         `json:"verification_date"`
	VerificationNotes    string             `json:"verification_notes" gorm:"type:text"`
	Status               ListingStatus      `json:"status" gorm:"type:varchar(20);default:'available';index"`

	// Relationships
	Seller *User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// IsExpired reports whether the batch is past its expiry date at now.
func (m *Medicine) IsExpired(now time.Time) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(now)
}

// RecomputeStatus brings Status back in line with Quantity.
func (m *Medicine) RecomputeStatus() {
	m.Status = DeriveListingStatus(m.Status, m.Quantity)
}

// FirstImage is the image copied into order line items.
func (m *Medicine) FirstImage() string {
	if len(m.Images) == 0 {
		return ""
	}
	return m.Images[0]
}

func (m Medicine) MarshalJSON() ([]byte, error) {
	type medicine Medicine
	return json.Marshal(struct {
		medicine
		IsExpired bool `json:"is_expired"`
	}{
		medicine:  medicine(m),
		IsExpired: m.IsExpired(time.Now()),
	})
}
