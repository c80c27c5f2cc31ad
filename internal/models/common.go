// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Enums
type UserRole string

const (
	UserRoleBuyer      UserRole = "buyer"
	UserRoleSeller     UserRole = "seller"
	UserRolePharmacist UserRole = "pharmacist"
	UserRoleNGO        UserRole = "ngo"
	UserRoleAdmin      UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleBuyer, UserRoleSeller, UserRolePharmacist, UserRoleNGO, UserRoleAdmin:
		return true
	}
	return false
}

// CanSell reports whether the role may own medicine listings.
func (r UserRole) CanSell() bool {
	return r == UserRoleSeller || r == UserRoleNGO
}

// CanBuy reports whether the role may place orders.
func (r UserRole) CanBuy() bool {
	return r == UserRoleBuyer || r == UserRoleNGO
}

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusPending, VerificationStatusVerified, VerificationStatusRejected:
		return true
	}
	return false
}

type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusReserved  ListingStatus = "reserved"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusAvailable, ListingStatusSold, ListingStatusReserved:
		return true
	}
	return false
}

// DeriveListingStatus returns the status a listing must carry for the given
// stock level. Empty stock is always sold; a seller hold survives restocking.
func DeriveListingStatus(current ListingStatus, quantity int) ListingStatus {
	if quantity <= 0 {
		return ListingStatusSold
	}
	if current == ListingStatusReserved {
		return ListingStatusReserved
	}
	return ListingStatusAvailable
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type DosageForm string

const (
	DosageFormTablet    DosageForm = "tablet"
	DosageFormCapsule   DosageForm = "capsule"
	DosageFormSyrup     DosageForm = "syrup"
	DosageFormInjection DosageForm = "injection"
	DosageFormCream     DosageForm = "cream"
	DosageFormOintment  DosageForm = "ointment"
	DosageFormOther     DosageForm = "other"
)

func (d DosageForm) IsValid() bool {
	switch d {
	case DosageFormTablet, DosageFormCapsule, DosageFormSyrup, DosageFormInjection,
		DosageFormCream, DosageFormOintment, DosageFormOther:
		return true
	}
	return false
}
