// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/medconnect-backend/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleState is returned by compare-and-set updates when the stored
	// row no longer holds the expected value.
	ErrStaleState = errors.New("stale state")
)

type Page struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type MedicineFilter struct {
	Search               string
	Category             string
	SellerID             *uuid.UUID
	VerificationStatus   *models.VerificationStatus
	Status               *models.ListingStatus
	PrescriptionRequired *bool
	MinPrice             *decimal.Decimal
	MaxPrice             *decimal.Decimal
	InStock              bool
}

// MedicinePatch is a seller edit of a listing. Nil fields are left as
// stored. Images are replaced when non-nil.
//
// Quantity and Hold are written in the same statement that recomputes
// status, so stock taken by a concurrent Reserve is never written back.
// When Composition, BatchNumber or PrescriptionRequired differ from the
// stored row, verification goes back to pending and the verifier is cleared.
type MedicinePatch struct {
	Name                 *string
	Manufacturer         *string
	Description          *string
	Category             *string
	Composition          *string
	DosageForm           *models.DosageForm
	Strength             *string
	PackageSize          *string
	BatchNumber          *string
	ExpiryDate           *time.Time
	ManufacturingDate    *time.Time
	OriginalPrice        *decimal.Decimal
	SellingPrice         *decimal.Decimal
	Quantity             *int
	Images               []string
	StorageConditions    *string
	PrescriptionRequired *bool
	// Hold is the seller's availability choice: available or reserved.
	Hold *models.ListingStatus
}

// NeedsReview reports whether applying p to m changes a field a pharmacist
// signed off on.
func (p MedicinePatch) NeedsReview(m *models.Medicine) bool {
	return (p.Composition != nil && *p.Composition != m.Composition) ||
		(p.BatchNumber != nil && *p.BatchNumber != m.BatchNumber) ||
		(p.PrescriptionRequired != nil && *p.PrescriptionRequired != m.PrescriptionRequired)
}

// Apply writes the patch onto m, including the derived status and the
// verification reset. Used by stores that hold the row under a lock.
func (p MedicinePatch) Apply(m *models.Medicine) {
	review := p.NeedsReview(m)

	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Manufacturer != nil {
		m.Manufacturer = *p.Manufacturer
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Composition != nil {
		m.Composition = *p.Composition
	}
	if p.DosageForm != nil {
		m.DosageForm = *p.DosageForm
	}
	if p.Strength != nil {
		m.Strength = *p.Strength
	}
	if p.PackageSize != nil {
		m.PackageSize = *p.PackageSize
	}
	if p.BatchNumber != nil {
		m.BatchNumber = *p.BatchNumber
	}
	if p.ExpiryDate != nil {
		m.ExpiryDate = *p.ExpiryDate
	}
	if p.ManufacturingDate != nil {
		m.ManufacturingDate = *p.ManufacturingDate
	}
	if p.OriginalPrice != nil {
		m.OriginalPrice = *p.OriginalPrice
	}
	if p.SellingPrice != nil {
		m.SellingPrice = *p.SellingPrice
	}
	if p.Images != nil {
		m.Images = append([]string(nil), p.Images...)
	}
	if p.StorageConditions != nil {
		m.StorageConditions = *p.StorageConditions
	}
	if p.PrescriptionRequired != nil {
		m.PrescriptionRequired = *p.PrescriptionRequired
	}
	if p.Quantity != nil {
		m.Quantity = *p.Quantity
	}
	if p.Hold != nil {
		m.Status = *p.Hold
	}
	m.RecomputeStatus()

	if review {
		m.VerificationStatus = models.VerificationStatusPending
		m.VerifiedBy = nil
		m.VerificationDate = nil
	}
}

type OrderFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *models.OrderStatus
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	ListByRole(ctx context.Context, role models.UserRole, verified *bool, page Page) ([]models.User, int64, error)
}

// MedicineRepository is the catalog store. Reserve and Release are atomic
// read-modify-write primitives on the stock counter.
type MedicineRepository interface {
	Create(ctx context.Context, m *models.Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
	// Update applies a seller edit atomically and returns the stored row.
	Update(ctx context.Context, id uuid.UUID, patch MedicinePatch) (*models.Medicine, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f MedicineFilter, page Page) ([]models.Medicine, int64, error)
	Reserve(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error)
	Release(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error)
	SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, notes string, verifierID uuid.UUID, at time.Time) (*models.Medicine, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f OrderFilter, page Page) ([]models.Order, int64, error)
	// Transition moves the order from one status to another, applying the
	// extra column changes. ErrStaleState when the order is not in from.
	Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changes OrderChanges) (*models.Order, error)
}

type OrderChanges struct {
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	IsPaid             bool
	PaidAt             *time.Time
}

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store groups the repositories of one backend.
type Store struct {
	Users     UserRepository
	Medicines MedicineRepository
	Orders    OrderRepository
	Tx        TxManager
}
