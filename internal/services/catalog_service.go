// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

type CatalogService struct {
	store  *repository.Store
	policy *AccessPolicy
}

type CreateMedicineRequest struct {
	Name                 string            `json:"name" validate:"required,min=2,max=200"`
	Manufacturer         string            `json:"manufacturer" validate:"required,max=200"`
	Description          string            `json:"description" validate:"required"`
	Category             string            `json:"category" validate:"required,max=100"`
	Composition          string            `json:"composition" validate:"required"`
	DosageForm           models.DosageForm `json:"dosage_form" validate:"required,dosage_form"`
	Strength             string            `json:"strength" validate:"required,max=100"`
	PackageSize          string            `json:"package_size" validate:"required,max=100"`
	BatchNumber          string            `json:"batch_number" validate:"required,max=100"`
	ExpiryDate           time.Time         `json:"expiry_date" validate:"required"`
	ManufacturingDate    time.Time         `json:"manufacturing_date" validate:"required"`
	OriginalPrice        decimal.Decimal   `json:"original_price" validate:"gte=0"`
	SellingPrice         decimal.Decimal   `json:"selling_price" validate:"gte=0"`
	Quantity             int               `json:"quantity" validate:"gte=0"`
	Images               []string          `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	StorageConditions    string            `json:"storage_conditions,omitempty"`
	PrescriptionRequired bool              `json:"prescription_required"`
}

type UpdateMedicineRequest struct {
	Name                 *string               `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Manufacturer         *string               `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	Description          *string               `json:"description,omitempty"`
	Category             *string               `json:"category,omitempty" validate:"omitempty,max=100"`
	Composition          *string               `json:"composition,omitempty"`
	DosageForm           *models.DosageForm    `json:"dosage_form,omitempty" validate:"omitempty,dosage_form"`
	Strength             *string               `json:"strength,omitempty" validate:"omitempty,max=100"`
	PackageSize          *string               `json:"package_size,omitempty" validate:"omitempty,max=100"`
	BatchNumber          *string               `json:"batch_number,omitempty" validate:"omitempty,max=100"`
	ExpiryDate           *time.Time            `json:"expiry_date,omitempty"`
	ManufacturingDate    *time.Time            `json:"manufacturing_date,omitempty"`
	OriginalPrice        *decimal.Decimal      `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	SellingPrice         *decimal.Decimal      `json:"selling_price,omitempty" validate:"omitempty,gte=0"`
	Quantity             *int                  `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Images               []string              `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	StorageConditions    *string               `json:"storage_conditions,omitempty"`
	PrescriptionRequired *bool                 `json:"prescription_required,omitempty"`
	Status               *models.ListingStatus `json:"status,omitempty" validate:"omitempty,oneof=available reserved"`
}

type VerifyMedicineRequest struct {
	Status models.VerificationStatus `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string                    `json:"notes,omitempty" validate:"max=1000"`
}

type MedicineSearchParams struct {
	utils.PaginationParams
	SellerID             *uuid.UUID
	VerificationStatus   *models.VerificationStatus
	Status               *models.ListingStatus
	PrescriptionRequired *bool
	PriceMin             *decimal.Decimal
	PriceMax             *decimal.Decimal
	InStock              bool
}

func NewCatalogService(store *repository.Store, policy *AccessPolicy) *CatalogService {
	return &CatalogService{
		store:  store,
		policy: policy,
	}
}

func (s *CatalogService) CreateMedicine(ctx context.Context, actor models.Actor, req *CreateMedicineRequest) (*models.Medicine, error) {
	if err := s.policy.Authorize(actor, nil, OpCreateListing); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if !req.ExpiryDate.After(req.ManufacturingDate) {
		return nil, validationError("expiry date must be after manufacturing date")
	}

	medicine := &models.Medicine{
		SellerID:             actor.ID,
		Name:                 req.Name,
		Manufacturer:         req.Manufacturer,
		Description:          req.Description,
		Category:             req.Category,
		Composition:          req.Composition,
		DosageForm:           req.DosageForm,
		Strength:             req.Strength,
		PackageSize:          req.PackageSize,
		BatchNumber:          req.BatchNumber,
		ExpiryDate:           req.ExpiryDate,
		ManufacturingDate:    req.ManufacturingDate,
		OriginalPrice:        req.OriginalPrice,
		SellingPrice:         req.SellingPrice,
		Quantity:             req.Quantity,
		Images:               req.Images,
		StorageConditions:    req.StorageConditions,
		PrescriptionRequired: req.PrescriptionRequired,
		VerificationStatus:   models.VerificationStatusPending,
		Status:               models.ListingStatusAvailable,
	}

	if err := s.store.Medicines.Create(ctx, medicine); err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"medicine_id": medicine.ID,
		"seller_id":   actor.ID,
		"quantity":    medicine.Quantity,
	}).Info("Medicine listed")

	return medicine, nil
}

func (s *CatalogService) GetMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	medicine, err := s.store.Medicines.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, err)
	}
	return medicine, nil
}

func (s *CatalogService) SearchMedicines(ctx context.Context, params *MedicineSearchParams) ([]models.Medicine, int64, error) {
	filter := repository.MedicineFilter{
		Search:               params.Search,
		Category:             params.Category,
		SellerID:             params.SellerID,
		VerificationStatus:   params.VerificationStatus,
		Status:               params.Status,
		PrescriptionRequired: params.PrescriptionRequired,
		MinPrice:             params.PriceMin,
		MaxPrice:             params.PriceMax,
		InStock:              params.InStock,
	}
	return s.store.Medicines.Search(ctx, filter, pageOf(params.PaginationParams))
}

func (s *CatalogService) ListSellerMedicines(ctx context.Context, actor models.Actor, params utils.PaginationParams) ([]models.Medicine, int64, error) {
	if err := s.policy.Authorize(actor, nil, OpCreateListing); err != nil {
		return nil, 0, err
	}
	filter := repository.MedicineFilter{
		SellerID: &actor.ID,
		Search:   params.Search,
		Category: params.Category,
	}
	return s.store.Medicines.Search(ctx, filter, pageOf(params))
}

func (s *CatalogService) ListPendingVerification(ctx context.Context, actor models.Actor, params utils.PaginationParams) ([]models.Medicine, int64, error) {
	actor, err := s.currentActor(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	if err := s.policy.Authorize(actor, nil, OpReviewListings); err != nil {
		return nil, 0, err
	}
	pending := models.VerificationStatusPending
	filter := repository.MedicineFilter{
		VerificationStatus: &pending,
		Search:             params.Search,
		Category:           params.Category,
	}
	return s.store.Medicines.Search(ctx, filter, pageOf(params))
}

func (s *CatalogService) UpdateMedicine(ctx context.Context, actor models.Actor, id uuid.UUID, req *UpdateMedicineRequest) (*models.Medicine, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	medicine, err := s.store.Medicines.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, err)
	}
	if err := s.policy.Authorize(actor, ListingResource(medicine), OpUpdateListing); err != nil {
		return nil, err
	}

	expiry, manufactured := medicine.ExpiryDate, medicine.ManufacturingDate
	if req.ExpiryDate != nil {
		expiry = *req.ExpiryDate
	}
	if req.ManufacturingDate != nil {
		manufactured = *req.ManufacturingDate
	}
	if !expiry.After(manufactured) {
		return nil, validationError("expiry date must be after manufacturing date")
	}

	updated, err := s.store.Medicines.Update(ctx, id, req.patch())
	if err != nil {
		return nil, fmt.Errorf("failed to update medicine: %w", err)
	}
	if updated.Seller == nil {
		updated.Seller = medicine.Seller
	}
	if medicine.VerificationStatus != models.VerificationStatusPending &&
		updated.VerificationStatus == models.VerificationStatusPending {
		logrus.WithField("medicine_id", id).Info("Medicine returned to verification queue")
	}
	return updated, nil
}

func (r *UpdateMedicineRequest) patch() repository.MedicinePatch {
	return repository.MedicinePatch{
		Name:                 r.Name,
		Manufacturer:         r.Manufacturer,
		Description:          r.Description,
		Category:             r.Category,
		Composition:          r.Composition,
		DosageForm:           r.DosageForm,
		Strength:             r.Strength,
		PackageSize:          r.PackageSize,
		BatchNumber:          r.BatchNumber,
		ExpiryDate:           r.ExpiryDate,
		ManufacturingDate:    r.ManufacturingDate,
		OriginalPrice:        r.OriginalPrice,
		SellingPrice:         r.SellingPrice,
		Quantity:             r.Quantity,
		Images:               r.Images,
		StorageConditions:    r.StorageConditions,
		PrescriptionRequired: r.PrescriptionRequired,
		Hold:                 r.Status,
	}
}

func (s *CatalogService) DeleteMedicine(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	medicine, err := s.store.Medicines.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("medicine %s: %w", id, err)
	}
	if err := s.policy.Authorize(actor, ListingResource(medicine), OpDeleteListing); err != nil {
		return err
	}
	if err := s.store.Medicines.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	return nil
}

func (s *CatalogService) VerifyMedicine(ctx context.Context, actor models.Actor, id uuid.UUID, req *VerifyMedicineRequest) (*models.Medicine, error) {
	actor, err := s.currentActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, nil, OpVerifyListing); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	return s.SetVerification(ctx, id, req.Status, req.Notes, actor.ID)
}

// currentActor reloads the actor so a pharmacist verification granted or
// revoked after the token was issued applies at once.
func (s *CatalogService) currentActor(ctx context.Context, actor models.Actor) (models.Actor, error) {
	user, err := s.store.Users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Actor{}, fmt.Errorf("%w: unknown user", ErrForbidden)
		}
		return models.Actor{}, err
	}
	return user.Actor(), nil
}

// SetVerification writes the verification fields without any eligibility
// check. Callers go through VerifyMedicine.
func (s *CatalogService) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, notes string, verifierID uuid.UUID) (*models.Medicine, error) {
	medicine, err := s.store.Medicines.SetVerification(ctx, id, status, notes, verifierID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{
		"medicine_id": id,
		"verifier_id": verifierID,
		"status":      status,
	}).Info("Medicine verification recorded")

	return medicine, nil
}

// ReserveStock takes quantity units out of stock in one atomic step.
func (s *CatalogService) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}
	medicine, err := s.store.Medicines.Reserve(ctx, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, err)
	}
	return medicine, nil
}

// ReleaseStock puts quantity units back. It is not idempotent.
func (s *CatalogService) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}
	medicine, err := s.store.Medicines.Release(ctx, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, err)
	}
	return medicine, nil
}

func validate(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func pageOf(p utils.PaginationParams) repository.Page {
	return repository.Page{Page: p.Page, Limit: p.Limit, Sort: p.Sort, Order: p.Order}
}
