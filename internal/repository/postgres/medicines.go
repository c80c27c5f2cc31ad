// internal/repository/postgres/medicines.go
package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

var medicineSortFields = []string{"created_at", "selling_price", "name", "expiry_date", "quantity"}

type MedicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

func (r *MedicineRepository) Create(ctx context.Context, m *models.Medicine) error {
	m.RecomputeStatus()
	return translate(conn(ctx, r.db).Create(m).Error)
}

func (r *MedicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	var medicine models.Medicine
	err := conn(ctx, r.db).Preload("Seller").First(&medicine, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &medicine, nil
}

// Update writes only the patched columns. Status and the verification reset
// are computed from the row as it is at write time, never from a copy read
// earlier.
func (r *MedicineRepository) Update(ctx context.Context, id uuid.UUID, patch repository.MedicinePatch) (*models.Medicine, error) {
	updates := medicineUpdates(patch)
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}

	var medicine models.Medicine
	result := conn(ctx, r.db).Model(&medicine).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return &medicine, nil
}

func medicineUpdates(p repository.MedicinePatch) map[string]interface{} {
	updates := make(map[string]interface{})
	set := func(column string, value interface{}, ok bool) {
		if ok {
			updates[column] = value
		}
	}

	set("name", deref(p.Name), p.Name != nil)
	set("manufacturer", deref(p.Manufacturer), p.Manufacturer != nil)
	set("description", deref(p.Description), p.Description != nil)
	set("category", deref(p.Category), p.Category != nil)
	set("strength", deref(p.Strength), p.Strength != nil)
	set("package_size", deref(p.PackageSize), p.PackageSize != nil)
	set("storage_conditions", deref(p.StorageConditions), p.StorageConditions != nil)
	set("images", pq.StringArray(p.Images), p.Images != nil)
	if p.DosageForm != nil {
		updates["dosage_form"] = *p.DosageForm
	}
	if p.ExpiryDate != nil {
		updates["expiry_date"] = *p.ExpiryDate
	}
	if p.ManufacturingDate != nil {
		updates["manufacturing_date"] = *p.ManufacturingDate
	}
	if p.OriginalPrice != nil {
		updates["original_price"] = *p.OriginalPrice
	}
	if p.SellingPrice != nil {
		updates["selling_price"] = *p.SellingPrice
	}

	// Right-hand sides of an UPDATE see the old row, so the comparisons
	// below run against the stored values, not the new ones.
	var changed []string
	var changedArgs []interface{}
	if p.Composition != nil {
		updates["composition"] = *p.Composition
		changed = append(changed, "composition IS DISTINCT FROM ?")
		changedArgs = append(changedArgs, *p.Composition)
	}
	if p.BatchNumber != nil {
		updates["batch_number"] = *p.BatchNumber
		changed = append(changed, "batch_number IS DISTINCT FROM ?")
		changedArgs = append(changedArgs, *p.BatchNumber)
	}
	if p.PrescriptionRequired != nil {
		updates["prescription_required"] = *p.PrescriptionRequired
		changed = append(changed, "prescription_required IS DISTINCT FROM ?")
		changedArgs = append(changedArgs, *p.PrescriptionRequired)
	}
	if len(changed) > 0 {
		cond := strings.Join(changed, " OR ")
		updates["verification_status"] = gorm.Expr(
			"CASE WHEN "+cond+" THEN ? ELSE verification_status END",
			append(append([]interface{}{}, changedArgs...), models.VerificationStatusPending)...,
		)
		updates["verified_by"] = gorm.Expr("CASE WHEN "+cond+" THEN NULL ELSE verified_by END", changedArgs...)
		updates["verification_date"] = gorm.Expr("CASE WHEN "+cond+" THEN NULL ELSE verification_date END", changedArgs...)
	}

	if p.Quantity != nil || p.Hold != nil {
		qty, args := "quantity", []interface{}{}
		if p.Quantity != nil {
			updates["quantity"] = *p.Quantity
			qty, args = "?", []interface{}{*p.Quantity}
		}
		args = append(args, models.ListingStatusSold)

		held := "status = ?"
		if p.Hold != nil {
			held = "?"
			args = append(args, *p.Hold == models.ListingStatusReserved)
		} else {
			args = append(args, models.ListingStatusReserved)
		}
		args = append(args, models.ListingStatusReserved, models.ListingStatusAvailable)

		updates["status"] = gorm.Expr("CASE WHEN "+qty+" <= 0 THEN ? WHEN "+held+" THEN ? ELSE ? END", args...)
	}

	return updates
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *MedicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.Medicine{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MedicineRepository) Search(ctx context.Context, f repository.MedicineFilter, page repository.Page) ([]models.Medicine, int64, error) {
	query := conn(ctx, r.db).Model(&models.Medicine{})

	if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(manufacturer) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?",
			term, term, term, term,
		)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.SellerID != nil {
		query = query.Where("seller_id = ?", *f.SellerID)
	}
	if f.VerificationStatus != nil {
		query = query.Where("verification_status = ?", *f.VerificationStatus)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.PrescriptionRequired != nil {
		query = query.Where("prescription_required = ?", *f.PrescriptionRequired)
	}
	if f.MinPrice != nil {
		query = query.Where("selling_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("selling_price <= ?", *f.MaxPrice)
	}
	if f.InStock {
		query = query.Where("quantity > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var medicines []models.Medicine
	err := applyPage(query.Preload("Seller"), page, medicineSortFields).Find(&medicines).Error
	if err != nil {
		return nil, 0, err
	}
	return medicines, total, nil
}

// Reserve decrements stock with a single conditional UPDATE so that two
// buyers racing for the last unit cannot both succeed.
func (r *MedicineRepository) Reserve(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	var medicine models.Medicine
	result := conn(ctx, r.db).Model(&medicine).
		Clauses(clause.Returning{}).
		Where("id = ? AND quantity >= ?", id, quantity).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", quantity),
			"status": gorm.Expr(
				"CASE WHEN quantity - ? <= 0 THEN ? WHEN status = ? THEN ? ELSE ? END",
				quantity, models.ListingStatusSold,
				models.ListingStatusReserved, models.ListingStatusReserved,
				models.ListingStatusAvailable,
			),
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := conn(ctx, r.db).Model(&models.Medicine{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrInsufficientStock
	}
	return &medicine, nil
}

// Release restores stock, including on listings deleted after the order was
// placed.
func (r *MedicineRepository) Release(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	var medicine models.Medicine
	result := conn(ctx, r.db).Unscoped().Model(&medicine).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", quantity),
			"status": gorm.Expr(
				"CASE WHEN quantity + ? <= 0 THEN ? WHEN status = ? THEN ? ELSE ? END",
				quantity, models.ListingStatusSold,
				models.ListingStatusReserved, models.ListingStatusReserved,
				models.ListingStatusAvailable,
			),
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return &medicine, nil
}

func (r *MedicineRepository) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, notes string, verifierID uuid.UUID, at time.Time) (*models.Medicine, error) {
	var medicine models.Medicine
	result := conn(ctx, r.db).Model(&medicine).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_status": status,
			"verification_notes":  notes,
			"verified_by":         verifierID,
			"verification_date":   at,
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return &medicine, nil
}
