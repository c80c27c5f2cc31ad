// internal/repository/memory/medicines.go
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type medicineRepository struct {
	b *backend
}

func (r *medicineRepository) withSeller(m models.Medicine) *models.Medicine {
	m = cloneMedicine(m)
	if seller, ok := r.b.users[m.SellerID]; ok {
		m.Seller = &seller
	}
	return &m
}

func (r *medicineRepository) live(id uuid.UUID) (models.Medicine, bool) {
	m, ok := r.b.medicines[id]
	if !ok || m.DeletedAt.Valid {
		return models.Medicine{}, false
	}
	return m, true
}

func (r *medicineRepository) Create(ctx context.Context, m *models.Medicine) error {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	stamp(&m.BaseModel)
	if m.VerificationStatus == "" {
		m.VerificationStatus = models.VerificationStatusPending
	}
	m.RecomputeStatus()
	r.b.medicines[m.ID] = cloneMedicine(*m)
	return nil
}

func (r *medicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	m, ok := r.live(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withSeller(m), nil
}

func (r *medicineRepository) Update(ctx context.Context, id uuid.UUID, patch repository.MedicinePatch) (*models.Medicine, error) {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	m, ok := r.live(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	patch.Apply(&m)
	m.UpdatedAt = time.Now().UTC()
	r.b.medicines[id] = m
	return r.withSeller(m), nil
}

func (r *medicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	m, ok := r.live(id)
	if !ok {
		return repository.ErrNotFound
	}
	m.DeletedAt.Time = time.Now().UTC()
	m.DeletedAt.Valid = true
	r.b.medicines[id] = m
	return nil
}

func (r *medicineRepository) Search(ctx context.Context, f repository.MedicineFilter, page repository.Page) ([]models.Medicine, int64, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	out := make([]models.Medicine, 0)
	for id := range r.b.medicines {
		m, ok := r.live(id)
		if !ok || !matches(m, f) {
			continue
		}
		out = append(out, *r.withSeller(m))
	}

	sortBy(out, page.Order != "asc", func(a, b models.Medicine) bool {
		switch page.Sort {
		case "selling_price":
			return a.SellingPrice.LessThan(b.SellingPrice)
		case "name":
			return a.Name < b.Name
		case "expiry_date":
			return a.ExpiryDate.Before(b.ExpiryDate)
		case "quantity":
			return a.Quantity < b.Quantity
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return paginate(out, page), int64(len(out)), nil
}

func matches(m models.Medicine, f repository.MedicineFilter) bool {
	if f.Search != "" && !contains(m.Name, f.Search) && !contains(m.Manufacturer, f.Search) &&
		!contains(m.Description, f.Search) && !contains(m.Category, f.Search) {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.SellerID != nil && m.SellerID != *f.SellerID {
		return false
	}
	if f.VerificationStatus != nil && m.VerificationStatus != *f.VerificationStatus {
		return false
	}
	if f.Status != nil && m.Status != *f.Status {
		return false
	}
	if f.PrescriptionRequired != nil && m.PrescriptionRequired != *f.PrescriptionRequired {
		return false
	}
	if f.MinPrice != nil && m.SellingPrice.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && m.SellingPrice.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && m.Quantity <= 0 {
		return false
	}
	return true
}

func (r *medicineRepository) Reserve(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	m, ok := r.live(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.Quantity < quantity {
		return nil, repository.ErrInsufficientStock
	}
	m.Quantity -= quantity
	m.RecomputeStatus()
	m.UpdatedAt = time.Now().UTC()
	r.b.medicines[id] = m
	return r.withSeller(m), nil
}

func (r *medicineRepository) Release(ctx context.Context, id uuid.UUID, quantity int) (*models.Medicine, error) {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	m, ok := r.b.medicines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.Quantity += quantity
	m.RecomputeStatus()
	m.UpdatedAt = time.Now().UTC()
	r.b.medicines[id] = m
	return r.withSeller(m), nil
}

func (r *medicineRepository) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, notes string, verifierID uuid.UUID, at time.Time) (*models.Medicine, error) {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	m, ok := r.live(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.VerificationStatus = status
	m.VerificationNotes = notes
	m.VerifiedBy = &verifierID
	m.VerificationDate = &at
	m.UpdatedAt = time.Now().UTC()
	r.b.medicines[id] = m
	return r.withSeller(m), nil
}
