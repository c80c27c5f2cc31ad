// internal/repository/memory/orders.go
package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type orderRepository struct {
	b *backend
}

func (r *orderRepository) Create(ctx context.Context, o *models.Order) error {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	stamp(&o.BaseModel)
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	r.b.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	o, ok := r.b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *orderRepository) List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	out := make([]models.Order, 0)
	for _, o := range r.b.orders {
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if f.SellerID != nil && o.SellerID != *f.SellerID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sortBy(out, page.Order != "asc", func(a, b models.Order) bool {
		switch page.Sort {
		case "total_amount":
			return a.TotalAmount.LessThan(b.TotalAmount)
		case "status":
			return a.Status < b.Status
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return paginate(out, page), int64(len(out)), nil
}

func (r *orderRepository) Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changes repository.OrderChanges) (*models.Order, error) {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	o, ok := r.b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != from {
		return nil, repository.ErrStaleState
	}

	o.Status = to
	if changes.DeliveredAt != nil {
		o.DeliveredAt = changes.DeliveredAt
	}
	if changes.CancelledAt != nil {
		o.CancelledAt = changes.CancelledAt
		o.CancellationReason = changes.CancellationReason
	}
	if changes.IsPaid {
		o.IsPaid = true
		o.PaidAt = changes.PaidAt
	}
	stamp(&o.BaseModel)
	r.b.orders[id] = o

	o = cloneOrder(o)
	return &o, nil
}
