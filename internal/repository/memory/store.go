// internal/repository/memory/store.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

// backend keeps every table behind one lock. A transaction holds the write
// lock for its whole duration and restores a snapshot when fn fails.
type backend struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]models.User
	medicines map[uuid.UUID]models.Medicine
	orders    map[uuid.UUID]models.Order
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (b *backend) rlock(ctx context.Context) {
	if !inTx(ctx) {
		b.mu.RLock()
	}
}

func (b *backend) runlock(ctx context.Context) {
	if !inTx(ctx) {
		b.mu.RUnlock()
	}
}

func (b *backend) wlock(ctx context.Context) {
	if !inTx(ctx) {
		b.mu.Lock()
	}
}

func (b *backend) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		b.mu.Unlock()
	}
}

// NewStore returns an in-process store, used for local runs and tests.
func NewStore() *repository.Store {
	b := &backend{
		users:     make(map[uuid.UUID]models.User),
		medicines: make(map[uuid.UUID]models.Medicine),
		orders:    make(map[uuid.UUID]models.Order),
	}
	return &repository.Store{
		Users:     &userRepository{b: b},
		Medicines: &medicineRepository{b: b},
		Orders:    &orderRepository{b: b},
		Tx:        &txManager{b: b},
	}
}

type txManager struct {
	b *backend
}

func (m *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	users := make(map[uuid.UUID]models.User, len(m.b.users))
	for k, v := range m.b.users {
		users[k] = v
	}
	medicines := make(map[uuid.UUID]models.Medicine, len(m.b.medicines))
	for k, v := range m.b.medicines {
		medicines[k] = cloneMedicine(v)
	}
	orders := make(map[uuid.UUID]models.Order, len(m.b.orders))
	for k, v := range m.b.orders {
		orders[k] = cloneOrder(v)
	}

	defer func() {
		if r := recover(); r != nil {
			m.b.users, m.b.medicines, m.b.orders = users, medicines, orders
			panic(r)
		}
		if err != nil {
			m.b.users, m.b.medicines, m.b.orders = users, medicines, orders
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func stamp(base *models.BaseModel) {
	now := time.Now().UTC()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func cloneMedicine(m models.Medicine) models.Medicine {
	if m.Images != nil {
		m.Images = append(m.Images[:0:0], m.Images...)
	}
	if m.Seller != nil {
		seller := *m.Seller
		m.Seller = &seller
	}
	return m
}

func cloneOrder(o models.Order) models.Order {
	if o.Items != nil {
		o.Items = append(o.Items[:0:0], o.Items...)
	}
	return o
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortBy[T any](items []T, desc bool, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
