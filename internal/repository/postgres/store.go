// internal/repository/postgres/store.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/javajoker/medconnect-backend/internal/repository"
)

type txKey struct{}

// TxManager runs fn inside a gorm transaction carried by the context.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// NewStore wires every repository onto one connection pool.
func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Users:     NewUserRepository(db),
		Medicines: NewMedicineRepository(db),
		Orders:    NewOrderRepository(db),
		Tx:        NewTxManager(db),
	}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return repository.ErrConflict
	}
	return err
}

func applyPage(db *gorm.DB, page repository.Page, allowedSort []string) *gorm.DB {
	sort := "created_at"
	for _, field := range allowedSort {
		if field == page.Sort {
			sort = field
			break
		}
	}
	order := "desc"
	if page.Order == "asc" {
		order = "asc"
	}
	db = db.Order(sort + " " + order)
	if page.Limit > 0 {
		db = db.Offset(page.Offset()).Limit(page.Limit)
	}
	return db
}
