// internal/repository/memory/store_test.go
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

func newListing(t *testing.T, store *repository.Store, quantity int) *models.Medicine {
	t.Helper()
	m := &models.Medicine{
		SellerID:     uuid.New(),
		Name:         "Amoxicillin 250mg",
		Manufacturer: "Cipla",
		Category:     "Antibiotics",
		DosageForm:   models.DosageFormCapsule,
		BatchNumber:  "AMX-01",
		ExpiryDate:   time.Now().AddDate(1, 0, 0),
		SellingPrice: decimal.NewFromInt(40),
		Quantity:     quantity,
		Status:       models.ListingStatusAvailable,
	}
	require.NoError(t, store.Medicines.Create(context.Background(), m))
	return m
}

func TestReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 20)

	reserved, err := store.Medicines.Reserve(ctx, m.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, reserved.Quantity)
	assert.Equal(t, models.ListingStatusAvailable, reserved.Status)

	reserved, err = store.Medicines.Reserve(ctx, m.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 0, reserved.Quantity)
	assert.Equal(t, models.ListingStatusSold, reserved.Status)

	released, err := store.Medicines.Release(ctx, m.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, released.Quantity)
	assert.Equal(t, models.ListingStatusAvailable, released.Status)
}

func TestReserveInsufficientStockLeavesListingUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 3)

	_, err := store.Medicines.Reserve(ctx, m.ID, 4)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	stored, err := store.Medicines.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity)
	assert.Equal(t, models.ListingStatusAvailable, stored.Status)
}

func TestReserveUnknownListing(t *testing.T) {
	_, err := NewStore().Medicines.Reserve(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentReserveOfLastUnit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 1)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Medicines.Reserve(ctx, m.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := store.Medicines.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, models.ListingStatusSold, stored.Status)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first := newListing(t, store, 10)
	second := newListing(t, store, 1)

	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Medicines.Reserve(ctx, first.ID, 4); err != nil {
			return err
		}
		_, err := store.Medicines.Reserve(ctx, second.ID, 2)
		return err
	})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	stored, err := store.Medicines.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 10)

	assert.Panics(t, func() {
		_ = store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.Medicines.Reserve(ctx, m.ID, 10); err != nil {
				return err
			}
			panic("boom")
		})
	})

	stored, err := store.Medicines.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 10)

	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		// Nested calls join the outer transaction.
		return store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := store.Medicines.Reserve(ctx, m.ID, 2)
			return err
		})
	})
	require.NoError(t, err)

	stored, err := store.Medicines.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Quantity)
}

func TestDeletedListingIsHiddenButReleasable(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 5)

	require.NoError(t, store.Medicines.Delete(ctx, m.ID))

	_, err := store.Medicines.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Medicines.Reserve(ctx, m.ID, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	released, err := store.Medicines.Release(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, released.Quantity)
}

func TestUpdateRecomputesStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 5)

	zero, three := 0, 3
	updated, err := store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, updated.Status)

	updated, err = store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{Quantity: &three})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusAvailable, updated.Status)

	hold := models.ListingStatusReserved
	updated, err = store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{Hold: &hold})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusReserved, updated.Status)
	assert.Equal(t, 3, updated.Quantity)

	_, err = store.Medicines.Update(ctx, uuid.New(), repository.MedicinePatch{Quantity: &three})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateKeepsStockTakenSinceRead(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 1)

	_, err := store.Medicines.Reserve(ctx, m.ID, 1)
	require.NoError(t, err)

	// m still carries the quantity read before the reservation.
	name := "Paracetamol 650mg"
	updated, err := store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, models.ListingStatusSold, updated.Status)
}

func TestUpdateVerificationReset(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := newListing(t, store, 5)
	verifier := uuid.New()

	_, err := store.Medicines.SetVerification(ctx, m.ID, models.VerificationStatusRejected, "wrong batch", verifier, time.Now().UTC())
	require.NoError(t, err)

	name := "Renamed"
	updated, err := store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, updated.VerificationStatus)
	require.NotNil(t, updated.VerifiedBy)
	assert.Equal(t, verifier, *updated.VerifiedBy)

	sameBatch := updated.BatchNumber
	updated, err = store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{BatchNumber: &sameBatch})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, updated.VerificationStatus)

	newBatch := "PCM-9999"
	updated, err = store.Medicines.Update(ctx, m.ID, repository.MedicinePatch{BatchNumber: &newBatch})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusPending, updated.VerificationStatus)
	assert.Nil(t, updated.VerifiedBy)
	assert.Nil(t, updated.VerificationDate)
	assert.Equal(t, "wrong batch", updated.VerificationNotes)
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	cheap := newListing(t, store, 5)
	pricey := newListing(t, store, 0)
	name, price, rx := "Insulin Glargine", decimal.NewFromInt(900), true
	_, err := store.Medicines.Update(ctx, pricey.ID, repository.MedicinePatch{
		Name:                 &name,
		SellingPrice:         &price,
		PrescriptionRequired: &rx,
	})
	require.NoError(t, err)

	page := repository.Page{Page: 1, Limit: 10}

	found, total, err := store.Medicines.Search(ctx, repository.MedicineFilter{Search: "insulin"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pricey.ID, found[0].ID)

	max := decimal.NewFromInt(100)
	found, _, err = store.Medicines.Search(ctx, repository.MedicineFilter{MaxPrice: &max}, page)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cheap.ID, found[0].ID)

	found, _, err = store.Medicines.Search(ctx, repository.MedicineFilter{InStock: true}, page)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cheap.ID, found[0].ID)

	sold := models.ListingStatusSold
	found, _, err = store.Medicines.Search(ctx, repository.MedicineFilter{Status: &sold}, page)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pricey.ID, found[0].ID)
}

func TestOrderTransitionIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	order := &models.Order{
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		Status:   models.OrderStatusPending,
		Items:    []models.OrderItem{{MedicineID: uuid.New(), Name: "ORS", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
	}
	require.NoError(t, store.Orders.Create(ctx, order))
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	now := time.Now().UTC()
	updated, err := store.Orders.Transition(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, repository.OrderChanges{
		CancelledAt:        &now,
		CancellationReason: "changed my mind",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, "changed my mind", updated.CancellationReason)
	assert.Len(t, updated.Items, 1)

	_, err = store.Orders.Transition(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, repository.OrderChanges{})
	assert.True(t, errors.Is(err, repository.ErrStaleState))

	_, err = store.Orders.Transition(ctx, uuid.New(), models.OrderStatusPending, models.OrderStatusProcessing, repository.OrderChanges{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserEmailIsUniqueAndCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Users.Create(ctx, &models.User{Name: "Asha", Email: "Asha@Example.com", Role: models.UserRoleBuyer}))
	err := store.Users.Create(ctx, &models.User{Name: "Asha 2", Email: "asha@example.com", Role: models.UserRoleBuyer})
	assert.ErrorIs(t, err, repository.ErrConflict)

	u, err := store.Users.GetByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
}

func TestListByRole(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for i, verified := range []bool{true, false, false} {
		require.NoError(t, store.Users.Create(ctx, &models.User{
			Name:       "Pharmacist",
			Email:      uuid.NewString() + "@example.com",
			Role:       models.UserRolePharmacist,
			IsVerified: verified,
		}), "user %d", i)
	}
	require.NoError(t, store.Users.Create(ctx, &models.User{Name: "Buyer", Email: "b@example.com", Role: models.UserRoleBuyer}))

	pending := false
	users, total, err := store.Users.ListByRole(ctx, models.UserRolePharmacist, &pending, repository.Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 1)
}
