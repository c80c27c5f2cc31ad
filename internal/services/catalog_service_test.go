// internal/services/catalog_service_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

func TestCreateMedicine(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	buyer := env.user(t, models.UserRoleBuyer, true)

	_, err := env.catalog.CreateMedicine(ctx, buyer, medicineRequest(5, 10, false))
	assert.ErrorIs(t, err, ErrForbidden)

	bad := medicineRequest(5, 10, false)
	bad.DosageForm = "powder"
	_, err = env.catalog.CreateMedicine(ctx, seller, bad)
	assert.ErrorIs(t, err, ErrValidation)

	negative := medicineRequest(5, 10, false)
	negative.SellingPrice = decimal.NewFromInt(-1)
	_, err = env.catalog.CreateMedicine(ctx, seller, negative)
	assert.ErrorIs(t, err, ErrValidation)

	backwards := medicineRequest(5, 10, false)
	backwards.ExpiryDate = backwards.ManufacturingDate.AddDate(0, 0, -1)
	_, err = env.catalog.CreateMedicine(ctx, seller, backwards)
	assert.ErrorIs(t, err, ErrValidation)

	empty, err := env.catalog.CreateMedicine(ctx, seller, medicineRequest(0, 10, false))
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, empty.Status)
	assert.Equal(t, models.VerificationStatusPending, empty.VerificationStatus)
	assert.Equal(t, seller.ID, empty.SellerID)
}

func TestOwnershipOnUpdateAndDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	sellerA := env.user(t, models.UserRoleSeller, true)
	sellerB := env.user(t, models.UserRoleSeller, true)
	m := env.listing(t, sellerB, 5, 10, false)

	name := "Hijacked"
	_, err := env.catalog.UpdateMedicine(ctx, sellerA, m.ID, &UpdateMedicineRequest{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.catalog.DeleteMedicine(ctx, sellerA, m.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, "Paracetamol 500mg", env.stock(t, m.ID).Name)

	require.NoError(t, env.catalog.DeleteMedicine(ctx, sellerB, m.ID))
	_, err = env.catalog.GetMedicine(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMedicineRecomputesStatusAndReview(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	pharmacist := env.user(t, models.UserRolePharmacist, true)
	m := env.listing(t, seller, 5, 10, false)

	_, err := env.catalog.VerifyMedicine(ctx, pharmacist, m.ID, &VerifyMedicineRequest{Status: models.VerificationStatusVerified})
	require.NoError(t, err)

	zero := 0
	updated, err := env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, updated.Status)
	assert.Equal(t, models.VerificationStatusVerified, updated.VerificationStatus)

	restock := 8
	batch := "PCM-NEW"
	updated, err = env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Quantity: &restock, BatchNumber: &batch})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusAvailable, updated.Status)
	assert.Equal(t, models.VerificationStatusPending, updated.VerificationStatus)

	hold := models.ListingStatusReserved
	updated, err = env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Status: &hold})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusReserved, updated.Status)

	sold := models.ListingStatusSold
	_, err = env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Status: &sold})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReservedListingCannotBeOrdered(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	buyer := env.user(t, models.UserRoleBuyer, true)
	m := env.listing(t, seller, 5, 10, false)

	hold := models.ListingStatusReserved
	_, err := env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Status: &hold})
	require.NoError(t, err)

	_, err = env.orders.PlaceOrder(ctx, buyer, orderFor(OrderLineItem{MedicineID: m.ID, Quantity: 1}))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, env.stock(t, m.ID).Quantity)
}

func TestVerifyMedicineRequiresVerifiedPharmacist(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	m := env.listing(t, seller, 5, 10, false)
	req := &VerifyMedicineRequest{Status: models.VerificationStatusRejected, Notes: "Batch recalled"}

	unverified := env.user(t, models.UserRolePharmacist, false)
	_, err := env.catalog.VerifyMedicine(ctx, unverified, m.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.catalog.VerifyMedicine(ctx, seller, m.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	// A stale token claiming verification does not help.
	stale := unverified
	stale.IsVerified = true
	_, err = env.catalog.VerifyMedicine(ctx, stale, m.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	pharmacist := env.user(t, models.UserRolePharmacist, true)
	verified, err := env.catalog.VerifyMedicine(ctx, pharmacist, m.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, verified.VerificationStatus)
	assert.Equal(t, "Batch recalled", verified.VerificationNotes)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, pharmacist.ID, *verified.VerifiedBy)
	assert.NotNil(t, verified.VerificationDate)

	_, err = env.catalog.VerifyMedicine(ctx, pharmacist, m.ID, &VerifyMedicineRequest{Status: models.VerificationStatusPending})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.catalog.VerifyMedicine(ctx, pharmacist, uuid.New(), req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingVerification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	pharmacist := env.user(t, models.UserRolePharmacist, true)
	admin := env.user(t, models.UserRoleAdmin, true)
	first := env.listing(t, seller, 5, 10, false)
	env.listing(t, seller, 5, 10, false)

	_, err := env.catalog.VerifyMedicine(ctx, pharmacist, first.ID, &VerifyMedicineRequest{Status: models.VerificationStatusVerified})
	require.NoError(t, err)

	params := utils.PaginationParams{Page: 1, Limit: 20}
	for _, actor := range []models.Actor{pharmacist, admin} {
		pending, total, err := env.catalog.ListPendingVerification(ctx, actor, params)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.NotEqual(t, first.ID, pending[0].ID)
	}

	_, _, err = env.catalog.ListPendingVerification(ctx, seller, params)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSearchAndSellerListings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	sellerA := env.user(t, models.UserRoleSeller, true)
	sellerB := env.user(t, models.UserRoleNGO, true)
	env.listing(t, sellerA, 5, 10, false)
	env.listing(t, sellerA, 5, 500, true)
	env.listing(t, sellerB, 0, 10, false)

	params := utils.PaginationParams{Page: 1, Limit: 20}

	all, total, err := env.catalog.SearchMedicines(ctx, &MedicineSearchParams{PaginationParams: params})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
	assert.NotNil(t, all[0].Seller)

	rx := true
	found, _, err := env.catalog.SearchMedicines(ctx, &MedicineSearchParams{PaginationParams: params, PrescriptionRequired: &rx})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, _, err = env.catalog.SearchMedicines(ctx, &MedicineSearchParams{PaginationParams: params, InStock: true})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, _, err = env.catalog.SearchMedicines(ctx, &MedicineSearchParams{PaginationParams: params, SellerID: &sellerB.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	mine, total, err := env.catalog.ListSellerMedicines(ctx, sellerA, params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, m := range mine {
		assert.Equal(t, sellerA.ID, m.SellerID)
	}
}

func TestReserveAndReleaseStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	m := env.listing(t, seller, 3, 10, false)

	_, err := env.catalog.ReserveStock(ctx, m.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.catalog.ReserveStock(ctx, m.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, env.stock(t, m.ID).Quantity)

	reserved, err := env.catalog.ReserveStock(ctx, m.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, reserved.Status)

	released, err := env.catalog.ReleaseStock(ctx, m.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, released.Quantity)
	assert.Equal(t, models.ListingStatusAvailable, released.Status)

	_, err = env.catalog.ReleaseStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// interleavedMedicines runs between once the first GetByID of a listing
// has returned, standing in for a request that commits in that window.
type interleavedMedicines struct {
	repository.MedicineRepository
	once    sync.Once
	between func(ctx context.Context, id uuid.UUID)
}

func (r *interleavedMedicines) GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	m, err := r.MedicineRepository.GetByID(ctx, id)
	if err == nil {
		r.once.Do(func() { r.between(ctx, id) })
	}
	return m, err
}

func interleave(env *testEnv, between func(ctx context.Context, id uuid.UUID)) {
	env.store.Medicines = &interleavedMedicines{MedicineRepository: env.store.Medicines, between: between}
}

func TestUpdateMedicineKeepsConcurrentReservation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	m := env.listing(t, seller, 1, 10, false)

	interleave(env, func(ctx context.Context, id uuid.UUID) {
		_, err := env.store.Medicines.Reserve(ctx, id, 1)
		require.NoError(t, err)
	})

	name := "Paracetamol 650mg"
	updated, err := env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, models.ListingStatusSold, updated.Status)

	stored := env.stock(t, m.ID)
	assert.Equal(t, name, stored.Name)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, models.ListingStatusSold, stored.Status)
}

func TestUpdateMedicineKeepsConcurrentVerification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	pharmacist := env.user(t, models.UserRolePharmacist, true)
	m := env.listing(t, seller, 5, 10, false)

	interleave(env, func(ctx context.Context, id uuid.UUID) {
		_, err := env.store.Medicines.SetVerification(ctx, id, models.VerificationStatusVerified, "ok", pharmacist.ID, time.Now().UTC())
		require.NoError(t, err)
	})

	price := decimal.NewFromInt(8)
	updated, err := env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{SellingPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusVerified, updated.VerificationStatus)
	require.NotNil(t, updated.VerifiedBy)
	assert.Equal(t, pharmacist.ID, *updated.VerifiedBy)
	assert.True(t, price.Equal(updated.SellingPrice))
}

func TestUpdateMedicineReviewResetClearsVerifier(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seller := env.user(t, models.UserRoleSeller, true)
	pharmacist := env.user(t, models.UserRolePharmacist, true)
	m := env.listing(t, seller, 5, 10, false)

	interleave(env, func(ctx context.Context, id uuid.UUID) {
		_, err := env.store.Medicines.SetVerification(ctx, id, models.VerificationStatusRejected, "label mismatch", pharmacist.ID, time.Now().UTC())
		require.NoError(t, err)
	})

	rx := true
	updated, err := env.catalog.UpdateMedicine(ctx, seller, m.ID, &UpdateMedicineRequest{PrescriptionRequired: &rx})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusPending, updated.VerificationStatus)
	assert.Nil(t, updated.VerifiedBy)
	assert.Nil(t, updated.VerificationDate)
	assert.True(t, updated.PrescriptionRequired)
}
