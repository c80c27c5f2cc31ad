// internal/services/helpers_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/medconnect-backend/internal/config"
	"github.com/javajoker/medconnect-backend/internal/events"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

type testEnv struct {
	store     *repository.Store
	policy    *AccessPolicy
	catalog   *CatalogService
	orders    *OrderService
	admin     *AdminService
	publisher *recordingPublisher
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	policy := NewAccessPolicy()
	catalog := NewCatalogService(store, policy)
	publisher := &recordingPublisher{}
	return &testEnv{
		store:     store,
		policy:    policy,
		catalog:   catalog,
		orders:    NewOrderService(store, catalog, policy, publisher, false),
		admin:     NewAdminService(store, policy),
		publisher: publisher,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
	}
}

func (e *testEnv) user(t *testing.T, role models.UserRole, verified bool) models.Actor {
	t.Helper()
	u := &models.User{
		Name:       string(role) + " user",
		Email:      uuid.NewString() + "@example.com",
		Role:       role,
		IsVerified: verified,
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u.Actor()
}

func medicineRequest(quantity int, price int64, prescription bool) *CreateMedicineRequest {
	now := time.Now().UTC()
	return &CreateMedicineRequest{
		Name:                 "Paracetamol 500mg",
		Manufacturer:         "GSK",
		Description:          "Fever and pain relief",
		Category:             "Analgesics",
		Composition:          "Paracetamol IP 500mg",
		DosageForm:           models.DosageFormTablet,
		Strength:             "500mg",
		PackageSize:          "10 tablets",
		BatchNumber:          "PCM-" + uuid.NewString()[:6],
		ExpiryDate:           now.AddDate(1, 0, 0),
		ManufacturingDate:    now.AddDate(0, -2, 0),
		OriginalPrice:        decimal.NewFromInt(price + 10),
		SellingPrice:         decimal.NewFromInt(price),
		Quantity:             quantity,
		Images:               []string{"https://cdn.example.com/pcm.png"},
		PrescriptionRequired: prescription,
	}
}

func (e *testEnv) listing(t *testing.T, seller models.Actor, quantity int, price int64, prescription bool) *models.Medicine {
	t.Helper()
	m, err := e.catalog.CreateMedicine(context.Background(), seller, medicineRequest(quantity, price, prescription))
	require.NoError(t, err)
	return m
}

func (e *testEnv) stock(t *testing.T, id uuid.UUID) *models.Medicine {
	t.Helper()
	m, err := e.store.Medicines.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func shipping() ShippingInfo {
	return ShippingInfo{
		ShippingAddress: "12 MG Road",
		City:            "Pune",
		State:           "Maharashtra",
		ZipCode:         "411001",
		Phone:           "+919800000000",
	}
}

func orderFor(items ...OrderLineItem) *PlaceOrderRequest {
	return &PlaceOrderRequest{Items: items, ShippingInfo: shipping()}
}
