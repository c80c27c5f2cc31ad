// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/events"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

const publishTimeout = 2 * time.Second

type OrderService struct {
	store           *repository.Store
	catalog         *CatalogService
	policy          *AccessPolicy
	publisher       events.Publisher
	requireVerified bool
}

type OrderLineItem struct {
	MedicineID uuid.UUID `json:"medicine_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1,max=1000"`
	// Price is what the client displayed. It is compared with the catalog
	// price and never used for the order.
	Price *decimal.Decimal `json:"price,omitempty"`
}

type ShippingInfo struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	City            string `json:"city" validate:"required,max=100"`
	State           string `json:"state" validate:"required,max=100"`
	ZipCode         string `json:"zip_code" validate:"required,max=20"`
	Phone           string `json:"phone" validate:"required,min=7,max=20"`
}

type PlaceOrderRequest struct {
	// MedicineID and Quantity are the single-medicine form. They are folded
	// into Items before validation.
	MedicineID *uuid.UUID `json:"medicine_id,omitempty"`
	Quantity   int        `json:"quantity,omitempty"`

	Items []OrderLineItem `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingInfo
	PrescriptionImage string `json:"prescription_image,omitempty" validate:"omitempty,url"`
	PaymentMethod     string `json:"payment_method,omitempty" validate:"omitempty,max=50"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=processing shipped delivered cancelled"`
	// Reason is recorded when Status is cancelled.
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type OrderListParams struct {
	utils.PaginationParams
	Status *models.OrderStatus
}

func NewOrderService(store *repository.Store, catalog *CatalogService, policy *AccessPolicy, publisher events.Publisher, requireVerified bool) *OrderService {
	return &OrderService{
		store:           store,
		catalog:         catalog,
		policy:          policy,
		publisher:       publisher,
		requireVerified: requireVerified,
	}
}

func (r *PlaceOrderRequest) normalize() {
	if r.MedicineID != nil {
		r.Items = append([]OrderLineItem{{MedicineID: *r.MedicineID, Quantity: r.Quantity}}, r.Items...)
		r.MedicineID = nil
		r.Quantity = 0
	}
	r.PrescriptionImage = strings.TrimSpace(r.PrescriptionImage)
}

// mergeLineItems folds repeated medicines into one line, keeping the order
// of first appearance.
func mergeLineItems(items []OrderLineItem) []OrderLineItem {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]OrderLineItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.MedicineID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.MedicineID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// PlaceOrder reserves stock for every line item and records the order in one
// transaction. Any failing item aborts the whole order and no reservation
// survives.
func (s *OrderService) PlaceOrder(ctx context.Context, actor models.Actor, req *PlaceOrderRequest) (*models.Order, error) {
	if err := s.policy.Authorize(actor, nil, OpPlaceOrder); err != nil {
		return nil, err
	}
	req.normalize()
	if err := validate(req); err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}

	order := &models.Order{
		BuyerID:           actor.ID,
		ShippingAddress:   req.ShippingAddress,
		City:              req.City,
		State:             req.State,
		ZipCode:           req.ZipCode,
		Phone:             req.Phone,
		Status:            models.OrderStatusPending,
		PaymentMethod:     paymentMethod,
		PrescriptionImage: req.PrescriptionImage,
	}

	items := mergeLineItems(req.Items)
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		order.Items = make([]models.OrderItem, 0, len(items))
		for i, item := range items {
			snapshot, err := s.reserveLineItem(ctx, actor, order, item, req.PrescriptionImage != "")
			if err != nil {
				return &LineItemError{Index: i, MedicineID: item.MedicineID, Err: err}
			}
			order.Items = append(order.Items, *snapshot)
		}

		order.TotalAmount = order.ComputeTotal()
		if err := s.store.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"buyer_id":  order.BuyerID,
		"seller_id": order.SellerID,
		"items":     len(order.Items),
		"total":     order.TotalAmount.StringFixed(2),
	}).Info("Order placed")

	s.publish(ctx, events.TopicOrderPlaced, order, "")
	return order, nil
}

func (s *OrderService) reserveLineItem(ctx context.Context, actor models.Actor, order *models.Order, item OrderLineItem, hasPrescription bool) (*models.OrderItem, error) {
	listing, err := s.store.Medicines.GetByID(ctx, item.MedicineID)
	if err != nil {
		return nil, err
	}

	switch {
	case listing.SellerID == actor.ID:
		return nil, validationError("cannot order your own listing")
	case order.SellerID == uuid.Nil:
		order.SellerID = listing.SellerID
	case order.SellerID != listing.SellerID:
		return nil, validationError("all items of an order must come from one seller")
	}

	if !CanPurchase(listing, hasPrescription) {
		return nil, validationError("%s requires a prescription", listing.Name)
	}
	if s.requireVerified && listing.VerificationStatus != models.VerificationStatusVerified {
		return nil, validationError("%s has not been verified by a pharmacist", listing.Name)
	}
	if listing.IsExpired(time.Now()) {
		return nil, validationError("%s is past its expiry date", listing.Name)
	}
	if listing.Status == models.ListingStatusReserved {
		return nil, validationError("%s is on hold by the seller", listing.Name)
	}

	reserved, err := s.catalog.ReserveStock(ctx, item.MedicineID, item.Quantity)
	if err != nil {
		return nil, err
	}

	if item.Price != nil && !item.Price.Equal(reserved.SellingPrice) {
		logrus.WithFields(logrus.Fields{
			"medicine_id":   reserved.ID,
			"buyer_id":      actor.ID,
			"client_price":  item.Price.String(),
			"catalog_price": reserved.SellingPrice.String(),
		}).Warn("Client price differs from catalog price")
	}

	return &models.OrderItem{
		MedicineID: reserved.ID,
		Name:       reserved.Name,
		Quantity:   item.Quantity,
		UnitPrice:  reserved.SellingPrice,
		Image:      reserved.FirstImage(),
	}, nil
}

// UpdateStatus moves an order one step forward. Cancellation is delegated to
// CancelOrder so stock is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Actor, id uuid.UUID, req *UpdateOrderStatusRequest) (*models.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	if err := s.policy.Authorize(actor, OrderResource(order), OpUpdateOrderStatus); err != nil {
		return nil, err
	}

	if req.Status == models.OrderStatusCancelled {
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = "cancelled by seller"
		}
		return s.CancelOrder(ctx, actor, id, &CancelOrderRequest{Reason: reason})
	}

	if !CanTransition(order.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, req.Status)
	}

	var changes repository.OrderChanges
	if req.Status == models.OrderStatusDelivered {
		now := time.Now().UTC()
		changes.DeliveredAt = &now
		if !order.IsPaid && order.PaymentMethod == models.DefaultPaymentMethod {
			changes.IsPaid = true
			changes.PaidAt = &now
		}
	}

	updated, err := s.store.Orders.Transition(ctx, id, order.Status, req.Status, changes)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, id)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": id,
		"from":     order.Status,
		"to":       updated.Status,
		"actor_id": actor.ID,
	}).Info("Order status updated")

	s.publish(ctx, events.TopicOrderStatusChanged, updated, order.Status)
	return updated, nil
}

// CancelOrder cancels a pending or processing order and restores the stock
// of every line item. The status compare-and-set guarantees stock is
// released at most once per order.
func (s *OrderService) CancelOrder(ctx context.Context, actor models.Actor, id uuid.UUID, req *CancelOrderRequest) (*models.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	if err := s.policy.Authorize(actor, OrderResource(order), OpCancelOrder); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, models.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, order.Status)
	}

	var cancelled *models.Order
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		updated, err := s.store.Orders.Transition(ctx, id, order.Status, models.OrderStatusCancelled, repository.OrderChanges{
			CancelledAt:        &now,
			CancellationReason: req.Reason,
		})
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, id)
			}
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		for _, item := range updated.Items {
			if _, err := s.catalog.ReleaseStock(ctx, item.MedicineID, item.Quantity); err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}
		cancelled = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": id,
		"from":     order.Status,
		"actor_id": actor.ID,
		"items":    len(cancelled.Items),
	}).Info("Order cancelled, stock released")

	s.publish(ctx, events.TopicOrderCancelled, cancelled, order.Status)
	return cancelled, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	if err := s.policy.Authorize(actor, OrderResource(order), OpViewOrder); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListBuyerOrders(ctx context.Context, actor models.Actor, params *OrderListParams) ([]models.Order, int64, error) {
	filter := repository.OrderFilter{BuyerID: &actor.ID, Status: params.Status}
	return s.store.Orders.List(ctx, filter, pageOf(params.PaginationParams))
}

func (s *OrderService) ListSellerOrders(ctx context.Context, actor models.Actor, params *OrderListParams) ([]models.Order, int64, error) {
	if err := s.policy.Authorize(actor, nil, OpViewSales); err != nil {
		return nil, 0, err
	}
	filter := repository.OrderFilter{SellerID: &actor.ID, Status: params.Status}
	return s.store.Orders.List(ctx, filter, pageOf(params.PaginationParams))
}

// publish runs after commit. The event outlives the request: a client that
// hangs up does not drop it, and a slow broker holds the response for at
// most publishTimeout.
func (s *OrderService) publish(ctx context.Context, topic string, order *models.Order, prev models.OrderStatus) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(topic, order, prev)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID,
			"topic":    topic,
		}).Error("Failed to publish order event")
	}
}
