// internal/services/order_state.go
package services

import "github.com/javajoker/medconnect-backend/internal/models"

// nextOrderStatus is the single forward step allowed from s.
func nextOrderStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	switch s {
	case models.OrderStatusPending:
		return models.OrderStatusProcessing, true
	case models.OrderStatusProcessing:
		return models.OrderStatusShipped, true
	case models.OrderStatusShipped:
		return models.OrderStatusDelivered, true
	case models.OrderStatusDelivered, models.OrderStatusCancelled:
		return "", false
	}
	return "", false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	if to == models.OrderStatusCancelled {
		return from == models.OrderStatusPending || from == models.OrderStatusProcessing
	}
	next, ok := nextOrderStatus(from)
	return ok && next == to
}
