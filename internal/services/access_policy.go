// internal/services/access_policy.go
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
)

type Operation string

const (
	OpCreateListing     Operation = "listing.create"
	OpUpdateListing     Operation = "listing.update"
	OpDeleteListing     Operation = "listing.delete"
	OpVerifyListing     Operation = "listing.verify"
	OpReviewListings    Operation = "listing.review"
	OpPlaceOrder        Operation = "order.place"
	OpUpdateOrderStatus Operation = "order.update_status"
	OpCancelOrder       Operation = "order.cancel"
	OpViewOrder         Operation = "order.view"
	OpViewSales         Operation = "order.view_sales"
	OpVerifyPharmacist  Operation = "user.verify_pharmacist"
	OpListPharmacists   Operation = "user.list_pharmacists"
)

// Resource is the object an operation acts on. A nil resource means the
// operation is checked on role alone.
type Resource interface {
	ownedBy(userID uuid.UUID) bool
}

type listingResource struct{ m *models.Medicine }

func (r listingResource) ownedBy(userID uuid.UUID) bool { return r.m.SellerID == userID }

type orderResource struct{ o *models.Order }

func (r orderResource) ownedBy(userID uuid.UUID) bool { return r.o.SellerID == userID }

// ListingResource wraps a medicine listing for Authorize.
func ListingResource(m *models.Medicine) Resource { return listingResource{m} }

// OrderResource wraps an order for Authorize.
func OrderResource(o *models.Order) Resource { return orderResource{o} }

type AccessPolicy struct{}

func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{}
}

// Authorize is the single gate every workflow step goes through. It returns
// nil or an error wrapping ErrForbidden.
func (p *AccessPolicy) Authorize(actor models.Actor, resource Resource, op Operation) error {
	if p.allowed(actor, resource, op) {
		return nil
	}
	return fmt.Errorf("%w: %s may not perform %s", ErrForbidden, actor.Role, op)
}

func (p *AccessPolicy) allowed(actor models.Actor, resource Resource, op Operation) bool {
	if !actor.Role.IsValid() || actor.ID == uuid.Nil {
		return false
	}

	switch op {
	case OpCreateListing, OpViewSales:
		return actor.Role.CanSell()

	case OpUpdateListing, OpDeleteListing, OpUpdateOrderStatus:
		return actor.Role.CanSell() && resource != nil && resource.ownedBy(actor.ID)

	case OpVerifyListing:
		return CanVerify(actor)

	case OpReviewListings:
		return CanVerify(actor) || actor.Role == models.UserRoleAdmin

	case OpPlaceOrder:
		return actor.Role.CanBuy()

	case OpCancelOrder:
		order, ok := resource.(orderResource)
		return ok && order.o.IsParty(actor.ID)

	case OpViewOrder:
		if actor.Role == models.UserRoleAdmin {
			return true
		}
		order, ok := resource.(orderResource)
		return ok && order.o.IsParty(actor.ID)

	case OpVerifyPharmacist, OpListPharmacists:
		return actor.Role == models.UserRoleAdmin
	}

	return false
}
