// internal/services/verification_gate.go
package services

import "github.com/javajoker/medconnect-backend/internal/models"

// CanPurchase is false only for a prescription-only listing ordered without
// a prescription image.
func CanPurchase(listing *models.Medicine, hasPrescriptionImage bool) bool {
	return !(listing.PrescriptionRequired && !hasPrescriptionImage)
}

// CanVerify reports whether the actor may sign off on listings.
func CanVerify(actor models.Actor) bool {
	return actor.Role == models.UserRolePharmacist && actor.IsVerified
}
