// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

type AdminService struct {
	store  *repository.Store
	policy *AccessPolicy
}

type VerifyPharmacistRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

func NewAdminService(store *repository.Store, policy *AccessPolicy) *AdminService {
	return &AdminService{
		store:  store,
		policy: policy,
	}
}

func (s *AdminService) ListPharmacists(ctx context.Context, actor models.Actor, verified *bool, params utils.PaginationParams) ([]models.User, int64, error) {
	if err := s.policy.Authorize(actor, nil, OpListPharmacists); err != nil {
		return nil, 0, err
	}
	users, total, err := s.store.Users.ListByRole(ctx, models.UserRolePharmacist, verified, pageOf(params))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch pharmacists: %w", err)
	}
	return users, total, nil
}

// VerifyPharmacist grants or revokes the verification that lets a pharmacist
// sign off on listings.
func (s *AdminService) VerifyPharmacist(ctx context.Context, actor models.Actor, userID uuid.UUID, req *VerifyPharmacistRequest) (*models.User, error) {
	if err := s.policy.Authorize(actor, nil, OpVerifyPharmacist); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	if user.Role != models.UserRolePharmacist {
		return nil, validationError("user %s is not a pharmacist", userID)
	}

	previous := user.IsVerified
	user.IsVerified = *req.Verified
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"admin_id":      actor.ID,
		"pharmacist_id": user.ID,
		"from":          previous,
		"to":            user.IsVerified,
	}).Info("Pharmacist verification updated")

	return user, nil
}
