// internal/services/user_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type UserService struct {
	store *repository.Store
}

// UpdateUserProfileRequest carries the contact fields a user may edit. Role
// and verification are never part of it.
type UpdateUserProfileRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=500"`
	City          *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State         *string `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode       *string `json:"zip_code,omitempty" validate:"omitempty,max=20"`
	LicenseNumber *string `json:"license_number,omitempty" validate:"omitempty,max=100"`
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.State != nil {
		user.State = *req.State
	}
	if req.ZipCode != nil {
		user.ZipCode = *req.ZipCode
	}
	if req.LicenseNumber != nil {
		if user.Role != models.UserRolePharmacist {
			return nil, validationError("only pharmacists carry a license number")
		}
		user.LicenseNumber = *req.LicenseNumber
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
