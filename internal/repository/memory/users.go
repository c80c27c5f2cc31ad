// internal/repository/memory/users.go
package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type userRepository struct {
	b *backend
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.b.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	stamp(&u.BaseModel)
	r.b.users[u.ID] = *u
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	u, ok := r.b.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	email = strings.ToLower(email)
	for _, u := range r.b.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	r.b.wlock(ctx)
	defer r.b.wunlock(ctx)

	stored, ok := r.b.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = u.Name
	stored.Phone = u.Phone
	stored.Address = u.Address
	stored.City = u.City
	stored.State = u.State
	stored.ZipCode = u.ZipCode
	stored.LicenseNumber = u.LicenseNumber
	stored.IsVerified = u.IsVerified
	stored.LastLoginAt = u.LastLoginAt
	stamp(&stored.BaseModel)
	r.b.users[u.ID] = stored
	*u = stored
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.UserRole, verified *bool, page repository.Page) ([]models.User, int64, error) {
	r.b.rlock(ctx)
	defer r.b.runlock(ctx)

	out := make([]models.User, 0)
	for _, u := range r.b.users {
		if u.Role != role {
			continue
		}
		if verified != nil && u.IsVerified != *verified {
			continue
		}
		out = append(out, u)
	}
	sortBy(out, page.Order != "asc", func(a, b models.User) bool {
		switch page.Sort {
		case "name":
			return a.Name < b.Name
		case "email":
			return a.Email < b.Email
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return paginate(out, page), int64(len(out)), nil
}
