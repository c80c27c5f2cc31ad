// internal/repository/postgres/users.go
package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return translate(conn(ctx, r.db).Create(u).Error)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	result := conn(ctx, r.db).Model(u).Select(
		"name", "phone", "address", "city", "state", "zip_code",
		"license_number", "is_verified", "last_login_at",
	).Updates(u)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole, verified *bool, page repository.Page) ([]models.User, int64, error) {
	query := conn(ctx, r.db).Model(&models.User{}).Where("role = ?", role)
	if verified != nil {
		query = query.Where("is_verified = ?", *verified)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := applyPage(query, page, []string{"created_at", "name", "email"}).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
