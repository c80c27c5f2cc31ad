// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name          string     `json:"name" gorm:"size:100;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255;not null"`
	Role          UserRole   `json:"role" gorm:"type:varchar(20);not null;index"`
	IsVerified    bool       `json:"is_verified" gorm:"default:false"`
	Phone         string     `json:"phone" gorm:"size:20"`
	Address       string     `json:"address" gorm:"type:text"`
	City          string     `json:"city" gorm:"size:100"`
	State         string     `json:"state" gorm:"size:100"`
	ZipCode       string     `json:"zip_code" gorm:"size:20"`
	LicenseNumber string     `json:"license_number,omitempty" gorm:"size:100"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID         uuid.UUID `json:"id"`
	Role       UserRole  `json:"role"`
	IsVerified bool      `json:"is_verified"`
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, IsVerified: u.IsVerified}
}
