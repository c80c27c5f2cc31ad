// internal/database/seed.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

const (
	SeedAdminEmail  = "admin@medconnect.org"
	SeedPassword    = "Medconnect@123"
	seedSellerEmail = "seller@medconnect.org"
	seedNGOEmail    = "ngo@medconnect.org"
)

// SeedInitialData creates one account per role plus a few listings. It does
// nothing when the admin account already exists.
func SeedInitialData(ctx context.Context, store *repository.Store) error {
	if _, err := store.Users.GetByEmail(ctx, SeedAdminEmail); err == nil {
		logrus.Info("Seed data already present")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check seed state: %w", err)
	}

	logrus.Info("Seeding initial data")

	return store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		users := []*models.User{
			{Name: "System Administrator", Email: SeedAdminEmail, Role: models.UserRoleAdmin, IsVerified: true},
			{Name: "City Pharma Distributors", Email: seedSellerEmail, Role: models.UserRoleSeller, IsVerified: true, City: "Pune", State: "Maharashtra"},
			{Name: "Asha Buyer", Email: "buyer@medconnect.org", Role: models.UserRoleBuyer, IsVerified: true, City: "Pune", State: "Maharashtra"},
			{Name: "Dr. Meera Pharmacist", Email: "pharmacist@medconnect.org", Role: models.UserRolePharmacist, IsVerified: true, LicenseNumber: "PH-2024-0042"},
			{Name: "Helping Hands Foundation", Email: seedNGOEmail, Role: models.UserRoleNGO, IsVerified: true, City: "Mumbai", State: "Maharashtra"},
		}

		byEmail := make(map[string]*models.User, len(users))
		for _, u := range users {
			if err := u.SetPassword(SeedPassword); err != nil {
				return fmt.Errorf("failed to set password for %s: %w", u.Email, err)
			}
			if err := store.Users.Create(ctx, u); err != nil {
				return fmt.Errorf("failed to create %s: %w", u.Email, err)
			}
			byEmail[u.Email] = u
		}

		now := time.Now().UTC()
		listings := []*models.Medicine{
			{
				SellerID:          byEmail[seedSellerEmail].ID,
				Name:              "Paracetamol 500mg",
				Manufacturer:      "Cipla",
				Description:       "Analgesic and antipyretic",
				Category:          "Pain Relief",
				Composition:       "Paracetamol IP 500mg",
				DosageForm:        models.DosageFormTablet,
				Strength:          "500mg",
				PackageSize:       "10 tablets",
				BatchNumber:       "PCM-2401",
				ManufacturingDate: now.AddDate(0, -3, 0),
				ExpiryDate:        now.AddDate(2, 0, 0),
				OriginalPrice:     decimal.NewFromInt(30),
				SellingPrice:      decimal.NewFromInt(25),
				Quantity:          100,
				StorageConditions: "Store below 25°C",
			},
			{
				SellerID:             byEmail[seedSellerEmail].ID,
				Name:                 "Amoxicillin 250mg",
				Manufacturer:         "Sun Pharma",
				Description:          "Broad spectrum antibiotic",
				Category:             "Antibiotics",
				Composition:          "Amoxicillin trihydrate 250mg",
				DosageForm:           models.DosageFormCapsule,
				Strength:             "250mg",
				PackageSize:          "15 capsules",
				BatchNumber:          "AMX-2402",
				ManufacturingDate:    now.AddDate(0, -2, 0),
				ExpiryDate:           now.AddDate(1, 6, 0),
				OriginalPrice:        decimal.NewFromInt(120),
				SellingPrice:         decimal.NewFromInt(95),
				Quantity:             40,
				PrescriptionRequired: true,
			},
			{
				SellerID:          byEmail[seedNGOEmail].ID,
				Name:              "ORS Sachet",
				Manufacturer:      "FDC",
				Description:       "Oral rehydration salts",
				Category:          "Hydration",
				Composition:       "WHO ORS formula",
				DosageForm:        models.DosageFormOther,
				PackageSize:       "21g sachet",
				BatchNumber:       "ORS-2403",
				ManufacturingDate: now.AddDate(0, -1, 0),
				ExpiryDate:        now.AddDate(2, 0, 0),
				OriginalPrice:     decimal.NewFromInt(20),
				SellingPrice:      decimal.Zero,
				Quantity:          500,
			},
		}
		for _, m := range listings {
			m.VerificationStatus = models.VerificationStatusPending
			m.Status = models.ListingStatusAvailable
			if err := store.Medicines.Create(ctx, m); err != nil {
				return fmt.Errorf("failed to create listing %s: %w", m.Name, err)
			}
		}

		logrus.WithFields(logrus.Fields{
			"users":     len(users),
			"medicines": len(listings),
		}).Info("Initial data seeding completed")
		return nil
	})
}
