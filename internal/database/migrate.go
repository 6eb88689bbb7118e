package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/utils"
)

// Migrate creates or updates the tables used by the API.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Role{}, &model.User{}, &model.Intervention{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// AdminSeed describes the optional administrator created on startup.
type AdminSeed struct {
	Username   string
	Email      string
	Password   string
	BcryptCost int
}

// Seed inserts the known roles and, when admin.Username is set, an
// administrator account.  Existing rows are left untouched.
func Seed(ctx context.Context, db *gorm.DB, admin AdminSeed) error {
	db = db.WithContext(ctx)
	for _, name := range model.Roles {
		if err := db.Where(model.Role{Name: name}).FirstOrCreate(&model.Role{Name: name}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	if admin.Username == "" || admin.Password == "" {
		return nil
	}

	var existing model.User
	err := db.Where("normalized_username = ?", model.NormalizeName(admin.Username)).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	hash, err := utils.HashPassword(admin.Password, admin.BcryptCost)
	if err != nil {
		return fmt.Errorf("seed admin hash: %w", err)
	}
	var role model.Role
	if err := db.Where("name = ?", model.RoleAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	u := model.User{
		Username:           admin.Username,
		NormalizedUsername: model.NormalizeName(admin.Username),
		Email:              admin.Email,
		NormalizedEmail:    model.NormalizeName(admin.Email),
		PasswordHash:       hash,
		Roles:              []model.Role{role},
	}
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("seeded admin user", "username", admin.Username)
	return nil
}
