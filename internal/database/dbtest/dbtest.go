// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/intervention-api/internal/database"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/utils"
)

// Open returns a migrated in-memory database with the roles seeded.  The
// pool is limited to one connection so that every query sees the same
// database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(context.Background(), db, database.AdminSeed{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// AddUser inserts a user holding roles and returns it.  The password is
// hashed with the minimum bcrypt cost.
func AddUser(t testing.TB, db *gorm.DB, username, password string, roles ...string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	var rs []model.Role
	if len(roles) > 0 {
		if err := db.Where("name IN ?", roles).Find(&rs).Error; err != nil {
			t.Fatalf("roles: %v", err)
		}
	}
	u := model.User{
		Username:           username,
		NormalizedUsername: model.NormalizeName(username),
		Email:              username + "@example.com",
		NormalizedEmail:    model.NormalizeName(username + "@example.com"),
		PasswordHash:       hash,
		Roles:              rs,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
