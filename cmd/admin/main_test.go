package main

import (
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"precifica/models"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func TestCreateAdmin(t *testing.T) {
	database := openTestDatabase(t)

	if err := createAdmin(database, []string{"Dona@Confeitaria.com", "segredo123", "Ana", "Silva"}); err != nil {
		t.Fatalf("createAdmin returned error: %v", err)
	}

	var user models.User
	if err := database.Where("email = ?", "dona@confeitaria.com").First(&user).Error; err != nil {
		t.Fatalf("expected account to exist: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %q", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("segredo123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if err := createAdmin(database, []string{"dona@confeitaria.com", "segredo123"}); err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
}

func TestCreateAdminRejectsShortPassword(t *testing.T) {
	database := openTestDatabase(t)
	if err := createAdmin(database, []string{"a@b.com", "curta"}); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestSetRole(t *testing.T) {
	database := openTestDatabase(t)
	if err := database.Create(&models.User{Email: "user@example.com", PasswordHash: "x", Role: models.RoleUser}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	if err := setRole(database, []string{"user@example.com"}, models.RoleAdmin); err != nil {
		t.Fatalf("setRole returned error: %v", err)
	}

	var user models.User
	if err := database.Where("email = ?", "user@example.com").First(&user).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %q", user.Role)
	}

	if err := setRole(database, []string{"missing@example.com"}, models.RoleAdmin); err == nil {
		t.Fatal("expected unknown email to return an error")
	}
}
