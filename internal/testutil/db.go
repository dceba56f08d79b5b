// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"paysync/internal/database"
	"paysync/internal/domain"
	"paysync/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the schema migrated.
// A single connection keeps every goroutine on the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedPayer creates a payer account with a zero total.
func SeedPayer(t *testing.T, db *gorm.DB, userID uint) *models.PayerAccount {
	t.Helper()
	acct := &models.PayerAccount{UserID: userID, TotalPaid: decimal.Zero, PaymentStatus: domain.PayerStatusUnpaid, Currency: "BRL"}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("seed payer: %v", err)
	}
	return acct
}
