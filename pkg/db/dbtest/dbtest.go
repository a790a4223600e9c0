// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// New returns a client over a private in-memory database. The pool is pinned
// to one connection so concurrent transactions queue instead of racing.
func New(t testing.TB) *db.Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db.NewFromGorm(conn)
}

// User inserts a user with the given role. Users are spaced one millisecond
// apart so created_at ordering is deterministic.
func User(t testing.TB, conn *gorm.DB, role enums.UserRole, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "x",
		Role:         role,
		Location:     username + " street",
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	time.Sleep(time.Millisecond)
	return user
}

// Product inserts a product owned by farmerID.
func Product(t testing.TB, conn *gorm.DB, farmerID uuid.UUID, name string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		FarmerID:      farmerID,
		Name:          name,
		Category:      "produce",
		Unit:          enums.UnitKilogram,
		PricePerUnit:  decimal.RequireFromString(price),
		StockQuantity: stock,
		ReorderLevel:  5,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

// Crop inserts a crop in the given status.
func Crop(t testing.TB, conn *gorm.DB, farmerID uuid.UUID, name string, status enums.CropStatus, quantity int) *models.Crop {
	t.Helper()
	now := time.Now().UTC()
	crop := &models.Crop{
		FarmerID:            farmerID,
		Name:                name,
		Quantity:            quantity,
		Unit:                enums.UnitKilogram,
		PricePerUnit:        decimal.RequireFromString("2.50"),
		Status:              status,
		PlantingDate:        now.AddDate(0, -2, 0),
		ExpectedHarvestDate: now.AddDate(0, 1, 0),
	}
	if err := conn.Create(crop).Error; err != nil {
		t.Fatalf("create crop %s: %v", name, err)
	}
	return crop
}

// InventoryItem inserts a distributor inventory item.
func InventoryItem(t testing.TB, conn *gorm.DB, distributorID uuid.UUID, name string, quantity, reorderLevel, reorderQty int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		DistributorID:   distributorID,
		Name:            name,
		SKU:             "SKU-" + name,
		Unit:            enums.UnitKilogram,
		Quantity:        quantity,
		ReorderLevel:    reorderLevel,
		ReorderQuantity: reorderQty,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create inventory item %s: %v", name, err)
	}
	return item
}
