package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_items.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS suppliers",
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"CREATE TABLE IF NOT EXISTS restock_orders",
		"CHECK (quantity >= 0)",
		"FOREIGN KEY (inventory_item_id) REFERENCES inventory_items(id) ON DELETE CASCADE",
		"ON restock_orders (inventory_item_id) WHERE status = 'pending'",
		"DROP TABLE IF EXISTS inventory_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsHierarchy(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"FOREIGN KEY (parent_order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (status IN ('pending', 'processing', 'completed', 'cancelled'))",
		"CHECK (crop_id IS NULL OR product_id IS NULL)",
		"CONSTRAINT deliveries_tracking_number_key UNIQUE (tracking_number)",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartsMigrationEnforcesSingleActiveCart(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")
	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_retailer") {
		t.Fatalf("missing partial unique index on active carts")
	}
	if !strings.Contains(content, "WHERE status = 'active'") {
		t.Fatalf("active cart index must be partial")
	}
}
