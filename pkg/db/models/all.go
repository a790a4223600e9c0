package models

// All lists every persisted model, in foreign key order.
func All() []any {
	return []any{
		&User{},
		&Crop{},
		&Product{},
		&Supplier{},
		&InventoryItem{},
		&RestockOrder{},
		&Order{},
		&OrderItem{},
		&Delivery{},
		&Cart{},
		&CartItem{},
		&OutboxEvent{},
	}
}
