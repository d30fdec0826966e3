package models

// All lists every table the engine persists, in dependency order.
func All() []any {
	return []any{
		&Product{},
		&AppSetting{},
		&Order{},
		&OrderItem{},
		&StockMovement{},
		&OutboxEvent{},
	}
}
