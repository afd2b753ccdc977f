package entity

import "time"

// Supplier representa un proveedor (persona jurídica identificada por CNPJ).
type Supplier struct {
	ID        string
	Name      string
	TaxID     string // CNPJ normalizado: [A-Z0-9]{14,18}
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
