package entity

import "time"

// Customer representa un cliente (receptor del documento fiscal).
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string // RUC o cédula del receptor
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
