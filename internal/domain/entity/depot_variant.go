package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepotVariant cantidad disponible (closing) de una variante empacada en un depósito.
// Version crece en cada delta aplicado y se usa para control de concurrencia optimista.
type DepotVariant struct {
	DepotID    string
	VariantID  string
	ProductID  string
	Name       string
	ClosingQty decimal.Decimal
	Version    int64
	UpdatedAt  time.Time
}
