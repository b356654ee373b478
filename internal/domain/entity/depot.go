package entity

import "time"

// Depot representa un punto físico de almacenamiento de stock.
type Depot struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
