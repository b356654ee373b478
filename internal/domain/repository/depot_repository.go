package repository

import (
	"context"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// DepotRepository lectura de depósitos.
type DepotRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Depot, error)
}
