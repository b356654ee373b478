package repository

import (
	"context"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// VariantCatalog lectura del catálogo de variantes por depósito (opcionalmente por producto).
type VariantCatalog interface {
	ListVariants(ctx context.Context, depotID, productID string) ([]*entity.DepotVariant, error)
}
