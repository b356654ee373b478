package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

var _ repository.DepotRepository = (*DepotRepo)(nil)

// DepotRepo lectura de depósitos.
type DepotRepo struct {
	q Querier
}

// NewDepotRepository construye el adaptador.
func NewDepotRepository(q Querier) *DepotRepo {
	return &DepotRepo{q: q}
}

// GetByID devuelve nil, nil si el depósito no existe.
func (r *DepotRepo) GetByID(ctx context.Context, id string) (*entity.Depot, error) {
	query := `SELECT id, name, address, created_at, updated_at FROM depots WHERE id = $1`
	var d entity.Depot
	err := r.q.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get depot: %w", err)
	}
	return &d, nil
}
