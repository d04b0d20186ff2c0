package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesops/leadhub/internal/domain/district"
)

type DistrictsRepo struct {
	pool *pgxpool.Pool
}

func NewDistrictsRepo(pool *pgxpool.Pool) *DistrictsRepo {
	return &DistrictsRepo{pool: pool}
}

func (r *DistrictsRepo) Create(ctx context.Context, req district.CreateDistrictRequest) (district.District, error) {
	d := district.District{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Code:      req.Code,
		State:     req.State,
		Region:    req.Region,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO districts (id, name, code, state, region, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Name, d.Code, d.State, d.Region, d.CreatedAt,
	)

	if err != nil {
		return district.District{}, err
	}

	return d, nil
}

func (r *DistrictsRepo) List(ctx context.Context) ([]district.District, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, state, region, created_at FROM districts ORDER BY name ASC`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	output := make([]district.District, 0)

	for rows.Next() {
		var d district.District

		err = rows.Scan(&d.ID, &d.Name, &d.Code, &d.State, &d.Region, &d.CreatedAt)

		if err != nil {
			return nil, err
		}

		output = append(output, d)
	}

	err = rows.Err()

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *DistrictsRepo) GetByID(ctx context.Context, id string) (district.District, error) {
	var d district.District

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, state, region, created_at FROM districts WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Code, &d.State, &d.Region, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return district.District{}, district.ErrNotFound
		}

		return district.District{}, err
	}

	return d, nil
}

func (r *DistrictsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM districts WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return district.ErrNotFound
	}

	return nil
}
