package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/observability"
)

type LeadsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewLeadsRepo(pool *pgxpool.Pool, prom *observability.Prom) *LeadsRepo {
	return &LeadsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *LeadsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}

	return fn()
}

const leadColumns = `id, name, email, phone, company, status, source, district_id,
	assigned_to, notes, budget, expected_close_date, created_by, created_at, updated_at`

func scanLead(row pgx.Row) (lead.Lead, error) {
	var l lead.Lead

	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Status, &l.Source,
		&l.DistrictID, &l.AssignedTo, &l.Notes, &l.Budget, &l.ExpectedCloseDate,
		&l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)

	return l, err
}

func (r *LeadsRepo) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	err := r.observe("leads.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO leads (`+leadColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			l.ID, l.Name, l.Email, l.Phone, l.Company, l.Status, l.Source,
			l.DistrictID, l.AssignedTo, l.Notes, l.Budget, l.ExpectedCloseDate,
			l.CreatedBy, l.CreatedAt, l.UpdatedAt,
		)

		return err
	})

	if err != nil {
		return lead.Lead{}, err
	}

	return l, nil
}

func (r *LeadsRepo) GetByID(ctx context.Context, id string) (lead.Lead, error) {
	var l lead.Lead

	err := r.observe("leads.get_by_id", func() error {
		var err error
		l, err = scanLead(r.pool.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lead.Lead{}, lead.ErrNotFound
		}

		return lead.Lead{}, err
	}

	return l, nil
}

// List applies the merged caller+policy filter. Limit <= 0 means no
// pagination (export and dashboard read the full visible set).
func (r *LeadsRepo) List(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`

	var conds []string
	var args []interface{}

	argsPosition := 1

	cond := func(column string, value interface{}) {
		conds = append(conds, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, value)
		argsPosition++
	}

	if filter.Status != nil {
		cond("status", *filter.Status)
	}
	if filter.DistrictID != nil {
		cond("district_id", *filter.DistrictID)
	}
	if filter.AssignedTo != nil {
		cond("assigned_to", *filter.AssignedTo)
	}
	if filter.Source != nil {
		cond("source", *filter.Source)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += " ORDER BY created_at ASC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	output := make([]lead.Lead, 0)

	err := r.observe("leads.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			l, err := scanLead(rows)

			if err != nil {
				return err
			}

			output = append(output, l)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Update patches only the provided fields in a single atomic UPDATE.
// Concurrent updates are last-write-wins; there is no version token.
func (r *LeadsRepo) Update(ctx context.Context, id string, req lead.UpdateLeadRequest) (lead.Lead, error) {
	var sets []string
	var args []interface{}

	argsPosition := 1

	set := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, value)
		argsPosition++
	}

	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Email != nil {
		set("email", *req.Email)
	}
	if req.Phone != nil {
		set("phone", *req.Phone)
	}
	if req.Company != nil {
		set("company", *req.Company)
	}
	if req.Status != nil {
		set("status", *req.Status)
	}
	if req.Source != nil {
		set("source", *req.Source)
	}
	if req.DistrictID != nil {
		set("district_id", *req.DistrictID)
	}
	if req.AssignedTo != nil {
		set("assigned_to", *req.AssignedTo)
	}
	if req.Notes != nil {
		set("notes", *req.Notes)
	}
	if req.Budget != nil {
		set("budget", *req.Budget)
	}
	if req.ExpectedCloseDate != nil {
		set("expected_close_date", *req.ExpectedCloseDate)
	}

	set("updated_at", time.Now().UTC())

	query := fmt.Sprintf(
		`UPDATE leads SET %s WHERE id = $%d RETURNING `+leadColumns,
		strings.Join(sets, ", "), argsPosition,
	)
	args = append(args, id)

	var l lead.Lead

	err := r.observe("leads.update", func() error {
		var err error
		l, err = scanLead(r.pool.QueryRow(ctx, query, args...))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lead.Lead{}, lead.ErrNotFound
		}

		return lead.Lead{}, err
	}

	return l, nil
}

func (r *LeadsRepo) UpdateStatus(ctx context.Context, id string, status lead.Status, notes *string) (lead.Lead, error) {
	req := lead.UpdateLeadRequest{Status: &status, Notes: notes}

	return r.Update(ctx, id, req)
}

func (r *LeadsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("leads.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)

		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return lead.ErrNotFound
	}

	return nil
}
