package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/domain/user"
	"github.com/salesops/leadhub/internal/security"
)

// EnsureAdminUser creates the configured admin account when it does
// not exist yet. Safe to run on every start.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	return insertUser(ctx, pool, user.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FullName:     cfg.AdminName,
		Role:         user.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// SeedDemoData fills an empty database with demo users, districts and
// leads. A non-empty users table means the instance is live and the
// seed is skipped entirely.
func SeedDemoData(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	var count int

	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)

	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	now := time.Now().UTC()

	type seedUser struct {
		email    string
		name     string
		role     user.Role
		password string
		phone    string
	}

	seedUsers := []seedUser{
		{cfg.AdminEmail, cfg.AdminName, user.RoleAdmin, cfg.AdminPassword, "+1234567890"},
		{"manager@leadhub.local", "Manager User", user.RoleManager, "manager123", "+1234567891"},
		{"sales@leadhub.local", "Sales Rep", user.RoleSales, "sales123", "+1234567892"},
	}

	ids := make(map[user.Role]string, len(seedUsers))

	for _, su := range seedUsers {
		hash, err := security.HashPassword(su.password)

		if err != nil {
			return err
		}

		phone := su.phone

		u := user.User{
			ID:           uuid.NewString(),
			Email:        su.email,
			PasswordHash: hash,
			FullName:     su.name,
			Role:         su.role,
			Phone:        &phone,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := insertUser(ctx, pool, u); err != nil {
			return err
		}

		ids[su.role] = u.ID
	}

	type seedDistrict struct {
		name, code, state, region string
	}

	seedDistricts := []seedDistrict{
		{"North District", "ND", "California", "West"},
		{"South District", "SD", "Texas", "South"},
		{"East District", "ED", "New York", "East"},
		{"West District", "WD", "Washington", "West"},
	}

	districtIDs := make([]string, 0, len(seedDistricts))

	for _, sd := range seedDistricts {
		id := uuid.NewString()

		_, err := pool.Exec(ctx,
			`INSERT INTO districts (id, name, code, state, region, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, sd.name, sd.code, sd.state, sd.region, now,
		)

		if err != nil {
			return err
		}

		districtIDs = append(districtIDs, id)
	}

	type seedLead struct {
		name, email, phone, company string
		status                      lead.Status
		source                      lead.Source
		budget                      float64
	}

	seedLeads := []seedLead{
		{"John Doe", "john@example.com", "+1234567893", "Tech Corp", lead.StatusNew, lead.SourceWebsite, 50000},
		{"Jane Smith", "jane@example.com", "+1234567894", "Business Inc", lead.StatusContacted, lead.SourceReferral, 75000},
		{"Bob Johnson", "bob@example.com", "+1234567895", "Startup LLC", lead.StatusQualified, lead.SourceAdvertisement, 100000},
		{"Alice Brown", "alice@example.com", "+1234567896", "Enterprise Co", lead.StatusProposal, lead.SourceManual, 150000},
		{"Charlie Wilson", "charlie@example.com", "+1234567897", "Solutions Ltd", lead.StatusWon, lead.SourceWebsite, 200000},
		{"Diana Davis", "diana@example.com", "+1234567898", "Digital Agency", lead.StatusLost, lead.SourceReferral, 60000},
		{"Eve Martinez", "eve@example.com", "+1234567899", "Creative Studio", lead.StatusNew, lead.SourceAdvertisement, 45000},
		{"Frank Garcia", "frank@example.com", "+1234567800", "Consulting Group", lead.StatusContacted, lead.SourceManual, 80000},
	}

	adminID := ids[user.RoleAdmin]
	salesID := ids[user.RoleSales]

	for i, sl := range seedLeads {
		districtID := districtIDs[i%len(districtIDs)]
		email := sl.email
		company := sl.company
		budget := sl.budget

		_, err := pool.Exec(ctx,
			`INSERT INTO leads (id, name, email, phone, company, status, source,
			                    district_id, assigned_to, budget, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			uuid.NewString(), sl.name, &email, sl.phone, &company, sl.status, sl.source,
			&districtID, &salesID, &budget, &adminID, now, now,
		)

		if err != nil {
			return err
		}
	}

	return nil
}

func insertUser(ctx context.Context, pool *pgxpool.Pool, u user.User) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role, phone,
		                    district_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.Phone,
		u.DistrictID, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
