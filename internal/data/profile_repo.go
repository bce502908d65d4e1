package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/reelapps/reelhunter/internal/data/pgxutil"
	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	apperrors "github.com/reelapps/reelhunter/internal/errors"
	"github.com/reelapps/reelhunter/internal/ports"
)

const profileColumns = `id, first_name, last_name, email, role, created_at, updated_at`

// ProfileRepo reads and writes profile rows directly in Postgres.
// It satisfies ports.ProfileStore for deployments that share the auth service's database.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// GetProfile returns the profile with the given id or ports.ErrProfileNotFound.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (*domainauth.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ports.ErrProfileNotFound
	}
	return r.queryOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

// InsertProfile creates the row. An existing row yields ports.ErrProfileConflict.
func (r *ProfileRepo) InsertProfile(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, apperrors.ValidationField("id", "profile id is required")
	}
	now := r.timeProvider.Now().UTC()
	return r.queryOne(ctx, `
		INSERT INTO profiles (id, first_name, last_name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+profileColumns,
		p.ID, p.FirstName, p.LastName, p.Email, string(domainauth.NormalizeRole(string(p.Role))), now,
	)
}

// UpdateRole changes a profile's role and returns the updated row.
func (r *ProfileRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) (*domainauth.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.ValidationField("role", fmt.Sprintf("unknown role %q", role))
	}
	return r.queryOne(ctx, `
		UPDATE profiles SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+profileColumns,
		id, string(role), r.timeProvider.Now().UTC(),
	)
}

func (r *ProfileRepo) queryOne(ctx context.Context, query string, args ...any) (*domainauth.Profile, error) {
	var out domainauth.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.Profile])
		return err
	})
	if err != nil {
		return nil, mapProfileErr(err)
	}
	return &out, nil
}

func mapProfileErr(err error) error {
	mapped := apperrors.MapDBError(err)
	switch {
	case apperrors.IsNotFound(mapped):
		return fmt.Errorf("%w: %w", ports.ErrProfileNotFound, mapped)
	case apperrors.IsConflict(mapped):
		return fmt.Errorf("%w: %w", ports.ErrProfileConflict, mapped)
	case apperrors.GetCode(mapped) == "":
		return fmt.Errorf("profile query: %w", err)
	default:
		return mapped
	}
}
