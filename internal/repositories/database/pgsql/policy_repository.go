package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/SscSPs/book_lending_app/internal/models"
	"github.com/SscSPs/book_lending_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// finePolicyRowID is the id of the single fine_policy row.
const finePolicyRowID = 1

// PgxFinePolicyRepository implements portsrepo.FinePolicyRepository using pgxpool.
type PgxFinePolicyRepository struct {
	BaseRepository
}

func newPgxFinePolicyRepository(pool *pgxpool.Pool) portsrepo.FinePolicyRepository {
	return &PgxFinePolicyRepository{BaseRepository: newBaseRepository(pool)}
}

var _ portsrepo.FinePolicyRepository = (*PgxFinePolicyRepository)(nil)

// FindPolicy loads the stored policy.
func (r *PgxFinePolicyRepository) FindPolicy(ctx context.Context) (*domain.FinePolicy, error) {
	query := `
		SELECT id, late_fee_per_day, missing_or_lost_multiplier, small_damage_fraction,
		       large_damage_fraction, updated_by, updated_at
		FROM fine_policy
		WHERE id = $1
	`
	rows, err := r.Pool.Query(ctx, query, finePolicyRowID)
	if err != nil {
		return nil, mapPgError("find fine policy", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.FinePolicy])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fine policy: %w", apperrors.ErrNotFound)
		}
		return nil, mapPgError("find fine policy", err)
	}
	p := mapping.ToDomainFinePolicy(row)
	return &p, nil
}

// SavePolicy upserts the single policy row.
func (r *PgxFinePolicyRepository) SavePolicy(ctx context.Context, policy domain.FinePolicy, updatedBy string, now time.Time) error {
	query := `
		INSERT INTO fine_policy (id, late_fee_per_day, missing_or_lost_multiplier, small_damage_fraction,
		                         large_damage_fraction, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			late_fee_per_day = EXCLUDED.late_fee_per_day,
			missing_or_lost_multiplier = EXCLUDED.missing_or_lost_multiplier,
			small_damage_fraction = EXCLUDED.small_damage_fraction,
			large_damage_fraction = EXCLUDED.large_damage_fraction,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.Pool.Exec(ctx, query,
		finePolicyRowID,
		policy.LateFeePerDay,
		policy.MissingOrLostMultiplier,
		policy.SmallDamageFraction,
		policy.LargeDamageFraction,
		updatedBy,
		now,
	)
	if err != nil {
		return mapPgError("save fine policy", err)
	}
	return nil
}
