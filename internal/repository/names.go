package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"investigation-store/internal/model"
)

// namesColumns is the column list shared by all uinames queries.
const namesColumns = `id, singular_bullet, plural_bullet, singular_truth_bullet_finder, plural_truth_bullet_finder, best_bullet_finder`

// NamesRepository handles naming profile persistence.
type NamesRepository struct {
	pool *pgxpool.Pool
}

// NewNamesRepository creates a new NamesRepository instance.
func NewNamesRepository(pool *pgxpool.Pool) *NamesRepository {
	return &NamesRepository{pool: pool}
}

// CreateNamesParams holds the fields for creating a naming profile.
// Empty fields take the stock vocabulary.
type CreateNamesParams struct {
	SingularBullet string
	PluralBullet   string
	SingularFinder string
	PluralFinder   string
	BestFinder     string
}

// UpdateNamesParams holds the mutable fields of a naming profile.
// Nil fields are left unchanged.
type UpdateNamesParams struct {
	SingularBullet *string
	PluralBullet   *string
	SingularFinder *string
	PluralFinder   *string
	BestFinder     *string
}

// Create persists a new naming profile and returns it with its assigned ID.
func (r *NamesRepository) Create(ctx context.Context, params CreateNamesParams) (*model.NamingProfile, error) {
	defaults := model.DefaultNamingProfile()
	if params.SingularBullet == "" {
		params.SingularBullet = defaults.SingularBullet
	}
	if params.PluralBullet == "" {
		params.PluralBullet = defaults.PluralBullet
	}
	if params.SingularFinder == "" {
		params.SingularFinder = defaults.SingularFinder
	}
	if params.PluralFinder == "" {
		params.PluralFinder = defaults.PluralFinder
	}
	if params.BestFinder == "" {
		params.BestFinder = defaults.BestFinder
	}

	const query = `
		INSERT INTO uinames (singular_bullet, plural_bullet, singular_truth_bullet_finder, plural_truth_bullet_finder, best_bullet_finder)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + namesColumns

	var names model.NamingProfile
	err := r.pool.QueryRow(ctx, query,
		params.SingularBullet,
		params.PluralBullet,
		params.SingularFinder,
		params.PluralFinder,
		params.BestFinder,
	).Scan(
		&names.ID,
		&names.SingularBullet,
		&names.PluralBullet,
		&names.SingularFinder,
		&names.PluralFinder,
		&names.BestFinder,
	)
	if err != nil {
		return nil, wrapWriteErr(err, "create naming profile")
	}

	return &names, nil
}

// GetByID retrieves a naming profile by its ID.
// Returns ErrNamesNotFound if the profile does not exist.
func (r *NamesRepository) GetByID(ctx context.Context, id int) (*model.NamingProfile, error) {
	const query = `
		SELECT ` + namesColumns + `
		FROM uinames
		WHERE id = $1
	`

	var names model.NamingProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&names.ID,
		&names.SingularBullet,
		&names.PluralBullet,
		&names.SingularFinder,
		&names.PluralFinder,
		&names.BestFinder,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNamesNotFound
		}
		return nil, fmt.Errorf("failed to get naming profile: %w", err)
	}

	return &names, nil
}

// Update applies the non-nil fields of params to an existing profile and
// returns the updated row. Returns ErrNamesNotFound if the ID does not exist.
func (r *NamesRepository) Update(ctx context.Context, id int, params UpdateNamesParams) (*model.NamingProfile, error) {
	const query = `
		UPDATE uinames
		SET singular_bullet = COALESCE($2, singular_bullet),
		    plural_bullet = COALESCE($3, plural_bullet),
		    singular_truth_bullet_finder = COALESCE($4, singular_truth_bullet_finder),
		    plural_truth_bullet_finder = COALESCE($5, plural_truth_bullet_finder),
		    best_bullet_finder = COALESCE($6, best_bullet_finder)
		WHERE id = $1
		RETURNING ` + namesColumns

	var names model.NamingProfile
	err := r.pool.QueryRow(ctx, query, id,
		params.SingularBullet,
		params.PluralBullet,
		params.SingularFinder,
		params.PluralFinder,
		params.BestFinder,
	).Scan(
		&names.ID,
		&names.SingularBullet,
		&names.PluralBullet,
		&names.SingularFinder,
		&names.PluralFinder,
		&names.BestFinder,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNamesNotFound
		}
		return nil, wrapWriteErr(err, "update naming profile")
	}

	return &names, nil
}

// Delete removes a naming profile. Any guild config referencing it keeps its
// row with the reference cleared. Returns ErrNamesNotFound if the ID does
// not exist.
func (r *NamesRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM uinames WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete naming profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNamesNotFound
	}

	return nil
}
