package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"investigation-store/internal/model"
)

// truthBulletColumns is the column list shared by all uinewtruthbullets
// queries.
const truthBulletColumns = `id, trigger, aliases, description, channel_id, guild_id, found, finder, hidden`

// matchTriggerOrAlias matches $2 case-insensitively against the trigger or
// any alias of a row.
const matchTriggerOrAlias = `(
		UPPER(trigger) = UPPER($2)
		OR EXISTS (
			SELECT 1
			FROM unnest(aliases) AS alias
			WHERE UPPER(alias) = UPPER($2)
		)
	)`

// TruthBulletRepository handles truth bullet persistence.
type TruthBulletRepository struct {
	pool *pgxpool.Pool
}

// NewTruthBulletRepository creates a new TruthBulletRepository instance.
func NewTruthBulletRepository(pool *pgxpool.Pool) *TruthBulletRepository {
	return &TruthBulletRepository{pool: pool}
}

// CreateTruthBulletParams holds the fields for creating a truth bullet.
// Found has no schema default and must be stated explicitly.
type CreateTruthBulletParams struct {
	Trigger     string
	Aliases     []string
	Description string
	ChannelID   int64
	GuildID     int64
	Found       bool
	Finder      *int64
	Hidden      bool
}

// UpdateTruthBulletParams holds the mutable fields of a truth bullet.
// Nil fields are left unchanged.
type UpdateTruthBulletParams struct {
	Trigger     *string
	Aliases     []string
	Description *string
	Found       *bool
	Finder      *int64
	Hidden      *bool
}

// ListOptions filters a scoped truth bullet listing. Nil fields match any
// value.
type ListOptions struct {
	Found  *bool
	Hidden *bool
}

func scanTruthBullet(row pgx.Row) (*model.TruthBullet, error) {
	var bullet model.TruthBullet
	err := row.Scan(
		&bullet.ID,
		&bullet.Trigger,
		&bullet.Aliases,
		&bullet.Description,
		&bullet.ChannelID,
		&bullet.GuildID,
		&bullet.Found,
		&bullet.Finder,
		&bullet.Hidden,
	)
	if err != nil {
		return nil, err
	}
	return &bullet, nil
}

// Create persists a new truth bullet and returns it with its assigned ID.
// A trigger over 100 characters or an alias over 40 fails with
// ErrConstraintViolation.
func (r *TruthBulletRepository) Create(ctx context.Context, params CreateTruthBulletParams) (*model.TruthBullet, error) {
	if params.Aliases == nil {
		params.Aliases = []string{}
	}

	const query = `
		INSERT INTO uinewtruthbullets (trigger, aliases, description, channel_id, guild_id, found, finder, hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + truthBulletColumns

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query,
		params.Trigger,
		params.Aliases,
		params.Description,
		params.ChannelID,
		params.GuildID,
		params.Found,
		params.Finder,
		params.Hidden,
	))
	if err != nil {
		return nil, wrapWriteErr(err, "create truth bullet")
	}

	return bullet, nil
}

// GetByID retrieves a truth bullet by its ID.
// Returns ErrTruthBulletNotFound if the bullet does not exist.
func (r *TruthBulletRepository) GetByID(ctx context.Context, id int) (*model.TruthBullet, error) {
	const query = `
		SELECT ` + truthBulletColumns + `
		FROM uinewtruthbullets
		WHERE id = $1
	`

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTruthBulletNotFound
		}
		return nil, fmt.Errorf("failed to get truth bullet: %w", err)
	}

	return bullet, nil
}

// GetByTrigger resolves a bullet by trigger within a channel/guild scope,
// matching the trigger or any alias case-insensitively. This is the lookup
// the (trigger, channel_id, guild_id, found) index backs. Returns
// ErrTruthBulletNotFound when no bullet matches.
func (r *TruthBulletRepository) GetByTrigger(ctx context.Context, trigger string, channelID, guildID int64) (*model.TruthBullet, error) {
	const query = `
		SELECT ` + truthBulletColumns + `
		FROM uinewtruthbullets
		WHERE channel_id = $1
		  AND guild_id = $3
		  AND ` + matchTriggerOrAlias + `
		LIMIT 1
	`

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query, channelID, trigger, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTruthBulletNotFound
		}
		return nil, fmt.Errorf("failed to get truth bullet by trigger: %w", err)
	}

	return bullet, nil
}

// FindInContent returns the first unfound bullet in a channel whose trigger
// or alias occurs as a substring of content, case-insensitively. ILIKE
// wildcards inside triggers are escaped so they match literally. Returns
// ErrTruthBulletNotFound when nothing matches.
func (r *TruthBulletRepository) FindInContent(ctx context.Context, channelID int64, content string) (*model.TruthBullet, error) {
	const query = `
		SELECT ` + truthBulletColumns + `
		FROM uinewtruthbullets
		WHERE channel_id = $1
		  AND found = FALSE
		  AND (
			$2 ILIKE CONCAT('%', regexp_replace(trigger, '([\%_])', '\\\1', 'g'), '%')
			OR EXISTS (
				SELECT 1
				FROM unnest(aliases) AS alias
				WHERE $2 ILIKE CONCAT('%', regexp_replace(alias, '([\%_])', '\\\1', 'g'), '%')
			)
		  )
		LIMIT 1
	`

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query, channelID, content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTruthBulletNotFound
		}
		return nil, fmt.Errorf("failed to find truth bullet in content: %w", err)
	}

	return bullet, nil
}

// ValidateTrigger reports whether text collides with an existing trigger or
// alias in the channel, case-insensitively. Used to reject duplicate
// triggers before creating a bullet.
func (r *TruthBulletRepository) ValidateTrigger(ctx context.Context, channelID int64, text string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1
			FROM uinewtruthbullets
			WHERE channel_id = $1
			  AND ` + matchTriggerOrAlias + `
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, channelID, text).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to validate trigger: %w", err)
	}

	return exists, nil
}

// Update applies the non-nil fields of params to an existing bullet and
// returns the updated row. Returns ErrTruthBulletNotFound if the ID does not
// exist.
func (r *TruthBulletRepository) Update(ctx context.Context, id int, params UpdateTruthBulletParams) (*model.TruthBullet, error) {
	const query = `
		UPDATE uinewtruthbullets
		SET trigger = COALESCE($2, trigger),
		    aliases = COALESCE($3, aliases),
		    description = COALESCE($4, description),
		    found = COALESCE($5, found),
		    finder = COALESCE($6, finder),
		    hidden = COALESCE($7, hidden)
		WHERE id = $1
		RETURNING ` + truthBulletColumns

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query, id,
		params.Trigger,
		params.Aliases,
		params.Description,
		params.Found,
		params.Finder,
		params.Hidden,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTruthBulletNotFound
		}
		return nil, wrapWriteErr(err, "update truth bullet")
	}

	return bullet, nil
}

// MarkFound records a bullet's discovery by a user: found becomes true and
// finder is set, in one statement. Returns ErrTruthBulletNotFound if the ID
// does not exist.
func (r *TruthBulletRepository) MarkFound(ctx context.Context, id int, finder int64) (*model.TruthBullet, error) {
	const query = `
		UPDATE uinewtruthbullets
		SET found = TRUE, finder = $2
		WHERE id = $1
		RETURNING ` + truthBulletColumns

	bullet, err := scanTruthBullet(r.pool.QueryRow(ctx, query, id, finder))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTruthBulletNotFound
		}
		return nil, fmt.Errorf("failed to mark truth bullet found: %w", err)
	}

	return bullet, nil
}

// Delete removes a truth bullet.
// Returns ErrTruthBulletNotFound if the ID does not exist.
func (r *TruthBulletRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM uinewtruthbullets WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete truth bullet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTruthBulletNotFound
	}

	return nil
}

// List retrieves the bullets of a channel/guild scope in insertion (primary
// key) order, optionally filtered by found or hidden state. Each call reads
// current committed state.
func (r *TruthBulletRepository) List(ctx context.Context, channelID, guildID int64, opts ListOptions) ([]*model.TruthBullet, error) {
	const query = `
		SELECT ` + truthBulletColumns + `
		FROM uinewtruthbullets
		WHERE channel_id = $1
		  AND guild_id = $2
		  AND ($3::boolean IS NULL OR found = $3)
		  AND ($4::boolean IS NULL OR hidden = $4)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, channelID, guildID, opts.Found, opts.Hidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list truth bullets: %w", err)
	}
	defer rows.Close()

	var bullets []*model.TruthBullet
	for rows.Next() {
		bullet, err := scanTruthBullet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan truth bullet: %w", err)
		}
		bullets = append(bullets, bullet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating truth bullets: %w", err)
	}

	return bullets, nil
}
