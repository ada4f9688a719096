package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"investigation-store/internal/model"
)

// guildConfigColumns is the column list shared by all uinewconfig queries.
const guildConfigColumns = `guild_id, bullet_chan_id, best_bullet_finder_role, player_role, bullets_enabled, investigation_type, names_id`

// GuildConfigRepository handles per-guild configuration persistence.
type GuildConfigRepository struct {
	pool *pgxpool.Pool
}

// NewGuildConfigRepository creates a new GuildConfigRepository instance.
func NewGuildConfigRepository(pool *pgxpool.Pool) *GuildConfigRepository {
	return &GuildConfigRepository{pool: pool}
}

// CreateGuildConfigParams holds the optional fields for creating a guild
// config. Nil fields take the schema defaults: no channel or roles, bullets
// disabled, default investigation mode, no naming profile.
type CreateGuildConfigParams struct {
	BulletChannelID   *int64
	BestFinderRoleID  *int64
	PlayerRoleID      *int64
	BulletsEnabled    *bool
	InvestigationType *int
	NamesID           *int
}

// UpdateGuildConfigParams holds the non-nullable mutable fields of a guild
// config. Nil fields are left unchanged. The nullable reference columns have
// dedicated setters since nil already means "leave unchanged" here.
type UpdateGuildConfigParams struct {
	BulletsEnabled    *bool
	InvestigationType *int
}

func scanGuildConfig(row pgx.Row) (*model.GuildConfig, error) {
	var cfg model.GuildConfig
	err := row.Scan(
		&cfg.GuildID,
		&cfg.BulletChannelID,
		&cfg.BestFinderRoleID,
		&cfg.PlayerRoleID,
		&cfg.BulletsEnabled,
		&cfg.InvestigationType,
		&cfg.NamesID,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Create persists a new guild config. The guild ID is the externally issued
// snowflake, never generated by the store. A duplicate guild ID, an already
// claimed naming profile, or a dangling NamesID reference fails with
// ErrConstraintViolation.
func (r *GuildConfigRepository) Create(ctx context.Context, guildID int64, params CreateGuildConfigParams) (*model.GuildConfig, error) {
	const query = `
		INSERT INTO uinewconfig (guild_id, bullet_chan_id, best_bullet_finder_role, player_role, bullets_enabled, investigation_type, names_id)
		VALUES ($1, $2, $3, $4, COALESCE($5, FALSE), COALESCE($6, 1), $7)
		RETURNING ` + guildConfigColumns

	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query,
		guildID,
		params.BulletChannelID,
		params.BestFinderRoleID,
		params.PlayerRoleID,
		params.BulletsEnabled,
		params.InvestigationType,
		params.NamesID,
	))
	if err != nil {
		return nil, wrapWriteErr(err, "create guild config")
	}

	return cfg, nil
}

// Get retrieves a guild config by guild ID.
// Returns ErrGuildConfigNotFound if the guild has no config row.
func (r *GuildConfigRepository) Get(ctx context.Context, guildID int64) (*model.GuildConfig, error) {
	const query = `
		SELECT ` + guildConfigColumns + `
		FROM uinewconfig
		WHERE guild_id = $1
	`

	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildConfigNotFound
		}
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	return cfg, nil
}

// GetOrCreate retrieves a guild config, creating a default one if the guild
// has none. The bool reports whether a row was created.
func (r *GuildConfigRepository) GetOrCreate(ctx context.Context, guildID int64) (*model.GuildConfig, bool, error) {
	// Try to get existing config first
	cfg, err := r.Get(ctx, guildID)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, ErrGuildConfigNotFound) {
		return nil, false, err
	}

	// Config doesn't exist, create a default one
	cfg, err = r.Create(ctx, guildID, CreateGuildConfigParams{})
	if err != nil {
		// Handle race condition: another request might have created the row
		cfg, err = r.Get(ctx, guildID)
		if err != nil {
			return nil, false, err
		}
		return cfg, false, nil
	}

	return cfg, true, nil
}

// Exists checks if a guild has a config row.
func (r *GuildConfigRepository) Exists(ctx context.Context, guildID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM uinewconfig WHERE guild_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, guildID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check guild config existence: %w", err)
	}

	return exists, nil
}

// Update applies the non-nil fields of params and returns the updated config.
// Returns ErrGuildConfigNotFound if the guild has no config row.
func (r *GuildConfigRepository) Update(ctx context.Context, guildID int64, params UpdateGuildConfigParams) (*model.GuildConfig, error) {
	const query = `
		UPDATE uinewconfig
		SET bullets_enabled = COALESCE($2, bullets_enabled),
		    investigation_type = COALESCE($3, investigation_type)
		WHERE guild_id = $1
		RETURNING ` + guildConfigColumns

	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query, guildID, params.BulletsEnabled, params.InvestigationType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildConfigNotFound
		}
		return nil, wrapWriteErr(err, "update guild config")
	}

	return cfg, nil
}

// SetBulletChannel sets or unsets (nil) the channel found bullets are
// announced in.
func (r *GuildConfigRepository) SetBulletChannel(ctx context.Context, guildID int64, channelID *int64) (*model.GuildConfig, error) {
	return r.setReference(ctx, guildID, "bullet_chan_id", channelID)
}

// SetBestFinderRole sets or unsets (nil) the best-finder role.
func (r *GuildConfigRepository) SetBestFinderRole(ctx context.Context, guildID int64, roleID *int64) (*model.GuildConfig, error) {
	return r.setReference(ctx, guildID, "best_bullet_finder_role", roleID)
}

// SetPlayerRole sets or unsets (nil) the player role.
func (r *GuildConfigRepository) SetPlayerRole(ctx context.Context, guildID int64, roleID *int64) (*model.GuildConfig, error) {
	return r.setReference(ctx, guildID, "player_role", roleID)
}

func (r *GuildConfigRepository) setReference(ctx context.Context, guildID int64, column string, value *int64) (*model.GuildConfig, error) {
	// column is one of the fixed names above, never caller input.
	query := `
		UPDATE uinewconfig
		SET ` + column + ` = $2
		WHERE guild_id = $1
		RETURNING ` + guildConfigColumns

	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query, guildID, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildConfigNotFound
		}
		return nil, fmt.Errorf("failed to set %s: %w", column, err)
	}

	return cfg, nil
}

// SetNames links (or with nil, unlinks) a naming profile to the guild config.
// Linking a profile already owned by another guild, or one that does not
// exist, fails with ErrConstraintViolation.
func (r *GuildConfigRepository) SetNames(ctx context.Context, guildID int64, namesID *int) (*model.GuildConfig, error) {
	const query = `
		UPDATE uinewconfig
		SET names_id = $2
		WHERE guild_id = $1
		RETURNING ` + guildConfigColumns

	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query, guildID, namesID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildConfigNotFound
		}
		return nil, wrapWriteErr(err, "set naming profile")
	}

	return cfg, nil
}

// EnsureNames returns the guild's naming profile, creating and linking a
// default one if the guild config has none. Creation and linking happen in
// one transaction. Returns ErrGuildConfigNotFound if the guild has no config
// row.
func (r *GuildConfigRepository) EnsureNames(ctx context.Context, guildID int64) (*model.NamingProfile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var namesID *int
	err = tx.QueryRow(ctx, `SELECT names_id FROM uinewconfig WHERE guild_id = $1 FOR UPDATE`, guildID).Scan(&namesID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildConfigNotFound
		}
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	var names model.NamingProfile
	if namesID != nil {
		err = tx.QueryRow(ctx, `SELECT `+namesColumns+` FROM uinames WHERE id = $1`, *namesID).Scan(
			&names.ID,
			&names.SingularBullet,
			&names.PluralBullet,
			&names.SingularFinder,
			&names.PluralFinder,
			&names.BestFinder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get naming profile: %w", err)
		}
		return &names, tx.Commit(ctx)
	}

	err = tx.QueryRow(ctx, `INSERT INTO uinames DEFAULT VALUES RETURNING `+namesColumns).Scan(
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

	if _, err := tx.Exec(ctx, `UPDATE uinewconfig SET names_id = $2 WHERE guild_id = $1`, guildID, names.ID); err != nil {
		return nil, wrapWriteErr(err, "link naming profile")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &names, nil
}

// Delete removes a guild config together with its owned naming profile, if
// any, in one transaction: both rows disappear or neither does. Returns
// ErrGuildConfigNotFound if the guild has no config row.
func (r *GuildConfigRepository) Delete(ctx context.Context, guildID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var namesID *int
	err = tx.QueryRow(ctx, `DELETE FROM uinewconfig WHERE guild_id = $1 RETURNING names_id`, guildID).Scan(&namesID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGuildConfigNotFound
		}
		return fmt.Errorf("failed to delete guild config: %w", err)
	}

	if namesID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM uinames WHERE id = $1`, *namesID); err != nil {
			return fmt.Errorf("failed to delete owned naming profile: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
