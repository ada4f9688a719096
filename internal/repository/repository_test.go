// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"investigation-store/internal/config"
	"investigation-store/internal/model"
	"investigation-store/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, applies the schema and returns
// a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*db.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	// Create PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Create connection pool through the same path production uses
	pool, err := db.NewPool(ctx, &config.DatabaseConfig{URL: connStr, PoolSize: 4})
	require.NoError(t, err)

	// Apply schema
	err = pool.EnsureSchema(ctx)
	require.NoError(t, err)

	// Return cleanup function
	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// ============================================================================
// NamesRepository Tests
// ============================================================================

func TestNamesRepository_CreateDefaults(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNamesRepository(pool.Pool)
	ctx := context.Background()

	// Empty params take the stock vocabulary
	names, err := repo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)
	assert.NotZero(t, names.ID)
	assert.Equal(t, model.DefaultSingularBullet, names.SingularBullet)
	assert.Equal(t, model.DefaultPluralBullet, names.PluralBullet)
	assert.Equal(t, model.DefaultSingularFinder, names.SingularFinder)
	assert.Equal(t, model.DefaultPluralFinder, names.PluralFinder)
	assert.Equal(t, model.DefaultBestFinder, names.BestFinder)
}

func TestNamesRepository_CreateOverrides(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNamesRepository(pool.Pool)
	ctx := context.Background()

	names, err := repo.Create(ctx, CreateNamesParams{
		SingularBullet: "Clue",
		PluralBullet:   "Clues",
	})
	require.NoError(t, err)
	assert.Equal(t, "Clue", names.SingularBullet)
	assert.Equal(t, "Clues", names.PluralBullet)
	// Omitted fields still default
	assert.Equal(t, model.DefaultSingularFinder, names.SingularFinder)
	assert.Equal(t, model.DefaultBestFinder, names.BestFinder)
}

func TestNamesRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNamesRepository(pool.Pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	names, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, names)

	// Non-existent profile
	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrNamesNotFound)
}

func TestNamesRepository_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNamesRepository(pool.Pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	singular := "Evidence"
	names, err := repo.Update(ctx, created.ID, UpdateNamesParams{SingularBullet: &singular})
	require.NoError(t, err)
	assert.Equal(t, "Evidence", names.SingularBullet)
	// Unchanged fields survive a partial update
	assert.Equal(t, model.DefaultPluralBullet, names.PluralBullet)
	assert.Equal(t, model.DefaultBestFinder, names.BestFinder)

	// Non-existent profile
	_, err = repo.Update(ctx, 99999, UpdateNamesParams{SingularBullet: &singular})
	assert.ErrorIs(t, err, ErrNamesNotFound)
}

func TestNamesRepository_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNamesRepository(pool.Pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNamesNotFound)

	// Deleting again reports not found
	err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNamesNotFound)
}

// Deleting a profile directly must leave the referencing guild config in
// place with the reference cleared.
func TestNamesRepository_DeleteClearsConfigReference(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	namesRepo := NewNamesRepository(pool.Pool)
	configRepo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	names, err := namesRepo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	_, err = configRepo.Create(ctx, 100, CreateGuildConfigParams{NamesID: &names.ID})
	require.NoError(t, err)

	err = namesRepo.Delete(ctx, names.ID)
	require.NoError(t, err)

	cfg, err := configRepo.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, cfg.NamesID)
}

// ============================================================================
// GuildConfigRepository Tests
// ============================================================================

func TestGuildConfigRepository_CreateDefaults(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	cfg, err := repo.Create(ctx, 200, CreateGuildConfigParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(200), cfg.GuildID)
	assert.False(t, cfg.BulletsEnabled)
	assert.Equal(t, model.InvestigationDefault, cfg.InvestigationType)
	assert.Nil(t, cfg.BulletChannelID)
	assert.Nil(t, cfg.BestFinderRoleID)
	assert.Nil(t, cfg.PlayerRoleID)
	assert.Nil(t, cfg.NamesID)
}

func TestGuildConfigRepository_CreateDuplicateGuild(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 201, CreateGuildConfigParams{})
	require.NoError(t, err)

	_, err = repo.Create(ctx, 201, CreateGuildConfigParams{})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestGuildConfigRepository_NamesOwnership(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	namesRepo := NewNamesRepository(pool.Pool)
	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	names, err := namesRepo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	_, err = repo.Create(ctx, 202, CreateGuildConfigParams{NamesID: &names.ID})
	require.NoError(t, err)

	// A second guild cannot claim the same profile
	_, err = repo.Create(ctx, 203, CreateGuildConfigParams{NamesID: &names.ID})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// Linking a non-existent profile is a constraint breach, not a crash
	missing := 99999
	_, err = repo.Create(ctx, 204, CreateGuildConfigParams{NamesID: &missing})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestGuildConfigRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	cfg, created, err := repo.GetOrCreate(ctx, 205)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(205), cfg.GuildID)

	cfg, created, err = repo.GetOrCreate(ctx, 205)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(205), cfg.GuildID)
}

func TestGuildConfigRepository_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 206, CreateGuildConfigParams{})
	require.NoError(t, err)

	enabled := true
	mode := model.InvestigationCommandOnly
	cfg, err := repo.Update(ctx, 206, UpdateGuildConfigParams{
		BulletsEnabled:    &enabled,
		InvestigationType: &mode,
	})
	require.NoError(t, err)
	assert.True(t, cfg.BulletsEnabled)
	assert.Equal(t, model.InvestigationCommandOnly, cfg.InvestigationType)

	// Partial update leaves the other field alone
	disabled := false
	cfg, err = repo.Update(ctx, 206, UpdateGuildConfigParams{BulletsEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, cfg.BulletsEnabled)
	assert.Equal(t, model.InvestigationCommandOnly, cfg.InvestigationType)

	// Non-existent guild
	_, err = repo.Update(ctx, 99999, UpdateGuildConfigParams{BulletsEnabled: &enabled})
	assert.ErrorIs(t, err, ErrGuildConfigNotFound)
}

func TestGuildConfigRepository_SetReferences(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 207, CreateGuildConfigParams{})
	require.NoError(t, err)

	channel := int64(424242)
	cfg, err := repo.SetBulletChannel(ctx, 207, &channel)
	require.NoError(t, err)
	require.NotNil(t, cfg.BulletChannelID)
	assert.Equal(t, channel, *cfg.BulletChannelID)

	role := int64(111)
	cfg, err = repo.SetPlayerRole(ctx, 207, &role)
	require.NoError(t, err)
	require.NotNil(t, cfg.PlayerRoleID)
	assert.Equal(t, role, *cfg.PlayerRoleID)

	cfg, err = repo.SetBestFinderRole(ctx, 207, &role)
	require.NoError(t, err)
	require.NotNil(t, cfg.BestFinderRoleID)

	// Unset
	cfg, err = repo.SetBulletChannel(ctx, 207, nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.BulletChannelID)
	assert.NotNil(t, cfg.PlayerRoleID) // other references untouched
}

func TestGuildConfigRepository_EnsureNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	// No config row yet
	_, err := repo.EnsureNames(ctx, 208)
	assert.ErrorIs(t, err, ErrGuildConfigNotFound)

	_, err = repo.Create(ctx, 208, CreateGuildConfigParams{})
	require.NoError(t, err)

	names, err := repo.EnsureNames(ctx, 208)
	require.NoError(t, err)
	assert.NotZero(t, names.ID)
	assert.Equal(t, model.DefaultSingularBullet, names.SingularBullet)

	// Idempotent: the same profile comes back
	again, err := repo.EnsureNames(ctx, 208)
	require.NoError(t, err)
	assert.Equal(t, names.ID, again.ID)

	cfg, err := repo.Get(ctx, 208)
	require.NoError(t, err)
	require.NotNil(t, cfg.NamesID)
	assert.Equal(t, names.ID, *cfg.NamesID)
}

func TestGuildConfigRepository_DeleteCascadesNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	namesRepo := NewNamesRepository(pool.Pool)
	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	names, err := namesRepo.Create(ctx, CreateNamesParams{})
	require.NoError(t, err)

	_, err = repo.Create(ctx, 209, CreateGuildConfigParams{NamesID: &names.ID})
	require.NoError(t, err)

	err = repo.Delete(ctx, 209)
	require.NoError(t, err)

	// Both rows are gone
	_, err = repo.Get(ctx, 209)
	assert.ErrorIs(t, err, ErrGuildConfigNotFound)
	_, err = namesRepo.GetByID(ctx, names.ID)
	assert.ErrorIs(t, err, ErrNamesNotFound)
}

func TestGuildConfigRepository_DeleteWithoutNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 210, CreateGuildConfigParams{})
	require.NoError(t, err)

	err = repo.Delete(ctx, 210)
	require.NoError(t, err)

	_, err = repo.Get(ctx, 210)
	assert.ErrorIs(t, err, ErrGuildConfigNotFound)
}

func TestGuildConfigRepository_DeleteNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	err := repo.Delete(ctx, 99999)
	assert.ErrorIs(t, err, ErrGuildConfigNotFound)
}

func TestGuildConfigRepository_Exists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGuildConfigRepository(pool.Pool)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, 211)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Create(ctx, 211, CreateGuildConfigParams{})
	require.NoError(t, err)

	exists, err = repo.Exists(ctx, 211)
	require.NoError(t, err)
	assert.True(t, exists)
}
