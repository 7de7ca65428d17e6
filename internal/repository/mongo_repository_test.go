package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoConfig{URI: uri, Database: "testdb", MaxPoolSize: 10, MinPoolSize: 1})
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx, 24*time.Hour))

	cleanup := func() {
		if err := db.Client().Disconnect(ctx); err != nil {
			t.Logf("failed to disconnect: %s", err)
		}
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestMongoGetCart_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	lines, err := repo.GetCart(context.Background(), CartKey("nonexistent"))

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, lines)
}

func TestMongoSaveCart_ReplacesSlot(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	key := CartKey("user123")

	require.NoError(t, repo.SaveCart(ctx, key, sampleLines()))
	require.NoError(t, repo.SaveCart(ctx, key, sampleLines()[:1]))

	lines, err := repo.GetCart(ctx, key)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Mug", lines[0].Name)
}

func TestMongoDeleteCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	key := WishlistKey("user123")
	require.NoError(t, repo.SaveCart(ctx, key, sampleLines()))

	require.NoError(t, repo.DeleteCart(ctx, key))

	_, err := repo.GetCart(ctx, key)
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, repo.DeleteCart(ctx, key), ErrCartNotFound)
}
