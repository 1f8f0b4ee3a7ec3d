//go:build integration

package repository

// Run with: go test -tags integration ./repository/...

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"calmatevibes-api/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcMongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

func startMongo(t *testing.T) *database.Mongo {
	t.Helper()
	ctx := context.Background()

	c, err := tcMongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	uri, err := c.ConnectionString(ctx)
	require.NoError(t, err)

	m, err := database.Connect(ctx, uri, "calmatevibes_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Disconnect(context.Background()) })
	return m
}

func TestMongoRepositories(t *testing.T) {
	m := startMongo(t)
	ctx := context.Background()
	var n atomic.Int32

	// every product subtest gets its own database
	freshDB := func(t *testing.T) *mongo.Database {
		db := m.Client.Database(fmt.Sprintf("calmatevibes_test_%d", n.Add(1)))
		require.NoError(t, EnsureMongoIndexes(ctx, db))
		return db
	}

	runProductRepositorySuite(t, func(t *testing.T) ProductRepository {
		return NewMongoProductRepository(freshDB(t))
	})
	t.Run("categories", func(t *testing.T) { runCategoryRepositorySuite(t, NewMongoCategoryRepository(freshDB(t))) })
	t.Run("movements", func(t *testing.T) { runMovementRepositorySuite(t, NewMongoMovementRepository(freshDB(t))) })
	t.Run("users", func(t *testing.T) { runUserRepositorySuite(t, NewMongoUserRepository(freshDB(t))) })

	t.Run("product indexes", func(t *testing.T) {
		db := freshDB(t)
		cur, err := db.Collection(database.ProductsCollection).Indexes().List(ctx)
		require.NoError(t, err)
		var specs []bson.M
		require.NoError(t, cur.All(ctx, &specs))

		var got []string
		for _, spec := range specs {
			got = append(got, spec["name"].(string))
			_, hasText := spec["weights"]
			require.False(t, hasText, "search uses regex, no text index expected: %v", spec["name"])
		}
		require.Contains(t, got, "uniq_active_name")
	})
}

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	c, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("calmatevibes_test"),
		tcPostgres.WithUsername("calmate"),
		tcPostgres.WithPassword("calmate"),
		tcPostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.ClosePostgres(db) })
	require.NoError(t, MigrateGorm(db))
	return db
}

func TestGormRepositories(t *testing.T) {
	db := startPostgres(t)

	truncate := func(t *testing.T) {
		require.NoError(t, db.Exec("TRUNCATE products, categories, stock_movements, users").Error)
	}

	runProductRepositorySuite(t, func(t *testing.T) ProductRepository {
		truncate(t)
		return NewGormProductRepository(db)
	})
	t.Run("categories", func(t *testing.T) {
		truncate(t)
		runCategoryRepositorySuite(t, NewGormCategoryRepository(db))
	})
	t.Run("movements", func(t *testing.T) {
		truncate(t)
		runMovementRepositorySuite(t, NewGormMovementRepository(db))
	})
	t.Run("users", func(t *testing.T) {
		truncate(t)
		runUserRepositorySuite(t, NewGormUserRepository(db))
	})
}
