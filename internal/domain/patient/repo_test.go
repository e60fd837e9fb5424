package patient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/db"
)

// runRepositoryContract exercises the behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		repo := newRepo(t)
		r := validRecord("Asha")
		r.ID = uuid.NewString()
		r.CreatedAt = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, r))

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Demographics, got.Demographics)
		assert.Equal(t, r.Symptoms, got.Symptoms)
		assert.Equal(t, r.AffectedJoints, got.AffectedJoints)
		assert.Equal(t, r.Labs, got.Labs)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := newRepo(t)
		r := validRecord("Asha")
		r.ID = uuid.NewString()
		require.NoError(t, repo.Save(ctx, r))

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		got.Demographics.Name = "changed"

		again, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha", again.Demographics.Name)
	})

	t.Run("list most recently saved first", func(t *testing.T) {
		repo := newRepo(t)
		var ids []string
		for _, name := range []string{"A", "B", "C"} {
			r := validRecord(name)
			r.ID = uuid.NewString()
			ids = append(ids, r.ID)
			require.NoError(t, repo.Save(ctx, r))
			time.Sleep(2 * time.Millisecond)
		}

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	})

	t.Run("upsert replaces whole record", func(t *testing.T) {
		repo := newRepo(t)
		r := validRecord("Asha")
		r.ID = uuid.NewString()
		require.NoError(t, repo.Save(ctx, r))

		r.Demographics.Name = "Asha K"
		r.AffectedJoints = []Joint{JointHip}
		require.NoError(t, repo.Save(ctx, r))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Asha K", all[0].Demographics.Name)
		assert.Equal(t, []Joint{JointHip}, all[0].AffectedJoints)
	})

	t.Run("delete many and clear", func(t *testing.T) {
		repo := newRepo(t)
		var ids []string
		for _, name := range []string{"A", "B", "C"} {
			r := validRecord(name)
			r.ID = uuid.NewString()
			ids = append(ids, r.ID)
			require.NoError(t, repo.Save(ctx, r))
		}

		require.NoError(t, repo.DeleteMany(ctx, []string{ids[0], ids[2], uuid.NewString()}))
		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ids[1], all[0].ID)

		require.NoError(t, repo.Delete(ctx, ids[1]))
		_, err = repo.Get(ctx, ids[1])
		assert.ErrorIs(t, err, ErrNotFound)

		r := validRecord("D")
		r.ID = uuid.NewString()
		require.NoError(t, repo.Save(ctx, r))
		require.NoError(t, repo.Clear(ctx))
		all, err = repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("size tracks contents", func(t *testing.T) {
		repo := newRepo(t)
		size, err := repo.Size(ctx)
		require.NoError(t, err)
		assert.Zero(t, size)

		r := validRecord("Asha")
		r.ID = uuid.NewString()
		require.NoError(t, repo.Save(ctx, r))

		size, err = repo.Size(ctx)
		require.NoError(t, err)
		assert.Greater(t, size, int64(0))
	})
}

func TestMemoryRepo(t *testing.T) {
	runRepositoryContract(t, func(*testing.T) Repository { return NewMemoryRepo() })
}

func TestRedisRepo(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	runRepositoryContract(t, func(t *testing.T) Repository {
		repo := NewRedisRepo(client, "test_"+uuid.NewString())
		t.Cleanup(func() { repo.Clear(context.Background()) })
		return repo
	})
}

func TestRepoPG(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.NewMigrator(pool, db.Migrations()).Up(ctx)
	require.NoError(t, err)

	runRepositoryContract(t, func(t *testing.T) Repository {
		repo := NewRepoPG(pool)
		require.NoError(t, repo.Clear(ctx))
		return repo
	})
}
