package storage

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testDB struct {
	db *gorm.DB
}

func (t testDB) DB(ctx context.Context, _ bool) *gorm.DB {
	return t.db.WithContext(ctx)
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewRepository(testDB{db: db})
	require.NoError(t, repo.Migrate(t.Context()))
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Save(t.Context(), 7, sampleRecords()))

	got, err := repo.Load(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestRepositorySaveReplaces(t *testing.T) {
	repo := newTestRepository(t)
	recs := sampleRecords()

	require.NoError(t, repo.Save(t.Context(), 7, recs))
	require.NoError(t, repo.Save(t.Context(), 7, recs[1:]))

	got, err := repo.Load(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, recs[1:], got)
}

func TestRepositoryMissingGuild(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Load(t.Context(), 1)
	assert.ErrorIs(t, err, ErrNoBackup)

	require.NoError(t, repo.Save(t.Context(), 1, sampleRecords()))
	require.NoError(t, repo.Save(t.Context(), 1, nil))
	_, err = repo.Load(t.Context(), 1)
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestRepositoryGuilds(t *testing.T) {
	repo := newTestRepository(t)

	for _, id := range []uint64{30, 10, 20} {
		require.NoError(t, repo.Save(t.Context(), id, sampleRecords()))
	}

	ids, err := repo.Guilds(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, ids)
}

func TestIDListScan(t *testing.T) {
	var l IDList
	require.NoError(t, l.Scan([]byte("[1,2]")))
	assert.Equal(t, IDList{1, 2}, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))
}
