package pg

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ringauth/internal/store"
	migrations "github.com/dropDatabas3/ringauth/migrations/postgres"
)

func TestParseMigrations_Embedded(t *testing.T) {
	migs, err := ParseMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "app_user", migs[0].Name)
	assert.Contains(t, migs[0].SQL, "app_user")
}

func TestParseMigrations_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"0010_late.sql":  {Data: []byte("SELECT 10")},
		"0002_mid.sql":   {Data: []byte("SELECT 2")},
		"README.md":      {Data: []byte("ignored")},
		"0001_first.sql": {Data: []byte("SELECT 1")},
	}
	migs, err := ParseMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migs, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{migs[0].Version, migs[1].Version, migs[2].Version})
}

func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN no seteado")
	}
	ctx := context.Background()
	s, err := New(ctx, store.Config{DSN: dsn, Migrate: true})
	require.NoError(t, err)
	defer s.Close()

	name := "it-" + uuid.NewString()[:8]
	id, err := s.Insert(ctx, &store.User{Username: name, PasswordHash: "x"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, &store.User{Username: name, PasswordHash: "y"})
	require.ErrorIs(t, err, store.ErrConflict)

	u, err := s.FindByUsername(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	require.NoError(t, s.Delete(ctx, id))
	require.ErrorIs(t, s.Delete(ctx, id), store.ErrNotFound)
	_, err = s.FindByUsername(ctx, name)
	require.ErrorIs(t, err, store.ErrNotFound)
}
