package persistence

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations("postgres://test", "")
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations("", "migrations/postgres")
		assert.EqualError(t, err, "database URL cannot be empty")
	})
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file://migrations/postgres", sourceURL("migrations/postgres"))
	assert.Equal(t, "file:///srv/migrations", sourceURL("/srv/migrations"))
	assert.Equal(t, "file://./migrations", sourceURL("file://./migrations"))
}

func TestMigrationsDirectory_Loads(t *testing.T) {
	src, err := (&file.File{}).Open("file://../../../migrations/postgres")
	require.NoError(t, err, "every migration version must appear once")
	defer func() {
		_ = src.Close()
	}()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	_, err = src.Next(first)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "the schema ships as a single migration")

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	ddl, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(ddl), "fee_amount > 0")
	assert.Equal(t, 1, strings.Count(string(ddl), "CREATE TRIGGER"))

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	_ = down.Close()
}

