package migrate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortedAndComplete(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.True(t, sort.StringsAreSorted(files), "migrations must apply in lexical order")
	assert.Equal(t, "0001_job_archive.sql", files[0])
}

func TestJobArchiveMigrationMatchesRepoColumns(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/0001_job_archive.sql")
	require.NoError(t, err)

	sql := string(raw)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS job_archive")

	// Every column the archive repository reads and writes.
	for _, col := range []string{
		"id", "state", "payment_id", "payment_status", "execution_backend",
		"execution_meta", "result", "error", "created_at", "updated_at",
	} {
		assert.Contains(t, sql, col)
	}
}
