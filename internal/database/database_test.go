package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesExistQuery(t *testing.T) {
	sqlite, err := tablesExistQuery(BackendSQLite)
	require.NoError(t, err)
	assert.Contains(t, sqlite, "type='table'")

	pg, err := tablesExistQuery(BackendPostgres)
	require.NoError(t, err)
	assert.Contains(t, pg, "table_type = 'BASE TABLE'",
		"views alone must not mark a schema as initialized")

	_, err = tablesExistQuery(Backend(99))
	require.Error(t, err)
}
