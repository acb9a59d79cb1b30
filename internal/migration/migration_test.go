package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesDocumentTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_sqlite?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(conn, db.TypeSQLite, zap.NewNop()))
	require.True(t, conn.Migrator().HasTable(&ledgerstore.Document{}))

	// Running again is a no-op.
	require.NoError(t, Migrate(conn, db.TypeSQLite, zap.NewNop()))
}

func TestMigrateRequiresHandle(t *testing.T) {
	require.ErrorIs(t, Migrate(nil, db.TypeSQLite, nil), ErrNoHandle)
	_, err := RunMigrations(nil)
	require.ErrorIs(t, err, ErrNoHandle)
}

func TestEmbeddedMigrationsArePairedDocumentTable(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{migrationsDir + "/000001_ledger_documents.up.sql"}, ups)
	assert.Equal(t, []string{migrationsDir + "/000001_ledger_documents.down.sql"}, downs)

	for _, name := range ups {
		body, err := fs.ReadFile(embeddedMigrations, name)
		require.NoError(t, err)
		assert.NotContains(t, strings.ToLower(string(body)), "payload->>", name)
	}
}
