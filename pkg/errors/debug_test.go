package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDumpNil(t *testing.T) {
	require.Equal(t, ErrorDump{}, Dump(nil))
}

func TestDumpTypedChain(t *testing.T) {
	err := fmt.Errorf("purchase: %w", New(CodeCatalogDown, "Product service is unavailable"))
	d := Dump(err)

	require.Equal(t, CodeCatalogDown, d.Code)
	require.Equal(t, 500, d.HTTPStatus)
	require.True(t, d.Retryable)
	require.Len(t, d.Chain, 2)
	require.Empty(t, d.Driver)

	fields := d.Fields()
	require.Equal(t, CodeCatalogDown, fields["error_code"])
	require.NotContains(t, fields, "db_driver")
}

func TestDumpPostgresErrors(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_inventory_product_id", TableName: "inventory", Detail: "Key (product_id)=(7) already exists."}
	d := Dump(Wrap(CodeInternal, pgxErr, "save inventory"))
	require.Equal(t, DriverPostgres, d.Driver)
	require.Equal(t, "23505", d.StoreCode)
	require.Equal(t, "idx_inventory_product_id", d.Constraint)
	require.Equal(t, "inventory", d.Table)

	pqErr := &pq.Error{Code: "23514", Constraint: "chk_inventory_quantity", Table: "inventory"}
	d = Dump(fmt.Errorf("decrement: %w", pqErr))
	require.Equal(t, DriverPostgres, d.Driver)
	require.Equal(t, "23514", d.StoreCode)
	require.Equal(t, "chk_inventory_quantity", d.Constraint)
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec(`CREATE TABLE inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL UNIQUE,
		quantity INTEGER NOT NULL CONSTRAINT chk_inventory_quantity CHECK (quantity >= 0)
	)`).Error)
	return db
}

func TestDumpSQLiteUniqueViolation(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.Exec("INSERT INTO inventory (product_id, quantity) VALUES (7, 1)").Error)
	err := db.Exec("INSERT INTO inventory (product_id, quantity) VALUES (7, 2)").Error
	require.Error(t, err)

	d := Dump(Wrap(CodeInternal, err, "save inventory"))
	require.Equal(t, DriverSQLite, d.Driver)
	require.Equal(t, "2067", d.StoreCode)
	require.Equal(t, "inventory", d.Table)
	require.Equal(t, "product_id", d.Column)
	require.Empty(t, d.Constraint)

	fields := d.Fields()
	require.Equal(t, "sqlite", fields["db_driver"])
	require.Equal(t, "product_id", fields["db_column"])
	require.NotContains(t, fields, "db_constraint")
}

func TestDumpSQLiteCheckViolation(t *testing.T) {
	db := openSQLite(t)
	err := db.Exec("INSERT INTO inventory (product_id, quantity) VALUES (8, -1)").Error
	require.Error(t, err)

	d := Dump(err)
	require.Equal(t, DriverSQLite, d.Driver)
	require.Equal(t, "275", d.StoreCode)
	require.Equal(t, "chk_inventory_quantity", d.Constraint)
}

func TestSQLiteConstraintParsing(t *testing.T) {
	tests := []struct {
		msg                       string
		constraint, table, column string
	}{
		{"UNIQUE constraint failed: inventory.product_id", "", "inventory", "product_id"},
		{"UNIQUE constraint failed: inventory.product_id, inventory.sku", "", "inventory", "product_id"},
		{"CHECK constraint failed: chk_inventory_quantity", "chk_inventory_quantity", "", ""},
		{"NOT NULL constraint failed: inventory.quantity", "", "inventory", "quantity"},
		{"database is locked", "", "", ""},
	}
	for _, tt := range tests {
		constraint, table, column := sqliteConstraint(tt.msg)
		require.Equal(t, tt.constraint, constraint, tt.msg)
		require.Equal(t, tt.table, table, tt.msg)
		require.Equal(t, tt.column, column, tt.msg)
	}
}
