package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrorDump flattens an error chain for the request.error log entry.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	// Store fields are set when a database driver error sits in the chain.
	Driver       string `json:"db_driver,omitempty"`
	StoreCode    string `json:"db_code,omitempty"`
	Constraint   string `json:"db_constraint,omitempty"`
	Table        string `json:"db_table,omitempty"`
	Column       string `json:"db_column,omitempty"`
	Detail       string `json:"db_detail,omitempty"`
	StoreMessage string `json:"db_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.HTTPStatus = te.HTTPStatus()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.Driver = DriverPostgres
		d.StoreCode = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.StoreMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.Driver = DriverPostgres
		d.StoreCode = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.StoreMessage = pqErr.Message
		return d
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		d.Driver = DriverSQLite
		d.StoreCode = strconv.Itoa(int(liteErr.ExtendedCode))
		d.StoreMessage = liteErr.Error()
		d.Detail = liteErr.Code.Error()
		if liteErr.Code == sqlite3.ErrConstraint {
			d.Constraint, d.Table, d.Column = sqliteConstraint(d.StoreMessage)
		}
	}

	return d
}

// Fields renders the dump as log fields, leaving out empty store fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Retryable {
		fields["retryable"] = true
	}
	if d.Driver == "" {
		return fields
	}
	fields["db_driver"] = d.Driver
	fields["db_code"] = d.StoreCode
	fields["db_message"] = d.StoreMessage
	for key, value := range map[string]string{
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

// sqliteConstraint splits messages such as
// "UNIQUE constraint failed: inventory.product_id" and
// "CHECK constraint failed: chk_inventory_quantity".
func sqliteConstraint(msg string) (constraint, table, column string) {
	kind, target, ok := strings.Cut(msg, " constraint failed: ")
	if !ok {
		return "", "", ""
	}
	target = strings.TrimSpace(target)
	if kind == "CHECK" {
		return target, "", ""
	}
	// a composite key lists every column; the first names the table
	first, _, _ := strings.Cut(target, ",")
	if tbl, col, found := strings.Cut(strings.TrimSpace(first), "."); found {
		return "", tbl, col
	}
	return "", "", target
}
