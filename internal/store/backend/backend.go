// Package backend selects a store implementation by driver name.
package backend

import (
	"fmt"

	"notebot/internal/store"
	"notebot/internal/store/filestore"
	"notebot/internal/store/sqlstore"
)

// JSON is the driver name of the single-file store.
const JSON = "json"

// Open returns the store for driver. conn is a file path for JSON and a
// connection string otherwise.
func Open(driver, conn string, opts ...store.Option) (store.Store, error) {
	switch driver {
	case JSON:
		return filestore.Open(conn, opts...)
	case string(sqlstore.SQLite), string(sqlstore.Postgres):
		return sqlstore.New(driver, conn, opts...)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
