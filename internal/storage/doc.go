// Package storage opens the Postgres connection pool and applies the schema.
//
// Connections go through database/sql with the pgx stdlib driver so that
// repositories can be tested with go-sqlmock. Migrations are embedded SQL files
// applied by goose at startup.
package storage
