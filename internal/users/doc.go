// Package users is the account directory: lookup by email, creation, the
// confirmed flag, avatar URL, password digest and the single stored refresh
// token digest per account.
//
// [PostgresDirectory] runs over database/sql with the pgx stdlib driver;
// refresh rotation is one conditional UPDATE whose affected-row count decides
// the winner. [MemoryDirectory] gives the same guarantees under a mutex.
package users
