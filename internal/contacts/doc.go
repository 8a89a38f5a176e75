// Package contacts stores the address book of each account. Every operation
// is scoped to an owner id; a contact owned by someone else is reported as
// not found.
package contacts
