// Package httpapi is the echo HTTP surface of the service: the auth routes,
// the account profile, the address book, health and metrics.
//
// Every route is rate limited under its own route id. Routes that need an
// account also run the bearer token check, after the rate limit. Errors from
// the services are turned into responses in one place, writeError.
package httpapi
