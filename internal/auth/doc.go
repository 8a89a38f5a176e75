// Package auth is the token service: registration, login, refresh rotation,
// access-token authentication, email confirmation and logout.
//
// # Refresh rotation
//
// Each account holds at most one refresh token, stored as a SHA-256 digest in
// the [Directory]. [Service.Refresh] swaps the stored digest from the
// presented token to the newly issued one in a single compare-and-swap. When N
// callers race with the same token exactly one wins; the rest get
// [ErrRevoked]. With Config.RevokeOnReuse a losing caller also clears the
// stored digest, ending the session for every holder.
//
// # Error surface
//
// Login answers [ErrInvalidCredentials] for both unknown email and wrong
// password. Authenticate collapses every token failure to [ErrUnauthorized]
// and logs the concrete reason at debug level only.
//
// # What this package must NOT do
//
//   - Speak HTTP. The middleware and httpapi packages own status codes.
//   - Trust identity from anything but a verified token.
package auth
