// Package middleware adapts the rate limiter and the token service to echo.
//
// # Pipeline
//
// Protected routes run [ClientIP], then [RateLimit], then [RequireAuth]:
//
//   - [ClientIP] records the caller address on the request context.
//   - [RateLimit] admits the request against the route policy, keyed by the
//     identity already on the context or else the client address. A denial
//     is a 429 with Retry-After; a store failure the limiter could not
//     resolve is a 503.
//   - [RequireAuth] reads the bearer token, asks the token service for the
//     identity and stores it on the context. Every failure is the same 401.
//
// Handlers read the identity with [Identity] or [IdentityFromContext].
//
// This package decides nothing itself. Limits come from the limiter and token
// validity from the token service.
package middleware
