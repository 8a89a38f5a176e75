// Package token encodes and decodes the signed, expiring tokens used by the
// service: access tokens, refresh tokens and email-confirmation tokens.
//
// Tokens are HS256 JWTs carrying the subject identity, a purpose tag (the
// "scope" claim), issued-at, expires-at and a random token id. Times have
// second precision.
//
// # Decode order
//
// [Codec.Decode] verifies the signature before reading any claim, then checks
// expiry against the injected clock, then checks the purpose. Each step has
// its own sentinel error; callers that face the network collapse them.
//
// # What this package must NOT do
//
//   - Touch storage or the network. Decode is a pure function of the token
//     string and the clock.
//   - Accept tokens signed with any key other than the configured secret.
package token
