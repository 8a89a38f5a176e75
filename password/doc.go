// Package password implements the credential hasher: Argon2id hashing with
// constant-time verification, plus verification of legacy bcrypt digests.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Digests written by the previous deployment use bcrypt ($2a$, $2b$, $2y$).
// They still verify, and [Hasher.NeedsUpgrade] reports true for them so the
// caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Length bounds on user input
// are enforced at the HTTP boundary; [Config.MinLength] is a last guard.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive digests.
//   - Import any other goContacts package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
