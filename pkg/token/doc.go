// Package token provides session token generation and hashing.
//
// Token format:
//
//   - Prefix: grs_ (4 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes (32 bytes)
//   - Total: 47 characters
//
// Tokens are only ever handed to clients. Stores key records by
// Hasher.Sum(token), a BLAKE2b-256 digest that may be keyed with a server
// secret so that a dump of the store cannot be replayed as cookies.
package token
