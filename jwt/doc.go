// Package jwt inspects and mints session access tokens.
//
// [ExpiresAt] reads the exp claim without verifying the signature; session
// stores use it to size TTLs for tokens the client cannot verify. [Manager]
// issues and verifies tokens for servers and test doubles that own the key.
package jwt
