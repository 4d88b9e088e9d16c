// Package service provides the session token primitives.
package service

// TokenService generates session tokens and derives their storage hash.
type TokenService interface {
	// GenerateToken returns a new random token and its SHA-256 hex hash.
	// The plain token is only ever returned to the client.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken returns the SHA-256 hex hash of a plain token.
	HashToken(plainToken string) string
}

// AdminKeyService hashes and verifies the bearer key of the license admin API.
type AdminKeyService interface {
	// GenerateKey returns a new random admin key and its Argon2id hash.
	GenerateKey() (plainKey string, hashedKey string, err error)

	// HashKey returns the Argon2id hash of a plain admin key.
	HashKey(plainKey string) (string, error)

	// VerifyKey reports whether plainKey matches hashedKey in constant time.
	VerifyKey(plainKey, hashedKey string) bool
}
