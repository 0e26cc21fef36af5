// Package auth provides the identity primitives of estatehub: the authenticated
// Actor, session tokens, password hashing and integration API keys.
//
// # Session Tokens
//
// SessionCodec issues and verifies HS256-signed JWTs carrying the actor's
// identity claims:
//
//	codec, err := auth.NewSessionCodec(secret, "estatehub", 24*time.Hour)
//	token, expiresAt, err := codec.Issue(actor)
//	actor, err := codec.Verify(token)
//
// Verify pins the signing algorithm and issuer and requires an expiry. Every
// failure (missing, malformed, expired, foreign) is an AUTHENTICATION_ERROR.
//
// # Passwords
//
// PasswordHasher wraps bcrypt. Passwords shorter than MinPasswordLength are
// rejected with a validation error before hashing.
//
// # Integration Keys
//
// KeyGenerator creates API keys for external-system links:
//
//	key, keyHash, keyPrefix, err := auth.NewKeyGenerator().GenerateKey()
//	// key:       ehk_xxx (shown once)
//	// keyHash:   SHA256(key), stored
//	// keyPrefix: ehk_ + first 8 chars, stored for display
//
// # Related Packages
//
//   - pkg/rbac: Role hierarchy
//   - pkg/middleware: HTTP authentication middleware
//   - pkg/users: Login flow built on these primitives
package auth
