package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// APIKeyPrefix identifies estatehub integration keys
	APIKeyPrefix = "ehk_"
	// APIKeyLength is the total length of random bytes (32 bytes = 256 bits)
	APIKeyLength = 32
)

// KeyGenerator generates and validates integration API keys
type KeyGenerator struct{}

// NewKeyGenerator creates a new key generator
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// GenerateKey creates a new API key
// Format: ehk_<base64url(32 random bytes)>
func (g *KeyGenerator) GenerateKey() (key string, keyHash string, keyPrefix string, err error) {
	randomBytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullKey := APIKeyPrefix + encoded

	return fullKey, g.HashKey(fullKey), g.ExtractPrefix(fullKey), nil
}

// HashKey computes the SHA256 hash of a key for storage and lookup
func (g *KeyGenerator) HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ValidateKeyFormat checks if a key has the correct format
func (g *KeyGenerator) ValidateKeyFormat(key string) error {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return fmt.Errorf("key must start with %q", APIKeyPrefix)
	}

	encodedPart := strings.TrimPrefix(key, APIKeyPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("key is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}

	return nil
}

// MatchKey reports whether key hashes to keyHash, in constant time
func (g *KeyGenerator) MatchKey(key, keyHash string) bool {
	return subtle.ConstantTimeCompare([]byte(g.HashKey(key)), []byte(keyHash)) == 1
}

// ExtractPrefix extracts the display prefix (first 8 chars after "ehk_")
func (g *KeyGenerator) ExtractPrefix(key string) string {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return ""
	}

	encodedPart := strings.TrimPrefix(key, APIKeyPrefix)
	if len(encodedPart) >= 8 {
		return APIKeyPrefix + encodedPart[:8]
	}

	return key
}
