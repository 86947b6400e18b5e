package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

var (
	jwtMutex      sync.RWMutex
	jwtSecret     = envOrDefault("JWTSECRET", "")
	jwtSecretByte = []byte(jwtSecret)
)

func envOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// HashPassword returns the hex-encoded HMAC-SHA256 of the password keyed
// with the JWT secret. The same secret backs token signing, so rotating it
// invalidates both stored password hashes and outstanding sessions.
func HashPassword(password string) string {
	h := hmac.New(sha256.New, GetJWTSecretByte())
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// SetJWTSecret replaces the secret at runtime. Tests that depend on a
// specific secret must not run in parallel with each other.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecret = secret
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current secret bytes.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}
