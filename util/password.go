package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

var (
	passwordSecret = []byte(getEnv("PASSWORD_SECRET", ""))
	passwordMutex  sync.RWMutex
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// HashPassword returns the hex HMAC-SHA256 digest of password keyed with the password secret.
func HashPassword(password string) (hashedPassword string) {
	h := hmac.New(sha256.New, GetPasswordSecret())
	h.Write([]byte(password))
	hashedPassword = hex.EncodeToString(h.Sum(nil))
	return
}

// VerifyPassword compares password against a stored digest in constant time.
func VerifyPassword(password, hashed string) bool {
	return hmac.Equal([]byte(HashPassword(password)), []byte(hashed))
}

// SetPasswordSecret updates the key used for password hashing. Tests using this
// should avoid parallel execution if they need deterministic digests.
func SetPasswordSecret(secret string) {
	passwordMutex.Lock()
	defer passwordMutex.Unlock()
	passwordSecret = []byte(secret)
}

// GetPasswordSecret returns a copy of the current secret.
func GetPasswordSecret() []byte {
	passwordMutex.RLock()
	defer passwordMutex.RUnlock()
	return append([]byte(nil), passwordSecret...)
}
