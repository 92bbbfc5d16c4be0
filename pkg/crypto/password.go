package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12
	// APIKeyPrefix starts every issued key
	APIKeyPrefix = "sk_"
	// apiKeyRandomBytes is the entropy appended after the timestamp
	apiKeyRandomBytes = 16
)

var (
	bcryptGenerateFromPassword = bcrypt.GenerateFromPassword
	randomRead                 = rand.Read
	nowFunc                    = time.Now
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcryptGenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateRandomToken generates a random token of specified length
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateAPIKey issues a key shaped sk_<unix millis base36>_<32 hex chars>
func GenerateAPIKey() (string, error) {
	random, err := GenerateRandomToken(apiKeyRandomBytes)
	if err != nil {
		return "", err
	}
	ts := strconv.FormatInt(nowFunc().UnixMilli(), 36)
	return APIKeyPrefix + ts + "_" + random, nil
}

// ConstantTimeEqual compares two secrets without leaking where they differ
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
