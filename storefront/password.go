package storefront

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword accepts passwords of any length. bcrypt only reads 72 bytes,
// so the password is digested first.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(digest(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword compares against a bcrypt hash, or against the stored value
// itself for accounts created before hashing was enabled.
func CheckPassword(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), digest(given)) == nil
	}
	return plainEqual(stored, given)
}

func (c *Client) checkPassword(stored, given string) bool {
	if !c.hashPasswords && plainEqual(stored, given) {
		return true
	}
	return CheckPassword(stored, given)
}

func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func plainEqual(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
