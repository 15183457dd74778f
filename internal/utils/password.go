package utils

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for ADMIN_PASSWORD_HASH when
// BCRYPT_COST is unset.  grqctl uses it as the --cost default.
const DefaultBcryptCost = 12

// ErrBcryptCost is returned for a cost outside bcrypt's accepted range.
var ErrBcryptCost = fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)

// HashPassword hashes the admin password for ADMIN_PASSWORD_HASH.  cost is
// Config.BcryptCost on the server side and the --cost flag in grqctl.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", ErrBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks plain against a stored hash.  The hash usually comes
// from an env file, so surrounding whitespace is ignored.
func VerifyPassword(hash, plain string) bool {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
