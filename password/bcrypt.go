package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyBcrypt compares a legacy bcrypt hash with a plaintext password. A
// mismatch is (false, nil); only malformed hashes produce an error.
func VerifyBcrypt(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return err == nil, err
}

// IsBcryptHash detects the bcrypt prefixes found in hashes imported from the
// previous system.
func IsBcryptHash(hash string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, p) {
			return true
		}
	}
	return false
}
