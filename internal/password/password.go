package password

import "golang.org/x/crypto/bcrypt"

// Hash generates a bcrypt hash with a fresh random salt. Hashing the same
// plaintext twice yields different outputs.
func Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. The comparison is
// constant-time; malformed hashes return false rather than an error.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
