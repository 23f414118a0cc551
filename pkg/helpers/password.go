package helpers

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// dummyHash is compared against when a username does not exist so that
// unknown users and wrong passwords take similar time.
var dummyHash, _ = HashPassword("weather-digest-dummy")

// CompareDummy burns one bcrypt comparison and always reports false.
func CompareDummy(plain string) bool {
	_ = CompareHashAndPassword(dummyHash, plain)
	return false
}
