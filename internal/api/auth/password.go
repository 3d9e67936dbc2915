package auth

import "golang.org/x/crypto/bcrypt"

// dummyPasswordHash is compared against when the username does not exist,
// so a login attempt costs the same whether or not the account is real.
// It is a syntactically valid bcrypt hash that matches no password.
const dummyPasswordHash = "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"

// HashPassword derives the bcrypt hash stored in the users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
