package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordLength = errors.New("password must be between 8 and 72 bytes")

// HashPassword создает bcrypt хеш пароля
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash проверяет пароль против хеша
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword - bcrypt молча обрезает все, что длиннее 72 байт
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 72 {
		return ErrPasswordLength
	}
	return nil
}
