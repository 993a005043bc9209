package auth

import (
	"github.com/yukikurage/task-realtime-api/internal/constants"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes with the given cost, falling back to the default application cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = constants.BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
