package deposits

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenPrefix = "dep_"

// NewToken генерирует токен пополнения: 24 случайных байта в base64url.
// Влезает в лимит payload счёта Telegram (128 байт).
func NewToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
