//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хэша пароля к /metrics.
// Запуск: go run scripts/generate_hash.go ваш_пароль
//
// Результат вставьте в .env как METRICS_PASSWORD_HASH.
package main

import (
	"fmt"
	"os"

	"serotonyl.ru/stars-casino/internal/httpapi"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	hash, err := httpapi.HashArgon2id(os.Args[1])
	if err != nil {
		fmt.Printf("Ошибка: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хэш пароля (вставьте в .env как METRICS_PASSWORD_HASH):")
	fmt.Println(hash)
}
