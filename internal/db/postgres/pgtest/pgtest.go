// Package pgtest поднимает изолированную базу для интеграционных тестов.
// Тесты запускаются только при заданном TEST_DATABASE_DSN, иначе пропускаются.
package pgtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/stars-casino/internal/db/postgres"
)

// EnvDSN — DSN сервера, на котором можно создавать базы.
const EnvDSN = "TEST_DATABASE_DSN"

// New создаёт отдельную базу под тест, применяет миграции и удаляет базу в t.Cleanup.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseDSN := os.Getenv(EnvDSN)
	if baseDSN == "" {
		t.Skipf("%s не задан, интеграционный тест пропущен", EnvDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgx.Connect(ctx, baseDSN)
	if err != nil {
		t.Fatalf("admin connect: %v", err)
	}

	dbName := "stars_casino_test_" + randomSuffix(t)
	if _, err := admin.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, dbName)); err != nil {
		_ = admin.Close(ctx)
		t.Fatalf("create database: %v", err)
	}

	testDSN, err := replaceDatabase(baseDSN, dbName)
	if err != nil {
		t.Fatalf("test dsn: %v", err)
	}

	pool, err := postgres.Connect(ctx, testDSN, 10, 0)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	if err := postgres.RunMigrations(pool); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = admin.Exec(dropCtx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, dbName))
		_ = admin.Close(dropCtx)
	})
	return pool
}

func replaceDatabase(dsn, dbName string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func randomSuffix(t *testing.T) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b)
}
