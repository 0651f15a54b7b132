// Package auth проверяет Telegram WebApp initData и определяет, кто делает запрос.
package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
)

// Profile — данные пользователя из initData.
type Profile struct {
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
}

// Identity — проверенный пользователь запроса.
type Identity struct {
	UserID      int64
	Profile     Profile
	IsTrialMode bool // Запрос без initData, пропущенный демо-режимом
}

// webAppUser — поле user из initData.
type webAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
}

// Verifier проверяет подпись initData ключом бота.
type Verifier struct {
	botToken   string
	maxAge     time.Duration // 0 — возраст auth_date не проверяется
	demoMode   bool
	demoUserID int64
	now        func() time.Time
}

// Options — настройки Verifier.
type Options struct {
	BotToken   string
	MaxAge     time.Duration
	DemoMode   bool
	DemoUserID int64
}

// NewVerifier создаёт проверяльщика. Демо-режим включается только явно и пишет громкое предупреждение.
func NewVerifier(opts Options) *Verifier {
	if opts.DemoMode {
		log.WithField("demo_user_id", opts.DemoUserID).
			Warn("!!! ДЕМО-РЕЖИМ ВКЛЮЧЕН: запросы без initData проходят как демо-пользователь. Не использовать в проде !!!")
	}
	if opts.BotToken == "" && !opts.DemoMode {
		log.Warn("TELEGRAM_BOT_TOKEN не задан: initData проверить нечем, все запросы будут отклонены")
	}
	return &Verifier{
		botToken:   opts.BotToken,
		maxAge:     opts.MaxAge,
		demoMode:   opts.DemoMode,
		demoUserID: opts.DemoUserID,
		now:        time.Now,
	}
}

// Verify проверяет подпись initData и возвращает пользователя.
// Любая проблема (нет подписи, не сошёлся хэш, протух auth_date, нет user) — common.ErrUnauthenticated.
func (v *Verifier) Verify(initData string) (*Identity, error) {
	if initData == "" || v.botToken == "" {
		return nil, common.ErrUnauthenticated
	}

	values, err := tu.ValidateWebAppData(v.botToken, initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	if v.maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: некорректный auth_date", common.ErrUnauthenticated)
		}
		if v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
			return nil, fmt.Errorf("%w: initData устарела", common.ErrUnauthenticated)
		}
	}

	var u webAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &u); err != nil || u.ID == 0 {
		return nil, fmt.Errorf("%w: нет данных пользователя", common.ErrUnauthenticated)
	}

	return &Identity{
		UserID: u.ID,
		Profile: Profile{
			Username:     u.Username,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			LanguageCode: u.LanguageCode,
			IsPremium:    u.IsPremium,
		},
	}, nil
}

// Resolve — Verify с учётом демо-режима: при невалидных данных в демо-режиме
// возвращается демо-пользователь с IsTrialMode.
func (v *Verifier) Resolve(initData string) (*Identity, error) {
	id, err := v.Verify(initData)
	if err == nil {
		return id, nil
	}
	if !v.demoMode {
		return nil, err
	}
	return &Identity{
		UserID:      v.demoUserID,
		Profile:     Profile{FirstName: "Demo", Username: "demo_user"},
		IsTrialMode: true,
	}, nil
}
