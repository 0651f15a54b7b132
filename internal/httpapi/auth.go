package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/stars-casino/internal/auth"
	"serotonyl.ru/stars-casino/internal/common"
)

// IdentityResolver определяет пользователя по initData (auth.Verifier).
type IdentityResolver interface {
	Resolve(initData string) (*auth.Identity, error)
}

// InitDataFromRequest достаёт initData из X-Telegram-Init-Data или "Authorization: tma <initData>".
func InitDataFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Telegram-Init-Data"); v != "" {
		return v
	}
	if h := r.Header.Get("Authorization"); len(h) > 4 && strings.EqualFold(h[:4], "tma ") {
		return strings.TrimSpace(h[4:])
	}
	return ""
}

// Authenticate пропускает дальше только запросы с валидной initData.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(InitDataFromRequest(r))
			if err != nil {
				log.WithFields(log.Fields{
					"path":       r.URL.Path,
					"request_id": GetRequestID(r.Context()),
				}).WithError(err).Debug("Запрос без валидной initData")
				RespondError(w, r, common.ErrUnauthenticated)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom достаёт пользователя, которого положил Authenticate.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok && id != nil
}

// WithIdentity кладёт пользователя в контекст. Нужен тестам обработчиков.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireAdmin пропускает только пользователей из ADMIN_IDS. Ставится после Authenticate.
// Демо-пользователь админом не бывает.
func RequireAdmin(isAdmin func(userID int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				RespondError(w, r, common.ErrUnauthenticated)
				return
			}
			if id.IsTrialMode || !isAdmin(id.UserID) {
				log.WithField("user_id", id.UserID).Warn("Попытка доступа к админке без прав")
				RespondError(w, r, common.ErrNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsHandler отдаёт /metrics. Если задан хэш пароля (argon2id) — под basic auth.
func MetricsHandler(passwordHash string) http.Handler {
	h := promhttp.Handler()
	if passwordHash == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok || !VerifyArgon2id(password, passwordHash) {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// VerifyArgon2id проверяет пароль против хэша формата
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash> (base64 без паддинга).
func VerifyArgon2id(password, encoded string) bool {
	p, salt, hash, err := decodeArgon2Hash(encoded)
	if err != nil {
		log.WithError(err).Error("Некорректный METRICS_PASSWORD_HASH")
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
