package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// releaseScript удаляет ключ, только если в нём наше значение.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker — короткие блокировки, которые гасят одновременные повторы одного и того же события.
// Это не замена транзакции: итоговую корректность обеспечивает база.
type Locker struct {
	rdb      goredis.Cmdable // nil — блокировки всегда успешны
	ttl      time.Duration
	newValue func() string
}

// NewLocker создаёт блокировщик. rdb может быть nil.
func NewLocker(rdb goredis.Cmdable, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, newValue: uuid.NewString}
}

// Acquire пытается взять блокировку key.
// ok == false — ключ уже занят другим обработчиком. При недоступном Redis блокировка
// считается взятой: лучше пропустить до базы, чем потерять платёж.
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), ok bool) {
	noop := func() {}
	if l == nil || l.rdb == nil {
		return noop, true
	}

	value := l.newValue()
	acquired, err := l.rdb.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("Redis недоступен, продолжаем без блокировки")
		return noop, true
	}
	if !acquired {
		return noop, false
	}

	return func() {
		// Отпускаем даже если исходный контекст уже отменён
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		res, err := l.rdb.Eval(releaseCtx, releaseScript, []string{key}, value).Result()
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("Не удалось снять блокировку")
			return
		}
		if res == int64(0) {
			log.WithField("key", key).Debug("Блокировка уже истекла или перехвачена")
		}
	}, true
}
