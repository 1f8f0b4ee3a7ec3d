package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter cuenta requests por clave en ventanas fijas.
type Limiter interface {
	// Allow registra un hit y devuelve si sigue dentro del límite y cuánto
	// falta para que se reinicie la ventana.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RedisLimiter comparte los contadores entre todas las instancias de la API.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: "ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}
	left := ttl.Val()
	if left < 0 {
		left = l.window
	}
	return incr.Val() <= int64(l.limit), left, nil
}

type fixedWindow struct {
	count int
	end   time.Time
}

// MemoryLimiter se usa cuando no hay Redis configurado (una sola instancia).
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*fixedWindow
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, entries: make(map[string]*fixedWindow), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.end) {
		// limpiar ventanas vencidas
		for k, old := range l.entries {
			if now.After(old.end) {
				delete(l.entries, k)
			}
		}
		e = &fixedWindow{end: now.Add(l.window)}
		l.entries[key] = e
	}
	e.count++
	return e.count <= l.limit, e.end.Sub(now), nil
}

// RateLimiter responde 429 al superar el límite. Si el limiter falla
// (ej: Redis caído) la request pasa igual.
func RateLimiter(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Demasiadas solicitudes. Intente nuevamente en un momento."})
			return
		}
		c.Next()
	}
}
