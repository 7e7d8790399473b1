package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: ventana fija en un mapa en proceso. Solo es correcto dentro
// de una instancia; en despliegue multi-instancia usar RedisLimiter y dejar
// este como fallback de instancia única o doble de test.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	// now inyectable para tests
	now func() time.Time
}

type window struct {
	hits    int64
	resetAt time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, max int, windowDur time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// ventana nueva: el contador resetea en el borde
		w = &window{resetAt: now.Truncate(windowDur).Add(windowDur)}
		l.windows[key] = w
	}
	w.hits++

	ttl := w.resetAt.Sub(now)
	allowed := w.hits <= int64(max)
	remaining := int64(max) - w.hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: w.hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// purge elimina ventanas vencidas. Se llama oportunísticamente desde Sweep.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
