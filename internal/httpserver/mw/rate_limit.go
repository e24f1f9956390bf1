package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/mindmark/internal/utils"
)

type RateLimitConfig struct {
	Burst         int
	PerMinute     int
	IdleTTL       time.Duration
	SweepInterval time.Duration
	TrustProxy    bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client ip.
type visitors struct {
	cfg       RateLimitConfig
	limit     rate.Limit
	mu        sync.Mutex
	byIP      map[string]*visitor
	lastSweep time.Time
}

func newVisitors(cfg RateLimitConfig) *visitors {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &visitors{
		cfg:       cfg,
		limit:     rate.Limit(float64(cfg.PerMinute) / 60),
		byIP:      make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (v *visitors) get(ip string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	if now.Sub(v.lastSweep) >= v.cfg.SweepInterval {
		for k, vis := range v.byIP {
			if now.Sub(vis.lastSeen) > v.cfg.IdleTTL {
				delete(v.byIP, k)
			}
		}
		v.lastSweep = now
	}

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.cfg.Burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter
}

// RateLimit caps requests per client ip and answers 429 with Retry-After
// once the bucket is empty.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	v := newVisitors(cfg)
	limitStr := strconv.Itoa(v.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := v.get(utils.ClientIP(r, v.cfg.TrustProxy), now)

			res := lim.ReserveN(now, 1)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				w.Header().Set("X-RateLimit-Limit", limitStr)
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			remaining := int(math.Max(0, math.Floor(lim.TokensAt(now))))
			w.Header().Set("X-RateLimit-Limit", limitStr)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
