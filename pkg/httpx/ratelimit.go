package httpx

import (
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/boofmebel/auth/pkg/ratelimit"
	"github.com/boofmebel/auth/pkg/slogx"
)

// Guarded paths and their default budgets.
const (
	PathLogin         = "/auth/login"
	PathRefresh       = "/auth/refresh"
	PathResetPassword = "/auth/reset-password"
)

// PathRules maps an exact request path to its rule. Paths without an entry
// are never limited.
type PathRules map[string]ratelimit.Rule

// DefaultPathRules returns the built-in budgets with any RATELIMIT_<NAME>_*
// environment overrides applied.
func DefaultPathRules() PathRules {
	return PathRules{
		PathLogin:         ParseRuleFromEnv("LOGIN", ratelimit.Rule{Limit: 5, Window: time.Minute}),
		PathRefresh:       ParseRuleFromEnv("REFRESH", ratelimit.Rule{Limit: 10, Window: time.Minute}),
		PathResetPassword: ParseRuleFromEnv("RESET_PASSWORD", ratelimit.Rule{Limit: 3, Window: 5 * time.Minute}),
	}
}

// Longest returns the longest window among the rules.
func (p PathRules) Longest() time.Duration {
	var longest time.Duration
	for _, r := range p {
		longest = max(longest, r.Window)
	}
	return longest
}

// ParseRuleFromEnv reads RATELIMIT_{prefix}_REQUESTS and
// RATELIMIT_{prefix}_WINDOW_SEC over def. Invalid values are ignored.
func ParseRuleFromEnv(prefix string, def ratelimit.Rule) ratelimit.Rule {
	rule := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			rule.Limit = n
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			rule.Window = time.Duration(sec) * time.Second
		}
	}
	return rule
}

// KeyExtractor returns the client identity used for rate limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the peer address of the connection.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ForwardedIPKeyExtractor prefers X-Forwarded-For and X-Real-IP. Only use
// it behind a proxy that overwrites those headers, since clients can set
// them freely.
func ForwardedIPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return IPKeyExtractor(r)
}

var rateLimitRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter, by path.",
	},
	[]string{"path"},
)

// RateLimitCollectors returns the metrics owned by the rate limit
// middleware, for registration by the caller.
func RateLimitCollectors() []prometheus.Collector {
	return []prometheus.Collector{rateLimitRejections}
}

// RateLimitMiddleware counts requests to guarded paths per client and
// answers 429 once a client exhausts its window. A limiter failure lets the
// request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, rules PathRules, keyExtractor KeyExtractor) Middleware {
	// One warning per second at most, a flood must not flood the logs too.
	warn := rate.Sometimes{Interval: time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, guarded := rules[r.URL.Path]
			if !guarded || !rule.Valid() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)

			client := keyExtractor(r)
			if client == "" {
				client = "unknown"
			}

			d, err := limiter.Allow(ctx, ratelimit.Key(client, r.URL.Path), rule)
			if err != nil {
				log.Error("rate limiter unavailable, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			rateLimitRejections.WithLabelValues(r.URL.Path).Inc()
			warn.Do(func() {
				log.Warn("rate limit exceeded", "client", client, "limit", d.Limit, "window", d.Window.String())
			})

			retryAfter := max(int(math.Ceil(d.RetryAfter.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(d.Window.Seconds())))

			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}
