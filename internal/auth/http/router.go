package http

import (
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boofmebel/auth/internal/auth/service"
	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/httpx"
	"github.com/boofmebel/auth/pkg/ratelimit"
	"github.com/boofmebel/auth/pkg/slogx"
)

// Options configures the boundary policies wrapped around the routes.
type Options struct {
	Limiter      ratelimit.Limiter
	Rules        httpx.PathRules
	KeyExtractor httpx.KeyExtractor
	CORSOrigins  []string

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Sentry puts a per-request hub on the context and reports panics.
	Sentry bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	auth     *service.AuthService
	store    store.Store
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func NewRouter(auth *service.AuthService, st store.Store, logger *slog.Logger, opts Options) *Router {
	r := &Router{
		Mux:      http.NewServeMux(),
		auth:     auth,
		store:    st,
		gatherer: opts.Gatherer,
		logger:   logger,
	}

	if opts.Rules == nil {
		opts.Rules = httpx.DefaultPathRules()
	}
	if opts.KeyExtractor == nil {
		opts.KeyExtractor = httpx.IPKeyExtractor
	}

	// Sentry, logging and security headers only annotate. The rate limiter
	// is the first thing that can reject a request.
	if opts.Sentry {
		r.middlewares = append(r.middlewares, sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.middlewares = append(r.middlewares,
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders,
	)
	if opts.Limiter != nil {
		r.middlewares = append(r.middlewares, httpx.RateLimitMiddleware(opts.Limiter, opts.Rules, opts.KeyExtractor))
	}
	r.middlewares = append(r.middlewares, httpx.CORS(opts.CORSOrigins))

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.auth}

	r.Mux.HandleFunc("POST "+httpx.PathLogin, h.HandleLogin)
	r.Mux.HandleFunc("POST "+httpx.PathRefresh, h.HandleRefresh)
	r.Mux.HandleFunc("POST /auth/logout", h.HandleLogout)
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.auth.Authenticate),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /{$}", RootHandler)

	live := LivezHandler()
	r.Mux.Handle("GET /health", live)
	r.Mux.Handle("GET /livez", live)

	ready := ReadyzHandler(r.store)
	r.Mux.Handle("GET /ready", ready)
	r.Mux.Handle("GET /readyz", ready)

	if r.gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
}
