package middleware

import (
	"net/http"
	"time"

	"kitchen-backoffice/internal/ratelimit"
)

// Stage is one named step of the request pipeline.
type Stage struct {
	Name       string
	Middleware func(http.Handler) http.Handler
}

// Pipeline is the ordered list of stages every request passes through.
// Stages[0] is outermost.
type Pipeline struct {
	Stages []Stage
}

// PipelineDeps holds the services the stages are built from.
type PipelineDeps struct {
	Resolver       PrincipalResolver
	Limiter        Admitter
	RateClasses    []ratelimit.Class
	Nonces         NonceSource
	CSRF           CSRFVerifier
	Events         EventSink
	OpenAPI        *OpenAPIValidatorConfig
	AllowedOrigins []string

	TelemetryDomain string
	SlowThreshold   time.Duration
	// AuditHeaders adds redacted request headers to the access log.
	AuditHeaders bool
	Development  bool
	HSTS         bool
}

// NewPipeline builds the request pipeline in its fixed order:
// correlation, audit, recover, metrics, security headers, CORS, CSP
// nonce, rate limit, tenant auth, CSRF, OpenAPI validation, dispatch.
func NewPipeline(deps PipelineDeps) *Pipeline {
	events := deps.Events
	if events == nil {
		events = NopSink{}
	}
	responder := ErrorResponder{Development: deps.Development}

	openapi := deps.OpenAPI
	if openapi == nil {
		openapi = &OpenAPIValidatorConfig{Enabled: false}
	}

	return &Pipeline{Stages: []Stage{
		{"correlation", Correlation()},
		{"audit", Audit(AuditConfig{SlowThreshold: deps.SlowThreshold, LogHeaders: deps.AuditHeaders})},
		{"recover", Recover(responder)},
		{"metrics", Metrics()},
		{"security-headers", SecurityHeaders(deps.HSTS)},
		{"cors", CORS(deps.AllowedOrigins)},
		{"csp", CSP(deps.Nonces, deps.TelemetryDomain)},
		{"rate-limit", RateLimit(deps.Limiter, deps.RateClasses, events)},
		{"tenant-auth", TenantAuth(deps.Resolver, responder, events)},
		{"csrf", CSRF(deps.CSRF, responder)},
		{"openapi", OpenAPIValidator(openapi)},
		{"dispatch", markDispatched},
	}}
}

// Names returns the stage names in execution order
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}

// Middlewares returns the stages for chi's Use, preserving order.
func (p *Pipeline) Middlewares() []func(http.Handler) http.Handler {
	mws := make([]func(http.Handler) http.Handler, len(p.Stages))
	for i, s := range p.Stages {
		mws[i] = s.Middleware
	}
	return mws
}

// Handler wraps next so that Stages[0] runs first.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	h := next
	for i := len(p.Stages) - 1; i >= 0; i-- {
		h = p.Stages[i].Middleware(h)
	}
	return h
}

func markDispatched(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		advance(r, StateDispatched)
		next.ServeHTTP(w, r)
	})
}
