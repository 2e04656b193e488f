package middleware

import (
	"context"
	"net/http"
	"sync"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
)

// State is the position of a request in the pipeline.
type State string

const (
	StateEntered         State = "ENTERED"
	StateCorrelated      State = "CORRELATED"
	StateNonced          State = "NONCED"
	StateSkipped         State = "SKIPPED"
	StateAdmitted        State = "ADMITTED"
	StateRateLimited     State = "RATE_LIMITED"
	StateResolved        State = "RESOLVED"
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateForbidden       State = "FORBIDDEN"
	StateDispatched      State = "DISPATCHED"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// Terminal reports whether s ends the request without reaching a handler.
func (s State) Terminal() bool {
	switch s {
	case StateRateLimited, StateUnauthenticated, StateForbidden, StateFailed:
		return true
	}
	return false
}

type contextKey struct{ name string }

var (
	trackerKey = contextKey{"tracker"}
	nonceKey   = contextKey{"csp_nonce"}
)

// Tracker records the states a single request passed through. It lives in
// the request context and is never shared between requests.
type Tracker struct {
	mu        sync.Mutex
	history   []State
	status    int
	written   bool
	principal domain.Principal
}

func newTracker() *Tracker {
	return &Tracker{history: []State{StateEntered}}
}

// Advance records s. Once a terminal state is recorded, later states are
// ignored.
func (t *Tracker) Advance(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.history[len(t.history)-1].Terminal() {
		return
	}
	t.history = append(t.history, s)
}

// Current returns the latest state
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history[len(t.history)-1]
}

// History returns a copy of every recorded state in order
func (t *Tracker) History() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}

// Status returns the response status captured by the audit stage, or 0
// before the response is written.
func (t *Tracker) Status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) setStatus(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.written {
		t.status = code
		t.written = true
	}
}

// Principal returns the principal recorded by the tenant stage, or
// Anonymous.
func (t *Tracker) Principal() domain.Principal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.principal == nil {
		return domain.Anonymous{}
	}
	return t.principal
}

func (t *Tracker) setPrincipal(p domain.Principal) {
	t.mu.Lock()
	t.principal = p
	t.mu.Unlock()
}

// WithTracker stores t in ctx
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey, t)
}

// TrackerFromContext returns the request tracker, if the correlation stage
// ran.
func TrackerFromContext(ctx context.Context) (*Tracker, bool) {
	t, ok := ctx.Value(trackerKey).(*Tracker)
	return t, ok
}

func advance(r *http.Request, s State) {
	if t, ok := TrackerFromContext(r.Context()); ok {
		t.Advance(s)
	}
}

// GetPrincipal returns the principal resolved for the request. Requests
// that did not pass the tenant stage are anonymous.
func GetPrincipal(ctx context.Context) domain.Principal {
	if p, ok := observability.PrincipalFromContext(ctx); ok {
		return p
	}
	return domain.Anonymous{}
}

// WithPrincipal attaches p to ctx
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return observability.WithPrincipal(ctx, p)
}

// NonceFromContext returns the CSP nonce for the request, if one was
// generated.
func NonceFromContext(ctx context.Context) (string, bool) {
	n, ok := ctx.Value(nonceKey).(string)
	return n, ok && n != ""
}

func withNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey, nonce)
}
