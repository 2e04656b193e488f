package middleware

import (
	"net/http"
	"regexp"

	"kitchen-backoffice/internal/observability"

	"github.com/google/uuid"
)

const (
	CorrelationIDHeader       = "X-Correlation-ID"
	ParentCorrelationIDHeader = "X-Parent-Correlation-ID"
)

var correlationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{8,64}$`)

// ValidCorrelationID reports whether a client-supplied id may be reused.
func ValidCorrelationID(id string) bool {
	return correlationIDPattern.MatchString(id)
}

// Correlation assigns the request correlation id, reusing a well-formed
// X-Correlation-ID from the client and generating a UUID otherwise. The id
// is echoed on the response before any later stage can write it. It also
// creates the request state Tracker, so it must be the outermost stage.
func Correlation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracker := newTracker()

			id := r.Header.Get(CorrelationIDHeader)
			if !ValidCorrelationID(id) {
				id = uuid.NewString()
			}

			ctx := WithTracker(r.Context(), tracker)
			ctx = observability.WithCorrelationID(ctx, id)
			if parent := r.Header.Get(ParentCorrelationIDHeader); ValidCorrelationID(parent) {
				ctx = observability.WithParentCorrelationID(ctx, parent)
			}

			w.Header().Set(CorrelationIDHeader, id)
			tracker.Advance(StateCorrelated)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
