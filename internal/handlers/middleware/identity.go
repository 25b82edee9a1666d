// internal/handlers/middleware/identity.go
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// Identity headers set by the session gateway in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

type callerContextKey struct{}

// Identity resolves the caller from the gateway headers and stores it in
// the request context. Requests without a valid identity proceed with an
// anonymous caller; the services decide what anonymous callers may do.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := domain.Caller{}

		if id, err := uuid.Parse(r.Header.Get(HeaderUserID)); err == nil {
			role := domain.Role(r.Header.Get(HeaderUserRole))
			if role.Valid() {
				caller = domain.Caller{
					UserID: id,
					Name:   r.Header.Get(HeaderUserName),
					Role:   role,
				}
			}
		}

		ctx := context.WithValue(r.Context(), callerContextKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the caller resolved by the Identity middleware.
// Returns an anonymous caller when the middleware did not run.
func CallerFromContext(ctx context.Context) domain.Caller {
	if caller, ok := ctx.Value(callerContextKey{}).(domain.Caller); ok {
		return caller
	}
	return domain.Caller{}
}

// WithCaller returns a context carrying the given caller. Intended for
// tests and internal invocations that bypass the HTTP layer.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}
