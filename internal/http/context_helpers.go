package httpx

import (
	"context"

	"github.com/reelapps/reelhunter/internal/session"
)

// handleKey is an unexported context key type to avoid collisions across packages.
type handleKey struct{}

// SetHandleInContext returns a child context that carries the browser session.
// If h is nil, the original ctx is returned unchanged.
func SetHandleInContext(ctx context.Context, h *session.Handle) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFromContext returns the browser session attached by the session middleware.
func HandleFromContext(ctx context.Context) (*session.Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(*session.Handle)
	return h, ok && h != nil
}
