package server

import "context"

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// WithPrincipal returns a context carrying the verified employee id.
// Handlers behind the bearer middleware read it via GetPrincipal.
func WithPrincipal(ctx context.Context, employeeID string) context.Context {
	return context.WithValue(ctx, principalKey, employeeID)
}

// GetPrincipal returns the employee id from context and true if set;
// otherwise "", false.
func GetPrincipal(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey).(string)
	return v, ok
}
