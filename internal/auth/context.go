package auth

import "context"

type accountContextKey struct{}
type tokenContextKey struct{}

// ContextWithAccount attaches the authenticated account to the context.
func ContextWithAccount(ctx context.Context, acct *Account) context.Context {
	if acct == nil {
		return ctx
	}
	return context.WithValue(ctx, accountContextKey{}, acct)
}

// AccountFromContext extracts the authenticated account from the context.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(accountContextKey{}).(*Account)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
