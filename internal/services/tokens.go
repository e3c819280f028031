package services

import "context"

// TokenSource yields a bearer credential for an outbound call. Implementations
// may refresh tokens under the hood; callers treat every call as potentially
// blocking.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed credential.
type StaticToken string

// Token returns the fixed credential.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}
