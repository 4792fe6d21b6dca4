package challenge

import "context"

// Verifier checks a client-supplied bot-defense token.
type Verifier interface {
	// Verify returns true if the token is valid. A non-nil error means the
	// verification service could not give an answer.
	Verify(ctx context.Context, token string) (bool, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (bool, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (bool, error) {
	return f(ctx, token)
}
