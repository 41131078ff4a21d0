package auth

import (
	"context"
	"errors"
)

// Verifier turns a bearer token into the claims of its user
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// ChainVerifier tries each verifier in order and accepts the first success
type ChainVerifier struct {
	verifiers []Verifier
}

// NewChainVerifier creates a verifier over the non-nil verifiers given
func NewChainVerifier(verifiers ...Verifier) *ChainVerifier {
	chain := &ChainVerifier{}
	for _, v := range verifiers {
		if v != nil {
			chain.verifiers = append(chain.verifiers, v)
		}
	}
	return chain
}

// Verify implements Verifier. An expired token is reported as expired even when
// later verifiers reject it too.
func (c *ChainVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var firstErr error
	for _, v := range c.verifiers {
		claims, err := v.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		if firstErr == nil || errors.Is(err, ErrExpiredToken) {
			firstErr = err
		}
	}

	if firstErr == nil {
		return nil, ErrInvalidToken
	}
	return nil, firstErr
}
