package auth

import (
	"context"
	"fmt"
	"log"

	supabase "github.com/nedpals/supabase-go"
)

// SupabaseVerifier accepts Supabase session tokens by asking the Supabase
// auth API for the token's user
type SupabaseVerifier struct {
	client *supabase.Client
}

// NewSupabaseVerifier creates a verifier for the given Supabase project
func NewSupabaseVerifier(url, key string) *SupabaseVerifier {
	log.Printf("Supabase token verification enabled for %s", url)
	return &SupabaseVerifier{client: supabase.CreateClient(url, key)}
}

// Verify implements Verifier
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	user, err := v.client.Auth.User(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: supabase rejected token: %v", ErrInvalidToken, err)
	}
	if user == nil || user.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}
