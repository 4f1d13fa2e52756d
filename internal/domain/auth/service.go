package auth

import (
	"context"
)

// AuthService issues and revokes access tokens for users managed elsewhere.
type AuthService interface {
	// IssueToken mints an access token for an active user
	IssueToken(ctx context.Context, req IssueTokenRequest) (AccessTokenResponse, error)

	// Logout revokes the access token until it expires
	Logout(ctx context.Context, token string) error

	Me(ctx context.Context) (MeResponse, error)
}
