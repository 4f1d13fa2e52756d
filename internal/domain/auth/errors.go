package auth

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

var (
	ErrInvalidToken  = apperr.New(apperr.KindAuthorization, "invalid or expired token")
	ErrTokenRevoked  = apperr.New(apperr.KindAuthorization, "token has been revoked")
	ErrMissingToken  = apperr.New(apperr.KindAuthorization, "authorization token is required")
	ErrUserInactive  = apperr.New(apperr.KindAuthorization, "user account is inactive")
	ErrInvalidClaims = apperr.New(apperr.KindAuthorization, "token claims are incomplete")
)
