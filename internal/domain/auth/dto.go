package auth

import (
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

type IssueTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (r *IssueTokenRequest) Validate() error {
	return validator.Struct(r)
}

type AccessTokenResponse struct {
	AccessToken          string `json:"access_token"`
	AccessTokenExpiresAt int64  `json:"access_token_expires_at"`
}

type MeResponse struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
	ZoneID *string   `json:"zone_id,omitempty"`
}
