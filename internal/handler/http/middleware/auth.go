package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts verified, unrevoked access tokens and stores the
// caller as a user.Actor on the request context.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				if err == jwtauth.ErrNoTokenFound {
					response.HandleError(w, auth.ErrMissingToken)
					return
				}
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != jwt.TokenTypeAccess || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			raw := jwtauth.TokenFromHeader(r)
			revoked, err := jwtService.IsTokenRevoked(r.Context(), raw)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to check token revocation", "error", err)
				response.InternalServerError(w, "An unexpected error occurred")
				return
			}
			if revoked {
				response.HandleError(w, auth.ErrTokenRevoked)
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(user.WithActor(r.Context(), actor)))
		}
		return http.HandlerFunc(hfn)
	}
}

func actorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	userID, _ := claims["user_id"].(string)
	roleStr, _ := claims["role"].(string)
	role := user.Role(roleStr)
	if userID == "" || !role.IsValid() {
		return user.Actor{}, auth.ErrInvalidClaims
	}

	actor := user.Actor{UserID: userID, Role: role}
	if zoneID, ok := claims["zone_id"].(string); ok && zoneID != "" {
		actor.ZoneID = &zoneID
	}
	return actor, nil
}
