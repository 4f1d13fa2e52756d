package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	var fieldErrs validator.ValidationErrors
	fieldErrs.Add("rating", "must be between 1 and 5")

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:       "field validation",
			err:        fieldErrs,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidation,
		},
		{
			name:        "token revoked",
			err:         fmt.Errorf("verify: %w", auth.ErrTokenRevoked),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    CodeUnauthorized,
			wantMessage: auth.ErrTokenRevoked.Message,
		},
		{
			name:        "invalid transition",
			err:         &ticket.InvalidTransitionError{From: ticket.StatusOpen, To: ticket.StatusClosed},
			wantStatus:  http.StatusBadRequest,
			wantCode:    CodeInvalidTransition,
			wantMessage: "invalid status transition from OPEN to CLOSED",
		},
		{
			name:        "conflict with explicit code",
			err:         apperr.NewWithCode(apperr.KindConflict, "CONFIRMATION_REQUIRED", "confirm early checkout"),
			wantStatus:  http.StatusConflict,
			wantCode:    "CONFIRMATION_REQUIRED",
			wantMessage: "confirm early checkout",
		},
		{
			name:        "not found",
			err:         apperr.New(apperr.KindNotFound, "ticket not found"),
			wantStatus:  http.StatusNotFound,
			wantCode:    CodeNotFound,
			wantMessage: "ticket not found",
		},
		{
			name:        "authorization",
			err:         apperr.New(apperr.KindAuthorization, "outside your zone"),
			wantStatus:  http.StatusForbidden,
			wantCode:    CodeForbidden,
			wantMessage: "outside your zone",
		},
		{
			name:        "persistence failure hides cause",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    CodeInternal,
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body.Error.Message)
			}
		})
	}
}
