package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	jwtService := NewJWTService(testSecret)
	userID := uuid.New()
	token, err := jwtService.GenerateJWT(userID, "court_owner", time.Now().Add(time.Hour))
	assert.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		expectedCode int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID uuid.UUID
			var gotRole string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = r.Context().Value(UserIDKey).(uuid.UUID)
				gotRole = r.Context().Value(RoleKey).(string)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(jwtService)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, userID, gotID)
				assert.Equal(t, "court_owner", gotRole)
			}
		})
	}
}
