package courtclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/clients"
)

func NewMock(t *testing.T) (*Client, *clients.MockHTTPClientI) {
	ctrl := gomock.NewController(t)
	client := clients.NewMockHTTPClientI(ctrl)
	return New(&config.Config{CourtServiceAddress: "http://courts:8090"}, client), client
}

func TestClient_FindOwnerID(t *testing.T) {
	courtID, ownerID := uuid.New(), uuid.New()
	url := "http://courts:8090/api/courts/" + courtID.String() + "/owner"

	tests := []struct {
		name       string
		statusCode int
		body       string
		httpErr    error
		expected   uuid.UUID
		expectErr  bool
		notFound   bool
	}{
		{
			name:       "Owner found",
			statusCode: http.StatusOK,
			body:       fmt.Sprintf(`{"court_id":%q,"owner_id":%q}`, courtID, ownerID),
			expected:   ownerID,
		},
		{
			name:       "Court unknown",
			statusCode: http.StatusNotFound,
			expectErr:  true,
			notFound:   true,
		},
		{
			name:       "Court without owner",
			statusCode: http.StatusOK,
			body:       fmt.Sprintf(`{"court_id":%q}`, courtID),
			expectErr:  true,
			notFound:   true,
		},
		{
			name:       "Garbage body",
			statusCode: http.StatusOK,
			body:       `{`,
			expectErr:  true,
		},
		{
			name:       "Server error",
			statusCode: http.StatusInternalServerError,
			expectErr:  true,
		},
		{
			name:      "Transport error",
			httpErr:   errors.New("connection refused"),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, client := NewMock(t)
			client.EXPECT().Get(gomock.Any(), url, gomock.Any()).Return(tt.statusCode, []byte(tt.body), tt.httpErr)

			got, err := c.FindOwnerID(context.Background(), courtID)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Equal(t, tt.notFound, errors.Is(err, domain.ErrNotFound))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
