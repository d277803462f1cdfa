package inboxrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_MarkProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := New(mock)

	tests := []struct {
		name      string
		affected  int64
		dbErr     error
		expected  bool
		expectErr bool
	}{
		{name: "First delivery", affected: 1, expected: true},
		{name: "Redelivery", affected: 0, expected: false},
		{name: "Database error", dbErr: errors.New("database error"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO processed_events (id, event_type, processed_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`)).
				WithArgs("msg-1", "payment.succeeded", pgxmock.AnyArg())
			if tt.dbErr != nil {
				exec.WillReturnError(tt.dbErr)
			} else {
				exec.WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))
			}

			first, err := repo.MarkProcessed(context.Background(), "msg-1", "payment.succeeded")
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, first)
		})
	}
}
