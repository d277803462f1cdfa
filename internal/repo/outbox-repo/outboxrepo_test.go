package outboxrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

var outboxColumns = []string{"id", "type", "content", "created_at", "processed_at", "error", "attempts", "next_attempt_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_Save(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	msg := &domain.OutboxMessage{
		ID:            uuid.New(),
		Type:          "booking.cancelled",
		Content:       `{"booking_id":"b"}`,
		CreatedAt:     now,
		NextAttemptAt: now,
	}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Row is inserted",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_messages (id, type, content, created_at, attempts, next_attempt_at)`)).
					WithArgs(msg.ID, msg.Type, msg.Content, now, 0, now).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_messages`)).
					WithArgs(msg.ID, msg.Type, msg.Content, now, 0, now).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			err := repo.Save(context.Background(), msg)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Saving inside a rolled back unit of work leaves nothing behind, saving
// inside a committed one leaves exactly the saved rows pending.
func TestRepository_SaveFollowsSurroundingTransaction(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		fail     bool
		finalize func(mock pgxmock.PgxPoolIface)
	}{
		{name: "Commit", n: 3, finalize: func(mock pgxmock.PgxPoolIface) { mock.ExpectCommit() }},
		{name: "Rollback", n: 3, fail: true, finalize: func(mock pgxmock.PgxPoolIface) { mock.ExpectRollback() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBegin()
			for i := 0; i < tt.n; i++ {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_messages`)).
					WithArgs(pgxmock.AnyArg(), "booking.detail_cancelled", pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}
			tt.finalize(mock)

			repo := New(pg.New(mock))
			err = pg.NewTXManager(mock).Begin(context.Background(), func(ctx context.Context) error {
				for i := 0; i < tt.n; i++ {
					now := time.Now()
					if err := repo.Save(ctx, &domain.OutboxMessage{
						ID: uuid.New(), Type: "booking.detail_cancelled", Content: "{}", CreatedAt: now, NextAttemptAt: now,
					}); err != nil {
						return err
					}
				}
				if tt.fail {
					return errors.New("booking update failed")
				}
				return nil
			})

			assert.Equal(t, tt.fail, err != nil)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindPending(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	first, second := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		expected  []domain.OutboxMessage
	}{
		{
			name: "Oldest pending rows first",
			mockSetup: func() {
				rows := pgxmock.NewRows(outboxColumns).
					AddRow(first, "booking.cancelled", "{}", now.Add(-time.Minute), nil, nil, 0, now.Add(-time.Minute)).
					AddRow(second, "booking.detail_cancelled", "{}", now, nil, nil, 1, now)
				mock.ExpectQuery(regexp.QuoteMeta(`WHERE processed_at IS NULL AND next_attempt_at <= $1 ORDER BY created_at ASC LIMIT $2`)).
					WithArgs(now, 20).
					WillReturnRows(rows)
			},
			expected: []domain.OutboxMessage{
				{ID: first, Type: "booking.cancelled", Content: "{}", CreatedAt: now.Add(-time.Minute), NextAttemptAt: now.Add(-time.Minute)},
				{ID: second, Type: "booking.detail_cancelled", Content: "{}", CreatedAt: now, Attempts: 1, NextAttemptAt: now},
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM outbox_messages`)).
					WithArgs(now, 20).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindPending(context.Background(), now, 20)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, result)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRepository_MarkProcessedAndScheduleRetry(t *testing.T) {
	repo, mock := NewMock(t)
	id := uuid.New()
	now := time.Now()
	errText := "unknown event type"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_messages SET processed_at = $1, error = $2, attempts = $3 WHERE id = $4`)).
		WithArgs(now, &errText, 1, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_messages SET attempts = $1, next_attempt_at = $2, error = $3 WHERE id = $4`)).
		WithArgs(2, now.Add(time.Minute), "broker unavailable", id).
		WillReturnError(errors.New("database error"))

	assert.NoError(t, repo.MarkProcessed(context.Background(), id, now, 1, &errText))
	assert.Error(t, repo.ScheduleRetry(context.Background(), id, 2, now.Add(time.Minute), "broker unavailable"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
