package courtrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_FindCourt(t *testing.T) {
	repo, mock := NewMock(t)
	id, centerID := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		notFound  bool
		result    *domain.Court
	}{
		{
			name: "Court exists",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM courts WHERE id = $1`)).
					WithArgs(id).
					WillReturnRows(pgxmock.NewRows([]string{"id", "sport_center_id", "name", "min_deposit_pct"}).
						AddRow(id, centerID, "Court 1", decimal.NewFromInt(30)))
			},
			result: &domain.Court{ID: id, SportCenterID: centerID, Name: "Court 1", MinDepositPct: decimal.NewFromInt(30)},
		},
		{
			name: "Court does not exist",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM courts WHERE id = $1`)).
					WithArgs(id).
					WillReturnError(pgx.ErrNoRows)
			},
			expectErr: true,
			notFound:  true,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM courts WHERE id = $1`)).
					WithArgs(id).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindCourt(context.Background(), id)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Equal(t, tt.notFound, errors.Is(err, domain.ErrNotFound))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestRepository_FindSchedules(t *testing.T) {
	repo, mock := NewMock(t)
	courtID, scheduleID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM court_schedules WHERE court_id = $1`)).
		WithArgs(courtID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "court_id", "day_of_week", "start_time", "end_time", "price_per_hour"}).
			AddRow(scheduleID, courtID, int16(1), pg.TimeOfDay(8*time.Hour), pg.TimeOfDay(20*time.Hour), decimal.NewFromInt(100)))

	schedules, err := repo.FindSchedules(context.Background(), courtID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CourtSchedule{{
		ID:           scheduleID,
		CourtID:      courtID,
		DayOfWeek:    time.Monday,
		StartTime:    8 * time.Hour,
		EndTime:      20 * time.Hour,
		PricePerHour: decimal.NewFromInt(100),
	}}, schedules)
}

func TestRepository_FindOwnerID(t *testing.T) {
	repo, mock := NewMock(t)
	courtID, ownerID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`JOIN sport_centers sc ON sc.id = c.sport_center_id`)).
		WithArgs(courtID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(ownerID))
	got, err := repo.FindOwnerID(context.Background(), courtID)
	assert.NoError(t, err)
	assert.Equal(t, ownerID, got)

	mock.ExpectQuery(regexp.QuoteMeta(`JOIN sport_centers sc ON sc.id = c.sport_center_id`)).
		WithArgs(courtID).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.FindOwnerID(context.Background(), courtID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_Lock(t *testing.T) {
	repo, mock := NewMock(t)
	courtID := uuid.New()

	tests := []struct {
		name      string
		mockSetup func()
		expectErr error
	}{
		{
			name: "Locked",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM courts WHERE id = $1 FOR UPDATE`)).
					WithArgs(courtID).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(courtID))
			},
		},
		{
			name: "Court does not exist",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM courts WHERE id = $1 FOR UPDATE`)).
					WithArgs(courtID).
					WillReturnError(pgx.ErrNoRows)
			},
			expectErr: domain.ErrNotFound,
		},
		{
			name: "Lock wait aborted",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM courts WHERE id = $1 FOR UPDATE`)).
					WithArgs(courtID).
					WillReturnError(errors.New("canceling statement due to lock timeout"))
			},
			expectErr: errors.New("canceling statement due to lock timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			err := repo.Lock(context.Background(), courtID)
			switch {
			case tt.expectErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.expectErr, domain.ErrNotFound):
				assert.ErrorIs(t, err, domain.ErrNotFound)
			default:
				assert.EqualError(t, err, tt.expectErr.Error())
			}
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
