package courtrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
)

// Repository reads the local copy of courts, their sport centers and price
// schedules.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) FindCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	query := `
		SELECT id, sport_center_id, name, min_deposit_pct
		FROM courts
		WHERE id = $1
	`
	var c domain.Court
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.SportCenterID, &c.Name, &c.MinDepositPct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("court %s not found", id)
	}
	if err != nil {
		zap.L().Error("can't find court", zap.Stringer("id", id), zap.Error(err))
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindSchedules(ctx context.Context, courtID uuid.UUID) ([]domain.CourtSchedule, error) {
	query := `
		SELECT id, court_id, day_of_week, start_time, end_time, price_per_hour
		FROM court_schedules
		WHERE court_id = $1
		ORDER BY day_of_week, start_time
	`
	rows, err := r.db.Query(ctx, query, courtID)
	if err != nil {
		zap.L().Error("can't get court schedules", zap.Stringer("court", courtID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.CourtSchedule
	for rows.Next() {
		var (
			s          domain.CourtSchedule
			day        int16
			start, end pgtype.Time
		)
		if err := rows.Scan(&s.ID, &s.CourtID, &day, &start, &end, &s.PricePerHour); err != nil {
			zap.L().Error("can't scan court schedule row", zap.Error(err))
			return nil, err
		}
		s.DayOfWeek = time.Weekday(day)
		s.StartTime = pg.Duration(start)
		s.EndTime = pg.Duration(end)
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate court schedule rows", zap.Error(err))
		return nil, err
	}
	return schedules, nil
}

// FindOwnerID returns the owner of the sport center the court belongs to.
func (r *Repository) FindOwnerID(ctx context.Context, courtID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT sc.owner_id
		FROM courts c
		JOIN sport_centers sc ON sc.id = c.sport_center_id
		WHERE c.id = $1
	`
	var ownerID uuid.UUID
	err := r.db.QueryRow(ctx, query, courtID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.NotFound("owner of court %s not found", courtID)
	}
	if err != nil {
		zap.L().Error("can't find court owner", zap.Stringer("court", courtID), zap.Error(err))
		return uuid.Nil, err
	}
	return ownerID, nil
}

// Lock takes the court row lock for the transaction in ctx, serialising
// bookings of the same court.
func (r *Repository) Lock(ctx context.Context, courtID uuid.UUID) error {
	query := `SELECT id FROM courts WHERE id = $1 FOR UPDATE`
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, courtID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("court %s not found", courtID)
	}
	if err != nil {
		zap.L().Error("can't lock court", zap.Stringer("court", courtID), zap.Error(err))
		return err
	}
	return nil
}
