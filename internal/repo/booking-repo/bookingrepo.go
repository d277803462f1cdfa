package bookingrepo

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

const bookingColumns = `id, user_id, booking_date, status, total_time, total_price, total_paid,
		remaining_balance, initial_deposit, note, cancellation_reason, cancelled_at, created_at, updated_at`

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

func (r *Repository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, booking_date, status, total_time, total_price, total_paid,
			remaining_balance, initial_deposit, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	detailQuery := `
		INSERT INTO booking_details (id, booking_id, court_id, start_time, end_time, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	return r.txManager.Begin(ctx, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, b.ID, b.UserID, pg.Date(b.BookingDate), b.Status, b.TotalTime, b.TotalPrice,
			b.TotalPaid, b.RemainingBalance, b.InitialDeposit, b.Note, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			zap.L().Error("can't save booking", zap.Stringer("id", b.ID), zap.Error(err))
			return err
		}
		for _, d := range b.Details {
			_, err := r.db.Exec(ctx, detailQuery, d.ID, b.ID, d.CourtID, pg.TimeOfDay(d.StartTime), pg.TimeOfDay(d.EndTime), d.TotalPrice)
			if err != nil {
				zap.L().Error("can't save booking detail", zap.Stringer("booking", b.ID), zap.Error(err))
				return err
			}
		}
		return nil
	})
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.find(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// FindByIDForUpdate loads the booking and holds its row lock until the
// transaction in ctx ends. Writers that change the status go through it.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.find(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) find(ctx context.Context, query string, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("booking %s not found", id)
	}
	if err != nil {
		zap.L().Error("can't find booking", zap.Stringer("id", id), zap.Error(err))
		return nil, err
	}

	details, err := r.findDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Details = details
	return b, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY booking_date DESC, created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get bookings", zap.Stringer("user", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			zap.L().Error("can't scan booking row", zap.Error(err))
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate booking rows", zap.Error(err))
		return nil, err
	}
	return bookings, nil
}

func (r *Repository) findDetails(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingDetail, error) {
	query := `
		SELECT id, booking_id, court_id, start_time, end_time, total_price
		FROM booking_details
		WHERE booking_id = $1
		ORDER BY start_time ASC
	`
	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		zap.L().Error("can't get booking details", zap.Stringer("booking", bookingID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var details []domain.BookingDetail
	for rows.Next() {
		var (
			d          domain.BookingDetail
			start, end pgtype.Time
		)
		if err := rows.Scan(&d.ID, &d.BookingID, &d.CourtID, &start, &end, &d.TotalPrice); err != nil {
			zap.L().Error("can't scan booking detail row", zap.Error(err))
			return nil, err
		}
		d.StartTime = pg.Duration(start)
		d.EndTime = pg.Duration(end)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate booking detail rows", zap.Error(err))
		return nil, err
	}
	return details, nil
}

// Update stores the mutable part of the aggregate. Details never change
// after creation.
func (r *Repository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, total_time = $2, total_price = $3, total_paid = $4, remaining_balance = $5,
			initial_deposit = $6, cancellation_reason = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $10
	`
	tag, err := r.db.Exec(ctx, query, b.Status, b.TotalTime, b.TotalPrice, b.TotalPaid, b.RemainingBalance,
		b.InitialDeposit, b.CancellationReason, b.CancelledAt, b.UpdatedAt, b.ID)
	if err != nil {
		zap.L().Error("can't update booking", zap.Stringer("id", b.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("booking %s not found", b.ID)
	}
	return nil
}

// HasOverlap reports whether an active booking already holds any part of
// [start, end) on the court for that date.
func (r *Repository) HasOverlap(ctx context.Context, courtID uuid.UUID, date time.Time, start, end time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM booking_details d
			JOIN bookings b ON b.id = d.booking_id
			WHERE d.court_id = $1 AND b.booking_date = $2 AND b.status <> $3
				AND d.start_time < $5 AND $4 < d.end_time
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, courtID, pg.Date(date), domain.BookingStatusCancelled, pg.TimeOfDay(start), pg.TimeOfDay(end)).Scan(&exists)
	if err != nil {
		zap.L().Error("can't check booking overlap", zap.Stringer("court", courtID), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.BookingDate, &b.Status, &b.TotalTime, &b.TotalPrice, &b.TotalPaid,
		&b.RemainingBalance, &b.InitialDeposit, &b.Note, &b.CancellationReason, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
