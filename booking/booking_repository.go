package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct{ db DB }

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `id, resource_type, resource_id, resource_name, resource_location,
	requester_id, requester_name, requester_email, start_date, end_date, slot, occupancy,
	unit_price, total_price, status, admin_notes, rejection_reason, cancelled_by, cancelled_at,
	created_at, updated_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.ResourceType,
		&b.ResourceID,
		&b.ResourceName,
		&b.ResourceLocation,
		&b.RequesterID,
		&b.RequesterName,
		&b.RequesterEmail,
		&b.StartDate,
		&b.EndDate,
		&b.Slot,
		&b.Occupancy,
		&b.UnitPrice,
		&b.ComputedTotalPrice,
		&b.Status,
		&b.AdminNotes,
		&b.RejectionReason,
		&b.CancelledBy,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func collectBookings(rows pgx.Rows, op string) ([]Booking, error) {
	defer rows.Close()

	bookings := []Booking{}

	for rows.Next() {
		b, err := scanBooking(rows)

		if err != nil {
			return nil, fmt.Errorf("error scanning booking row: %w", err)
		}

		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	return bookings, nil
}

func (r *Repository) ListBookings(ctx context.Context, resourceType ResourceType, filter ListFilter, page Page) ([]Booking, error) {
	sql := `SELECT ` + bookingColumns + `
            FROM "camping".booking
            WHERE resource_type=$1
              AND ($2 = '' OR status=$2)
              AND ($3 = '' OR requester_id=$3)
            ORDER BY created_at DESC
            LIMIT $4 OFFSET $5;
        `

	page = page.Normalize()
	rows, err := r.db.Query(ctx, sql, resourceType, filter.Status, filter.RequesterID, page.Size, page.Offset())

	if err != nil {
		return nil, &NetworkError{Op: fmt.Sprintf("failed to fetch %v bookings", resourceType), Err: err}
	}

	return collectBookings(rows, "failed to iterate bookings")
}

func (r *Repository) ListHolds(ctx context.Context, resourceType ResourceType, resourceID string) ([]Booking, error) {
	sql := `SELECT ` + bookingColumns + `
            FROM "camping".booking
            WHERE resource_type=$1 AND resource_id=$2 AND status IN ('pending', 'approved');
        `

	rows, err := r.db.Query(ctx, sql, resourceType, resourceID)

	if err != nil {
		return nil, &NetworkError{Op: fmt.Sprintf("failed to fetch holds on %v '%v'", resourceType, resourceID), Err: err}
	}

	return collectBookings(rows, "failed to iterate holds")
}

func (r *Repository) ListApprovedEndingBefore(ctx context.Context, t time.Time) ([]Booking, error) {
	sql := `SELECT ` + bookingColumns + `
            FROM "camping".booking
            WHERE status='approved' AND end_date < $1;
        `

	rows, err := r.db.Query(ctx, sql, t)

	if err != nil {
		return nil, &NetworkError{Op: "failed to fetch elapsed bookings", Err: err}
	}

	return collectBookings(rows, "failed to iterate elapsed bookings")
}

func (r *Repository) GetBookingByID(ctx context.Context, id string) (Booking, error) {
	sql := `SELECT ` + bookingColumns + `
			FROM "camping".booking
			WHERE id=$1;
		`

	booking, err := scanBooking(r.db.QueryRow(ctx, sql, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}

	if err != nil {
		return Booking{}, &NetworkError{Op: fmt.Sprintf("failed to fetch booking with id %v", id), Err: err}
	}

	return booking, nil
}

func (r *Repository) GetBookingsPerRequester(ctx context.Context, requesterID string) ([]Booking, error) {
	sql := `SELECT ` + bookingColumns + `
            FROM "camping".booking
            WHERE requester_id=$1
            ORDER BY created_at DESC;
        `

	rows, err := r.db.Query(ctx, sql, requesterID)

	if err != nil {
		return nil, &NetworkError{Op: fmt.Sprintf("failed to fetch bookings for requester '%v'", requesterID), Err: err}
	}

	return collectBookings(rows, "failed to iterate bookings")
}

func (r *Repository) InsertBooking(ctx context.Context, booking Booking) (Booking, error) {
	sql := `
			INSERT INTO "camping".booking(` + bookingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
		`

	booking.ID = uuid.NewString()

	_, err := r.db.Exec(ctx, sql,
		booking.ID,
		booking.ResourceType,
		booking.ResourceID,
		booking.ResourceName,
		booking.ResourceLocation,
		booking.RequesterID,
		booking.RequesterName,
		booking.RequesterEmail,
		booking.StartDate,
		booking.EndDate,
		booking.Slot,
		booking.Occupancy,
		booking.UnitPrice,
		booking.ComputedTotalPrice,
		booking.Status,
		booking.AdminNotes,
		booking.RejectionReason,
		booking.CancelledBy,
		booking.CancelledAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		return Booking{}, &NetworkError{Op: "failed to insert booking", Err: err}
	}

	return booking, nil
}

// UpdateBookingStatus writes the lifecycle fields only if the stored status is
// still from, so a concurrent writer elsewhere cannot be overwritten.
func (r *Repository) UpdateBookingStatus(ctx context.Context, booking Booking, from Status) error {
	sql := `
            UPDATE "camping".booking
            SET status=$1, admin_notes=$2, rejection_reason=$3, cancelled_by=$4, cancelled_at=$5, updated_at=$6
            WHERE id=$7 AND status=$8;
        `

	tag, err := r.db.Exec(ctx, sql,
		booking.Status,
		booking.AdminNotes,
		booking.RejectionReason,
		booking.CancelledBy,
		booking.CancelledAt,
		booking.UpdatedAt,
		booking.ID,
		from,
	)

	if err != nil {
		return &NetworkError{Op: fmt.Sprintf("failed to update booking '%v' status", booking.ID), Err: err}
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidBookingState
	}

	return nil
}

func (r *Repository) DeleteBooking(ctx context.Context, id string) error {
	sql := `DELETE FROM "camping".booking WHERE id=$1 AND status IN ('cancelled', 'rejected');`

	tag, err := r.db.Exec(ctx, sql, id)

	if err != nil {
		return &NetworkError{Op: fmt.Sprintf("failed to delete booking '%v'", id), Err: err}
	}

	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (r *Repository) GetStats(ctx context.Context, resourceType ResourceType) (StatusCounts, error) {
	sql := `
		SELECT status, COUNT(*) AS booking_count FROM "camping".booking
		WHERE resource_type=$1
		GROUP BY status
	`

	rows, err := r.db.Query(ctx, sql, resourceType)

	if err != nil {
		return StatusCounts{}, &NetworkError{Op: fmt.Sprintf("failed to fetch %v stats", resourceType), Err: err}
	}

	defer rows.Close()

	stats := StatusCounts{}

	for rows.Next() {
		var status Status
		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, fmt.Errorf("failed to scan row: %w", err)
		}

		stats.Increment(status, count)
	}

	if err := rows.Err(); err != nil {
		return StatusCounts{}, &NetworkError{Op: "error iterating stats rows", Err: err}
	}

	return stats, nil
}
