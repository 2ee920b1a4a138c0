package notification

import (
	"context"
	"errors"

	"github.com/hanksha/camping-booking-backend/booking"
	"github.com/jackc/pgx/v5"
)

// Repository is the server side notification record, one row per recipient.
type Repository struct{ db booking.DB }

func NewRepository(db booking.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID string, e Event) error {
	sql := `
			INSERT INTO "camping".notification (id, user_id, type, title, message, severity, metadata, read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`

	metadata := e.Metadata

	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.db.Exec(ctx, sql, e.ID, userID, e.Type, e.Title, e.Message, e.Severity, metadata, e.Read, e.Timestamp)

	if err != nil {
		return &booking.NetworkError{Op: "failed to create notification", Err: err}
	}

	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, page booking.Page) ([]Event, error) {
	page = page.Normalize()
	sql := `
			SELECT id, type, title, message, severity, metadata, read, created_at
			FROM "camping".notification
			WHERE user_id=$1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3;
		`

	rows, err := r.db.Query(ctx, sql, userID, page.Size, page.Offset())

	if err != nil {
		return nil, &booking.NetworkError{Op: "failed to list notifications", Err: err}
	}

	defer rows.Close()

	events := []Event{}

	for rows.Next() {
		e := Event{Target: Target{UserID: userID}}

		if err := rows.Scan(&e.ID, &e.Type, &e.Title, &e.Message, &e.Severity, &e.Metadata, &e.Read, &e.Timestamp); err != nil {
			return nil, &booking.NetworkError{Op: "failed to read notification", Err: err}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, &booking.NetworkError{Op: "failed to list notifications", Err: err}
	}

	return events, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, id string) error {
	sql := `
			UPDATE "camping".notification
			SET read=true
			WHERE user_id=$1 AND id=$2;
		`

	tag, err := r.db.Exec(ctx, sql, userID, id)

	if err != nil {
		return &booking.NetworkError{Op: "failed to mark notification read", Err: err}
	}

	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func (r *Repository) UnreadCount(ctx context.Context, userID string) (int, error) {
	sql := `
			SELECT count(*)
			FROM "camping".notification
			WHERE user_id=$1 AND NOT read;
		`

	var count int

	if err := r.db.QueryRow(ctx, sql, userID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, &booking.NetworkError{Op: "failed to count unread notifications", Err: err}
	}

	return count, nil
}
