package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benjp009/loyeo/internal/ledger"
)

// Store persists messaging_events rows:
// (id, message_id, message_type, channel, status, phone_hash, cost_cents,
//  error_code, error_message, created_at, updated_at)
type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) InsertEvent(ctx context.Context, ev ledger.Event) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO messaging_events
			(message_id, message_type, channel, status, phone_hash, cost_cents, error_code, error_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
	`, nullIfEmpty(ev.MessageID), ev.MessageType, ev.Channel, ev.Status, ev.PhoneHash,
		ev.CostCents, nullIfEmpty(ev.ErrorCode), nullIfEmpty(ev.ErrorMessage), ev.CreatedAt)
	return err
}

// UpdateStatus applies a webhook-driven transition, but only forward:
// a row is overwritten only when its current status is not further along
// the queued -> sent -> delivered -> read progression than the new one.
// Returns false when no row matched (unknown message id or stale update).
func (s *Store) UpdateStatus(ctx context.Context, in ledger.StatusUpdate) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE messaging_events
		SET status=$2, error_code=$3, error_message=$4, updated_at=$5
		WHERE message_id=$1
		  AND (CASE status
		         WHEN 'queued' THEN 0
		         WHEN 'sent' THEN 1
		         WHEN 'delivered' THEN 2
		         WHEN 'read' THEN 3
		         ELSE 4
		       END) <= $6
	`, in.MessageID, in.Status, nullIfEmpty(in.ErrorCode), nullIfEmpty(in.ErrorMessage), in.Now, in.StatusRank)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) GetEvent(ctx context.Context, messageID string) (ledger.Event, bool, error) {
	var ev ledger.Event
	row := s.DB.QueryRow(ctx, `
		SELECT message_id, message_type, channel, status, phone_hash, cost_cents,
		       COALESCE(error_code,''), COALESCE(error_message,''), created_at, updated_at
		FROM messaging_events WHERE message_id=$1
	`, messageID)

	err := row.Scan(&ev.MessageID, &ev.MessageType, &ev.Channel, &ev.Status, &ev.PhoneHash,
		&ev.CostCents, &ev.ErrorCode, &ev.ErrorMessage, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return ledger.Event{}, false, nil
		}
		return ledger.Event{}, false, err
	}
	return ev, true, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
