package billing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TaxEnough/taxenough/core"
)

// EventStore keeps a durable log of applied webhook events. The redis dedupe
// cache is the fast idempotency path; this table is the audit trail and the
// backstop when the cache is cold.
type EventStore struct {
	pg *pgxpool.Pool
}

func NewEventStore(pg *pgxpool.Pool) *EventStore {
	return &EventStore{pg: pg}
}

// Record inserts the event; replays are silently ignored.
func (s *EventStore) Record(ctx context.Context, eventID, eventType, subject string, ent core.Entitlement) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO webhook_events (event_id, event_type, subject, status, plan, period_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, subject, string(ent.Status), string(ent.Plan), ent.PeriodEnd)
	return err
}

// Seen reports whether the event id was already applied.
func (s *EventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.pg.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id = $1)`, eventID).Scan(&exists)
	return exists, err
}

// PurgeBefore removes event rows older than the cutoff (retention sweep).
func (s *EventStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM webhook_events WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
