package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventRepository appends market events to the Postgres journal.  The
// journal is append-only and strictly observational: nothing in the engine
// reads it back to make decisions.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// eventRow is the flat journal row.  Payloads are stored as JSON so each
// event type keeps its own shape without schema churn.
type eventRow struct {
	ID       uuid.UUID       `db:"id"`
	Type     string          `db:"event_type"`
	MarketID uuid.UUID       `db:"market_id"`
	At       time.Time       `db:"occurred_at"`
	Payload  json.RawMessage `db:"payload"`
}

// Record appends one event.
func (r *EventRepository) Record(ctx context.Context, e *domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("event_repo.Record: marshal payload: %w", err)
	}
	row := eventRow{
		ID:       e.ID,
		Type:     string(e.Type),
		MarketID: e.MarketID,
		At:       e.At,
		Payload:  payload,
	}
	query := `
		INSERT INTO market_events
			(id, event_type, market_id, occurred_at, payload)
		VALUES
			(:id, :event_type, :market_id, :occurred_at, :payload)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("event_repo.Record: %w", err)
	}
	return nil
}

// ListByMarket returns a market's journal, oldest first, paginated.
func (r *EventRepository) ListByMarket(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM market_events WHERE market_id = $1 ORDER BY occurred_at ASC, id ASC LIMIT $2 OFFSET $3`,
		marketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListByMarket: %w", err)
	}
	return toEvents(rows), nil
}

// ListRecent returns the newest events across all markets.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM market_events ORDER BY occurred_at DESC, id DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListRecent: %w", err)
	}
	return toEvents(rows), nil
}

func toEvents(rows []eventRow) []*domain.Event {
	out := make([]*domain.Event, len(rows))
	for i, row := range rows {
		out[i] = &domain.Event{
			ID:       row.ID,
			Type:     domain.EventType(row.Type),
			MarketID: row.MarketID,
			At:       row.At,
			Payload:  row.Payload, // raw JSON; consumers decode by type
		}
	}
	return out
}
