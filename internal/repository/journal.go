package repository

import (
	"context"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Journal bundles the event journal and the market read model behind the
// single write-side surface the market service records through.
type Journal struct {
	Events  *EventRepository
	Markets *MarketRepository
}

// NewJournal wires both repositories over one connection pool.
func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{
		Events:  NewEventRepository(db),
		Markets: NewMarketRepository(db),
	}
}

// RecordEvent appends one event to the journal.
func (j *Journal) RecordEvent(ctx context.Context, e *domain.Event) error {
	return j.Events.Record(ctx, e)
}

// SaveMarket upserts the market read model.
func (j *Journal) SaveMarket(ctx context.Context, m *domain.Market) error {
	return j.Markets.Save(ctx, m)
}
