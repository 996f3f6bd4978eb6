package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MarketRepository maintains the Postgres read model of market state.  The
// engine itself is in-memory; this table exists so dashboards and restarts
// can see the last persisted state of every market.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// marketRow flattens domain.Market for Postgres.  Fixed-point amounts are
// stored as NUMERIC and scanned as decimal strings to keep full precision.
type marketRow struct {
	ID                uuid.UUID  `db:"id"`
	ContentRef        string     `db:"content_ref"`
	Paused            bool       `db:"paused"`
	CreatedAt         time.Time  `db:"created_at"`
	FirstAsset        string     `db:"first_asset"`
	SecondAsset       string     `db:"second_asset"`
	CollateralAsset   string     `db:"collateral_asset"`
	ResolvedAt        *time.Time `db:"resolved_at"`
	WinnerSide        *int16     `db:"winner_side"`
	FeeBps            int64      `db:"fee_bps"`
	Liquidity         string     `db:"liquidity"`
	SupplyFirst       string     `db:"supply_first"`
	SupplySecond      string     `db:"supply_second"`
	CollateralBalance string     `db:"collateral_balance"`
	FeeBalance        string     `db:"fee_balance"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Save upserts the full current state of a market.
func (r *MarketRepository) Save(ctx context.Context, m *domain.Market) error {
	row := marketRow{
		ID:                m.ID,
		ContentRef:        m.ContentRef,
		Paused:            m.Paused,
		CreatedAt:         m.CreatedAt,
		FirstAsset:        string(m.Outcomes[0].Asset),
		SecondAsset:       string(m.Outcomes[1].Asset),
		CollateralAsset:   string(m.CollateralAsset),
		ResolvedAt:        m.ResolvedAt,
		FeeBps:            m.Config.FeeBps,
		Liquidity:         m.Config.Liquidity.String(),
		SupplyFirst:       m.Supplies[0].String(),
		SupplySecond:      m.Supplies[1].String(),
		CollateralBalance: m.CollateralBalance.String(),
		FeeBalance:        m.FeeBalance.String(),
		UpdatedAt:         time.Now().UTC(),
	}
	if m.Winner != nil {
		side := int16(m.Winner.Side)
		row.WinnerSide = &side
	}
	query := `
		INSERT INTO markets
			(id, content_ref, paused, created_at, first_asset, second_asset,
			 collateral_asset, resolved_at, winner_side, fee_bps, liquidity,
			 supply_first, supply_second, collateral_balance, fee_balance, updated_at)
		VALUES
			(:id, :content_ref, :paused, :created_at, :first_asset, :second_asset,
			 :collateral_asset, :resolved_at, :winner_side, :fee_bps, :liquidity,
			 :supply_first, :supply_second, :collateral_balance, :fee_balance, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			content_ref        = EXCLUDED.content_ref,
			paused             = EXCLUDED.paused,
			resolved_at        = EXCLUDED.resolved_at,
			winner_side        = EXCLUDED.winner_side,
			fee_bps            = EXCLUDED.fee_bps,
			supply_first       = EXCLUDED.supply_first,
			supply_second      = EXCLUDED.supply_second,
			collateral_balance = EXCLUDED.collateral_balance,
			fee_balance        = EXCLUDED.fee_balance,
			updated_at         = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("market_repo.Save: %w", err)
	}
	return nil
}

// GetByID fetches the persisted state of one market.
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	var row marketRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return toMarket(&row)
}

// List returns persisted markets in creation order, paginated.
func (r *MarketRepository) List(ctx context.Context, limit, offset int) ([]*domain.Market, error) {
	var rows []marketRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM markets ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_repo.List: %w", err)
	}
	out := make([]*domain.Market, 0, len(rows))
	for i := range rows {
		m, err := toMarket(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func toMarket(row *marketRow) (*domain.Market, error) {
	liquidity, err := fixedpoint.Parse(row.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("market_repo: liquidity %q: %w", row.Liquidity, err)
	}
	supplyFirst, err := fixedpoint.Parse(row.SupplyFirst)
	if err != nil {
		return nil, fmt.Errorf("market_repo: supply_first %q: %w", row.SupplyFirst, err)
	}
	supplySecond, err := fixedpoint.Parse(row.SupplySecond)
	if err != nil {
		return nil, fmt.Errorf("market_repo: supply_second %q: %w", row.SupplySecond, err)
	}
	collateral, err := fixedpoint.Parse(row.CollateralBalance)
	if err != nil {
		return nil, fmt.Errorf("market_repo: collateral_balance %q: %w", row.CollateralBalance, err)
	}
	feeBalance, err := fixedpoint.Parse(row.FeeBalance)
	if err != nil {
		return nil, fmt.Errorf("market_repo: fee_balance %q: %w", row.FeeBalance, err)
	}

	m := &domain.Market{
		ID:         row.ID,
		ContentRef: row.ContentRef,
		Paused:     row.Paused,
		CreatedAt:  row.CreatedAt,
		Outcomes: [2]domain.Outcome{
			{Side: domain.SideFirst, Asset: domain.AssetTag(row.FirstAsset)},
			{Side: domain.SideSecond, Asset: domain.AssetTag(row.SecondAsset)},
		},
		CollateralAsset: domain.AssetTag(row.CollateralAsset),
		ResolvedAt:      row.ResolvedAt,
		Config: domain.MarketConfig{
			FeeBps:    row.FeeBps,
			Liquidity: liquidity,
		},
		CollateralBalance: collateral,
		FeeBalance:        feeBalance,
		Supplies:          [2]fixedpoint.Value{supplyFirst, supplySecond},
	}
	if row.WinnerSide != nil {
		side := domain.Side(*row.WinnerSide)
		if !side.IsValid() {
			return nil, fmt.Errorf("market_repo: invalid winner side %d for %s", *row.WinnerSide, row.ID)
		}
		w := m.Outcomes[int(side)]
		m.Winner = &w
	}
	return m, nil
}
