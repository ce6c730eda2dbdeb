// Package ledger persists investment transactions and computes the report
// aggregates served by the premium API.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a transaction id does not exist for the owner.
var ErrNotFound = errors.New("ledger: transaction not found")

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Transaction is one ledger entry. Amounts are stored as numeric strings to
// avoid float drift; handlers pass them through verbatim.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"-"`
	Date      time.Time `json:"date"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Shares    string    `json:"shares"`
	Price     string    `json:"price"`
	Fees      string    `json:"fees,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the per-symbol aggregate used by the reports API.
type Summary struct {
	Symbol     string `json:"symbol"`
	BuyCount   int64  `json:"buy_count"`
	SellCount  int64  `json:"sell_count"`
	NetShares  string `json:"net_shares"`
	GrossSpent string `json:"gross_spent"`
	GrossSold  string `json:"gross_sold"`
}

// Store provides transaction CRUD keyed by owner subject.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// List returns the owner's transactions, newest trade date first.
func (s *Store) List(ctx context.Context, owner string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	rows, err := s.pg.Query(ctx, `
		SELECT id, owner, trade_date, symbol, side, shares::text, price::text, fees::text, notes, created_at
		FROM transactions WHERE owner = $1
		ORDER BY trade_date DESC, created_at DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Owner, &t.Date, &t.Symbol, &t.Side, &t.Shares, &t.Price, &t.Fees, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a transaction and returns it with generated fields filled.
func (s *Store) Create(ctx context.Context, t Transaction) (*Transaction, error) {
	t.ID = uuid.New()
	if strings.TrimSpace(t.Fees) == "" {
		t.Fees = "0"
	}
	err := s.pg.QueryRow(ctx, `
		INSERT INTO transactions (id, owner, trade_date, symbol, side, shares, price, fees, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		t.ID, t.Owner, t.Date, t.Symbol, t.Side, t.Shares, t.Price, t.Fees, t.Notes).
		Scan(&t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a transaction if the owner matches.
func (s *Store) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Summarize aggregates the owner's ledger per symbol.
func (s *Store) Summarize(ctx context.Context, owner string) ([]Summary, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT symbol,
			COUNT(*) FILTER (WHERE side = 'buy'),
			COUNT(*) FILTER (WHERE side = 'sell'),
			COALESCE(SUM(CASE WHEN side = 'buy' THEN shares ELSE -shares END), 0)::text,
			COALESCE(SUM(CASE WHEN side = 'buy' THEN shares * price + fees ELSE 0 END), 0)::text,
			COALESCE(SUM(CASE WHEN side = 'sell' THEN shares * price - fees ELSE 0 END), 0)::text
		FROM transactions WHERE owner = $1
		GROUP BY symbol ORDER BY symbol`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Symbol, &sm.BuyCount, &sm.SellCount, &sm.NetShares, &sm.GrossSpent, &sm.GrossSold); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
