package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// UpsertQuote stores the latest market price for a stock code.
func (db *DB) UpsertQuote(q *models.Quote) error {
	query := `
		INSERT INTO quotes (stock_code, price, as_of, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stock_code)
		DO UPDATE SET
			price = EXCLUDED.price,
			as_of = EXCLUDED.as_of,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	_, err := db.conn.Exec(query, q.StockCode, q.Price, q.AsOf, now)
	if err != nil {
		return fmt.Errorf("failed to upsert quote %s: %w", q.StockCode, err)
	}
	q.UpdatedAt = now
	return nil
}

// GetQuote retrieves the latest price for one stock code.
func (db *DB) GetQuote(stockCode string) (*models.Quote, error) {
	query := `
		SELECT stock_code, price, as_of, updated_at
		FROM quotes
		WHERE stock_code = $1
	`
	var q models.Quote
	err := db.conn.QueryRow(query, stockCode).Scan(&q.StockCode, &q.Price, &q.AsOf, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quote %s: %w", stockCode, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote %s: %w", stockCode, err)
	}
	return &q, nil
}

// GetAllQuotes returns every stored quote.
func (db *DB) GetAllQuotes() ([]*models.Quote, error) {
	query := `
		SELECT stock_code, price, as_of, updated_at
		FROM quotes
		ORDER BY stock_code
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.StockCode, &q.Price, &q.AsOf, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quotes: %w", err)
	}

	return quotes, nil
}

// PriceMap assembles the stored quotes into a price lookup for the
// portfolio computation.
func (db *DB) PriceMap() (map[string]decimal.Decimal, error) {
	quotes, err := db.GetAllQuotes()
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		prices[q.StockCode] = q.Price
	}
	return prices, nil
}
