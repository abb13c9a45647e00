package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// CreateTrade appends a new entry to the ledger.
func (db *DB) CreateTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (
			id, broker, stock_code, type, shares, price_per_share,
			fees, total_value, iteration, trade_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	_, err := db.conn.Exec(query,
		t.ID, t.Broker, nullString(t.StockCode), t.Type, t.Shares, t.PricePerShare,
		t.Fees, t.TotalValue, nullInt(t.Iteration), t.Date, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTradeByID retrieves a single ledger entry.
func (db *DB) GetTradeByID(id uuid.UUID) (*models.Trade, error) {
	query := `
		SELECT id, broker, stock_code, type, shares, price_per_share,
		       fees, total_value, iteration, trade_date, created_at, updated_at
		FROM trades
		WHERE id = $1
	`
	t, err := scanTrade(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %s: %w", id, err)
	}
	return t, nil
}

// GetAllTrades returns the full ledger, oldest first.
func (db *DB) GetAllTrades() ([]*models.Trade, error) {
	query := `
		SELECT id, broker, stock_code, type, shares, price_per_share,
		       fees, total_value, iteration, trade_date, created_at, updated_at
		FROM trades
		ORDER BY trade_date, created_at
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}

	return trades, nil
}

// UpdateTrade replaces an existing ledger entry.
func (db *DB) UpdateTrade(t *models.Trade) error {
	query := `
		UPDATE trades SET
			broker = $2, stock_code = $3, type = $4, shares = $5,
			price_per_share = $6, fees = $7, total_value = $8,
			iteration = $9, trade_date = $10, updated_at = $11
		WHERE id = $1
	`
	t.UpdatedAt = time.Now()
	result, err := db.conn.Exec(query,
		t.ID, t.Broker, nullString(t.StockCode), t.Type, t.Shares,
		t.PricePerShare, t.Fees, t.TotalValue,
		nullInt(t.Iteration), t.Date, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTrade removes a ledger entry by ID.
func (db *DB) DeleteTrade(id uuid.UUID) error {
	result, err := db.conn.Exec(`DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*models.Trade, error) {
	var t models.Trade
	var stockCode sql.NullString
	var iteration sql.NullInt64

	err := s.Scan(
		&t.ID, &t.Broker, &stockCode, &t.Type, &t.Shares, &t.PricePerShare,
		&t.Fees, &t.TotalValue, &iteration, &t.Date, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if stockCode.Valid {
		t.StockCode = stockCode.String
	}
	if iteration.Valid {
		iter := int(iteration.Int64)
		t.Iteration = &iter
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
