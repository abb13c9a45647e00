package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAshrafM/FinStat-sub000/internal/config"
	"github.com/MAshrafM/FinStat-sub000/internal/database"
	"github.com/MAshrafM/FinStat-sub000/internal/models"
	"github.com/MAshrafM/FinStat-sub000/internal/portfolio"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStore struct {
	mu       sync.Mutex
	trades   map[uuid.UUID]*models.Trade
	quotes   map[string]*models.Quote
	tradeErr error
	quoteErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		trades: map[uuid.UUID]*models.Trade{},
		quotes: map[string]*models.Quote{},
	}
}

func (m *mockStore) CreateTrade(t *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tradeErr != nil {
		return m.tradeErr
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	m.trades[t.ID] = &cp
	return nil
}

func (m *mockStore) GetTradeByID(id uuid.UUID) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %s: %w", id, database.ErrNotFound)
	}
	return t, nil
}

func (m *mockStore) GetAllTrades() ([]*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tradeErr != nil {
		return nil, m.tradeErr
	}
	var out []*models.Trade
	for _, t := range m.trades {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockStore) UpdateTrade(t *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[t.ID]; !ok {
		return fmt.Errorf("trade %s: %w", t.ID, database.ErrNotFound)
	}
	cp := *t
	m.trades[t.ID] = &cp
	return nil
}

func (m *mockStore) DeleteTrade(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[id]; !ok {
		return fmt.Errorf("trade %s: %w", id, database.ErrNotFound)
	}
	delete(m.trades, id)
	return nil
}

func (m *mockStore) GetQuote(stockCode string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[stockCode]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", stockCode, database.ErrNotFound)
	}
	return q, nil
}

func (m *mockStore) GetAllQuotes() ([]*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Quote
	for _, q := range m.quotes {
		out = append(out, q)
	}
	return out, nil
}

func (m *mockStore) PriceMap() (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	prices := map[string]decimal.Decimal{}
	for code, q := range m.quotes {
		prices[code] = q.Price
	}
	return prices, nil
}

func (m *mockStore) Ping() error { return nil }

type mockCache struct {
	mu        sync.Mutex
	version   int64
	snapshots map[int64]*portfolio.Result
	prices    map[string]decimal.Decimal
	bumps     int
	sets      int
}

func newMockCache() *mockCache {
	return &mockCache{snapshots: map[int64]*portfolio.Result{}, prices: map[string]decimal.Decimal{}}
}

func (m *mockCache) Ping(ctx context.Context) error { return nil }

func (m *mockCache) LedgerVersion(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *mockCache) BumpLedgerVersion(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	m.bumps++
	return nil
}

func (m *mockCache) GetPortfolio(ctx context.Context, version int64) (*portfolio.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[version], nil
}

func (m *mockCache) SetPortfolio(ctx context.Context, version int64, result *portfolio.Result, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[version] = result
	m.sets++
	return nil
}

func (m *mockCache) GetPrice(ctx context.Context, stockCode string) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[stockCode]
	return p, ok, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockPublisher) record(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) PublishTradeCreated(ctx context.Context, t *models.Trade) error {
	return m.record(models.EventTradeCreated)
}
func (m *mockPublisher) PublishTradeUpdated(ctx context.Context, t *models.Trade) error {
	return m.record(models.EventTradeUpdated)
}
func (m *mockPublisher) PublishTradeDeleted(ctx context.Context, tradeID string) error {
	return m.record(models.EventTradeDeleted)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testConfig() *config.Config {
	return &config.Config{
		Portfolio: config.PortfolioConfig{
			MarginProfit: 0.20,
			SnapshotTTL:  time.Minute,
			PriceTTL:     time.Minute,
		},
	}
}

func setup(store LedgerStore, producer Publisher, cache Cache) http.Handler {
	return SetupRoutes(NewHandler(store, producer, cache, testConfig()))
}

func doRequest(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func buyTrade(code string, shares, price, total string) models.Trade {
	return models.Trade{
		Broker:        models.BrokerThndr,
		StockCode:     code,
		Type:          models.TradeTypeBuy,
		Shares:        mustDec(shares),
		PricePerShare: mustDec(price),
		TotalValue:    mustDec(total),
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ---------------------------------------------------------------------------
// Trade CRUD
// ---------------------------------------------------------------------------

func TestCreateTrade_BumpsVersionAndPublishes(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	producer := &mockPublisher{}
	h := setup(store, producer, cache)

	rec := doRequest(h, "POST", "/api/v1/trades", buyTrade("COMI", "100", "10", "1000"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, cache.bumps, "ledger version should be bumped")
	assert.Equal(t, []string{models.EventTradeCreated}, producer.events)

	var created models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateTrade_Validation(t *testing.T) {
	tests := []struct {
		name  string
		trade models.Trade
	}{
		{"unknown broker", models.Trade{Broker: "IBKR", Type: models.TradeTypeBuy, StockCode: "COMI", Date: time.Now()}},
		{"unknown type", models.Trade{Broker: models.BrokerThndr, Type: "Short", StockCode: "COMI", Date: time.Now()}},
		{"cash trade with stock code", models.Trade{Broker: models.BrokerThndr, Type: models.TradeTypeTopUp, StockCode: "COMI", Date: time.Now()}},
		{"stock trade without stock code", models.Trade{Broker: models.BrokerThndr, Type: models.TradeTypeBuy, Date: time.Now()}},
		{"missing date", models.Trade{Broker: models.BrokerThndr, Type: models.TradeTypeBuy, StockCode: "COMI"}},
	}

	h := setup(newMockStore(), &mockPublisher{}, newMockCache())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(h, "POST", "/api/v1/trades", tc.trade)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetTrade_NotFound(t *testing.T) {
	h := setup(newMockStore(), &mockPublisher{}, newMockCache())

	rec := doRequest(h, "GET", "/api/v1/trades/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, "GET", "/api/v1/trades/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTrade(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	producer := &mockPublisher{}
	h := setup(store, producer, cache)

	trade := buyTrade("COMI", "10", "50", "500")
	require.NoError(t, store.CreateTrade(&trade))

	rec := doRequest(h, "DELETE", "/api/v1/trades/"+trade.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, cache.bumps)
	assert.Equal(t, []string{models.EventTradeDeleted}, producer.events)

	rec = doRequest(h, "DELETE", "/api/v1/trades/"+trade.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Portfolio endpoint
// ---------------------------------------------------------------------------

func TestGetPortfolio_ComputesFromLedger(t *testing.T) {
	store := newMockStore()
	trade := buyTrade("COMI", "50", "20", "1000")
	require.NoError(t, store.CreateTrade(&trade))
	store.quotes["COMI"] = &models.Quote{StockCode: "COMI", Price: mustDec("25")}

	h := setup(store, &mockPublisher{}, nil)

	rec := doRequest(h, "GET", "/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result portfolio.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.OpenPositions, 1)
	assert.Equal(t, "1250", result.OpenPositions[0].TotalValueNow.String())
	assert.Equal(t, "250", result.OpenPositions[0].UnrealizedPL.String())
}

func TestGetPortfolio_CachesSnapshot(t *testing.T) {
	store := newMockStore()
	trade := buyTrade("COMI", "50", "20", "1000")
	require.NoError(t, store.CreateTrade(&trade))
	cache := newMockCache()
	h := setup(store, &mockPublisher{}, cache)

	rec := doRequest(h, "GET", "/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cache.sets, "first read should populate the snapshot cache")

	// Second read hits the cache; no new snapshot is written.
	rec = doRequest(h, "GET", "/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cache.sets)
}

func TestGetPortfolio_MutationInvalidatesSnapshot(t *testing.T) {
	store := newMockStore()
	trade := buyTrade("COMI", "50", "20", "1000")
	require.NoError(t, store.CreateTrade(&trade))
	cache := newMockCache()
	h := setup(store, &mockPublisher{}, cache)

	doRequest(h, "GET", "/api/v1/portfolio", nil)
	require.Equal(t, 1, cache.sets)

	// A new trade bumps the ledger version, so the old snapshot no longer
	// matches and the next read recomputes.
	rec := doRequest(h, "POST", "/api/v1/trades", buyTrade("SWDY", "10", "30", "300"))
	require.Equal(t, http.StatusCreated, rec.Code)

	doRequest(h, "GET", "/api/v1/portfolio", nil)
	assert.Equal(t, 2, cache.sets, "recompute expected after ledger mutation")
}

func TestGetPortfolio_LedgerFailureIsHard(t *testing.T) {
	store := newMockStore()
	store.tradeErr = assert.AnError
	h := setup(store, &mockPublisher{}, nil)

	rec := doRequest(h, "GET", "/api/v1/portfolio", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetPortfolio_PriceFailureDegrades(t *testing.T) {
	store := newMockStore()
	trade := buyTrade("COMI", "50", "20", "1000")
	require.NoError(t, store.CreateTrade(&trade))
	store.quoteErr = assert.AnError
	h := setup(store, &mockPublisher{}, nil)

	rec := doRequest(h, "GET", "/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result portfolio.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.OpenPositions, 1)
	assert.True(t, result.OpenPositions[0].PriceUnavailable)
	assert.Equal(t, "0", result.OpenPositions[0].TotalValueNow.String())
}

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

func TestGetQuote_CacheReadThrough(t *testing.T) {
	store := newMockStore()
	store.quotes["COMI"] = &models.Quote{StockCode: "COMI", Price: mustDec("60")}
	cache := newMockCache()
	cache.prices["COMI"] = mustDec("62.5")
	h := setup(store, &mockPublisher{}, cache)

	// Cached price wins.
	rec := doRequest(h, "GET", "/api/v1/quotes/COMI", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q models.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "62.5", q.Price.String())

	// Uncached code falls back to the store.
	store.quotes["SWDY"] = &models.Quote{StockCode: "SWDY", Price: mustDec("28.4")}
	rec = doRequest(h, "GET", "/api/v1/quotes/SWDY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "28.4", q.Price.String())

	// Unknown everywhere: 404.
	rec = doRequest(h, "GET", "/api/v1/quotes/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := setup(newMockStore(), &mockPublisher{}, newMockCache())

	rec := doRequest(h, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}
