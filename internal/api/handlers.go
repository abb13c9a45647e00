package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/config"
	"github.com/MAshrafM/FinStat-sub000/internal/database"
	"github.com/MAshrafM/FinStat-sub000/internal/metrics"
	"github.com/MAshrafM/FinStat-sub000/internal/models"
	"github.com/MAshrafM/FinStat-sub000/internal/portfolio"
)

// LedgerStore defines the database operations the handlers depend on.
type LedgerStore interface {
	CreateTrade(t *models.Trade) error
	GetTradeByID(id uuid.UUID) (*models.Trade, error)
	GetAllTrades() ([]*models.Trade, error)
	UpdateTrade(t *models.Trade) error
	DeleteTrade(id uuid.UUID) error
	GetQuote(stockCode string) (*models.Quote, error)
	GetAllQuotes() ([]*models.Quote, error)
	PriceMap() (map[string]decimal.Decimal, error)
	Ping() error
}

// Cache defines the optional Redis-backed caching operations.
type Cache interface {
	Ping(ctx context.Context) error
	LedgerVersion(ctx context.Context) (int64, error)
	BumpLedgerVersion(ctx context.Context) error
	GetPortfolio(ctx context.Context, version int64) (*portfolio.Result, error)
	SetPortfolio(ctx context.Context, version int64, result *portfolio.Result, ttl time.Duration) error
	GetPrice(ctx context.Context, stockCode string) (decimal.Decimal, bool, error)
}

// Publisher defines the ledger event publishing operations.
type Publisher interface {
	PublishTradeCreated(ctx context.Context, t *models.Trade) error
	PublishTradeUpdated(ctx context.Context, t *models.Trade) error
	PublishTradeDeleted(ctx context.Context, tradeID string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store       LedgerStore
	producer    Publisher
	cache       Cache
	engineCfg   portfolio.Config
	snapshotTTL time.Duration
}

// NewHandler creates a new Handler
func NewHandler(store LedgerStore, producer Publisher, cache Cache, cfg *config.Config) *Handler {
	return &Handler{
		store:       store,
		producer:    producer,
		cache:       cache,
		engineCfg:   portfolio.Config{MarginProfit: decimal.NewFromFloat(cfg.Portfolio.MarginProfit)},
		snapshotTTL: cfg.Portfolio.SnapshotTTL,
	}
}

// GetAllTrades handles GET /trades
func (h *Handler) GetAllTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.GetAllTrades()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET /trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	trade, err := h.store.GetTradeByID(id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// CreateTrade handles POST /trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if msg := validateTrade(&trade); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.store.CreateTrade(&trade); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.afterMutation(r.Context(), func(ctx context.Context) error {
		return h.producer.PublishTradeCreated(ctx, &trade)
	})

	respondJSON(w, http.StatusCreated, trade)
}

// UpdateTrade handles PUT /trades/{id}
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	trade.ID = id

	if msg := validateTrade(&trade); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateTrade(&trade); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.afterMutation(r.Context(), func(ctx context.Context) error {
		return h.producer.PublishTradeUpdated(ctx, &trade)
	})

	respondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteTrade(id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.afterMutation(r.Context(), func(ctx context.Context) error {
		return h.producer.PublishTradeDeleted(ctx, id.String())
	})

	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /portfolio. It recomputes the full position
// view from the ledger, serving a cached snapshot when the ledger version
// has not moved.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	version := int64(-1)
	if h.cache != nil {
		v, err := h.cache.LedgerVersion(ctx)
		if err != nil {
			log.Printf("Warning: ledger version lookup failed: %v", err)
		} else {
			version = v
			cached, err := h.cache.GetPortfolio(ctx, v)
			if err != nil {
				log.Printf("Warning: snapshot cache read failed: %v", err)
			} else if cached != nil {
				metrics.SnapshotCache.WithLabelValues("hit").Inc()
				respondJSON(w, http.StatusOK, cached)
				return
			}
			metrics.SnapshotCache.WithLabelValues("miss").Inc()
		}
	}

	// Fetch the ledger and the price map concurrently.
	type tradesResult struct {
		trades []*models.Trade
		err    error
	}
	type pricesResult struct {
		prices map[string]decimal.Decimal
		err    error
	}
	tradesCh := make(chan tradesResult, 1)
	pricesCh := make(chan pricesResult, 1)
	go func() {
		trades, err := h.store.GetAllTrades()
		tradesCh <- tradesResult{trades, err}
	}()
	go func() {
		prices, err := h.store.PriceMap()
		pricesCh <- pricesResult{prices, err}
	}()
	tr := <-tradesCh
	pr := <-pricesCh

	// An unreachable ledger is a hard failure; the engine never fabricates
	// trades. Missing prices only degrade the valuation.
	if tr.err != nil {
		http.Error(w, tr.err.Error(), http.StatusInternalServerError)
		return
	}
	if pr.err != nil {
		log.Printf("Warning: price map unavailable, valuing at zero: %v", pr.err)
		pr.prices = nil
	}

	trades := make([]models.Trade, len(tr.trades))
	for i, t := range tr.trades {
		trades[i] = *t
	}

	start := time.Now()
	result := portfolio.ComputePositions(trades, pr.prices, h.engineCfg)
	metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	metrics.ComputedTrades.Observe(float64(len(trades)))

	if h.cache != nil && version >= 0 {
		if err := h.cache.SetPortfolio(ctx, version, &result, h.snapshotTTL); err != nil {
			log.Printf("Warning: failed to cache portfolio snapshot: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// GetAllQuotes handles GET /quotes
func (h *Handler) GetAllQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.store.GetAllQuotes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, quotes)
}

// GetQuote handles GET /quotes/{stockCode}, reading through the price
// cache before hitting the database.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	stockCode := mux.Vars(r)["stockCode"]

	if h.cache != nil {
		price, ok, err := h.cache.GetPrice(r.Context(), stockCode)
		if err != nil {
			log.Printf("Warning: price cache read failed for %s: %v", stockCode, err)
		} else if ok {
			respondJSON(w, http.StatusOK, models.Quote{StockCode: stockCode, Price: price})
			return
		}
	}

	quote, err := h.store.GetQuote(stockCode)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	// Check database
	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// Check Redis
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	// Check Kafka producer
	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// afterMutation bumps the ledger version (invalidating cached snapshots)
// and publishes the mutation event. Both are best effort: the write to the
// ledger already succeeded and must not be reported as failed.
func (h *Handler) afterMutation(ctx context.Context, publish func(context.Context) error) {
	if h.cache != nil {
		if err := h.cache.BumpLedgerVersion(ctx); err != nil {
			log.Printf("Warning: failed to bump ledger version: %v", err)
		}
	}
	if h.producer != nil {
		if err := publish(ctx); err != nil {
			log.Printf("Warning: failed to publish trade event: %v", err)
		}
	}
}

// validateTrade returns an error message for rejectable input, or "".
func validateTrade(t *models.Trade) string {
	if !t.Broker.Valid() {
		return "unknown broker"
	}
	if !t.Type.Valid() {
		return "unknown trade type"
	}
	if t.Type.IsCash() {
		if t.StockCode != "" {
			return "cash trades must not carry a stock code"
		}
	} else if t.StockCode == "" {
		return "stock trades require a stock code"
	}
	if t.Date.IsZero() {
		return "date is required"
	}
	return ""
}

func statusFor(err error) int {
	if errors.Is(err, database.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
