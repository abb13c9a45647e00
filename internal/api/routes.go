package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	// Operational endpoints
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Ledger routes
	api.HandleFunc("/trades", handler.GetAllTrades).Methods("GET")
	api.HandleFunc("/trades", handler.CreateTrade).Methods("POST")
	api.HandleFunc("/trades/{id}", handler.GetTrade).Methods("GET")
	api.HandleFunc("/trades/{id}", handler.UpdateTrade).Methods("PUT")
	api.HandleFunc("/trades/{id}", handler.DeleteTrade).Methods("DELETE")

	// Derived portfolio view
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")

	// Market prices
	api.HandleFunc("/quotes", handler.GetAllQuotes).Methods("GET")
	api.HandleFunc("/quotes/{stockCode}", handler.GetQuote).Methods("GET")

	return r
}
