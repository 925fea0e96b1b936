package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/safenetshield/reportsafe-api/api"
	"github.com/safenetshield/reportsafe-api/config"
)

// MetricsHandler exposes request timing data for the ops dashboard
type MetricsHandler struct{}

// GetMetricsSummary returns the aggregate request counters
func (m MetricsHandler) GetMetricsSummary(w http.ResponseWriter, r *http.Request) {
	metrics := api.GetMetrics()
	summary := metrics.GetSummary()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}

// GetRouteMetrics returns per-route timing, slowest first
func (m MetricsHandler) GetRouteMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := api.GetMetrics()

	// a specific route by exact key
	if route := r.URL.Query().Get("route"); route != "" {
		routeData, exists := metrics.GetRouteMetrics()[route]
		if !exists {
			config.ErrorStatus("route not found", http.StatusNotFound, w, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(routeData)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	slowest := metrics.GetSlowestRoutes(limit, offset)
	total := metrics.GetSlowestRoutesCount()

	response := map[string]interface{}{
		"routes": slowest,
		"pagination": map[string]interface{}{
			"limit":   limit,
			"offset":  offset,
			"total":   total,
			"hasMore": offset+limit < total,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
