// Package handler serves the dashboard JSON API: activity pages, derived
// statistics, decoded routes and weather.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stridedash/stridedash/internal/auth"
	"github.com/stridedash/stridedash/internal/auth/middleware"
	"github.com/stridedash/stridedash/internal/feed"
	"github.com/stridedash/stridedash/internal/feed/stats"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/polyline"
	"github.com/stridedash/stridedash/internal/provider"
	"github.com/stridedash/stridedash/internal/utils"
	"github.com/stridedash/stridedash/internal/weather"
	"go.uber.org/zap"
)

// maxPerPage is the provider's page size ceiling.
const maxPerPage = 200

// Handler manages the dashboard API routes.
type Handler struct {
	coordinator *auth.Coordinator
	feed        *feed.Client
	weather     *weather.Client
	labels      map[string]string
}

// NewHandler creates a new dashboard API handler.
func NewHandler(coordinator *auth.Coordinator, feedClient *feed.Client, weatherClient *weather.Client, labels map[string]string) *Handler {
	return &Handler{
		coordinator: coordinator,
		feed:        feedClient,
		weather:     weatherClient,
		labels:      labels,
	}
}

// RegisterRoutes registers the dashboard API routes behind the session
// middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, requireSession func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"GET /api/athlete":               h.handleAthlete,
		"GET /api/activities":            h.handleActivities,
		"GET /api/activities/all":        h.handleAllActivities,
		"GET /api/activities/{id}":       h.handleActivityDetail,
		"GET /api/activities/{id}/route": h.handleActivityRoute,
		"GET /api/stats/summary":         h.handleStatsSummary,
		"GET /api/stats/weekly":          h.handleStatsWeekly,
		"GET /api/stats/monthly":         h.handleStatsMonthly,
		"GET /api/stats/pace":            h.handleStatsPace,
		"GET /api/stats/races":           h.handleStatsRaces,
		"GET /api/stats/types":           h.handleStatsTypes,
		"GET /api/stats/correlation":     h.handleStatsCorrelation,
		"GET /api/weather":               h.handleWeather,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, requireSession(fn))
	}
}

func (h *Handler) handleAthlete(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}
	athlete, err := h.feed.FetchAthlete(r.Context(), token)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, athlete)
}

func (h *Handler) handleActivities(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 30)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	records, err := h.feed.FetchActivities(r.Context(), token, page, perPage)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, records)
}

func (h *Handler) handleAllActivities(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}
	records, err := h.feed.FetchAllActivities(r.Context(), token)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, records)
}

func (h *Handler) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.WriteError(w, "invalid_request", "Activity id must be an integer", http.StatusBadRequest)
		return
	}

	detail, err := h.feed.FetchActivityDetail(r.Context(), token, id)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, detail)
}

func (h *Handler) handleActivityRoute(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.WriteError(w, "invalid_request", "Activity id must be an integer", http.StatusBadRequest)
		return
	}

	detail, err := h.feed.FetchActivityDetail(r.Context(), token, id)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}

	encoded := detail.Polyline
	if encoded == "" {
		encoded = detail.SummaryPolyline
	}
	if encoded == "" {
		utils.WriteError(w, "no_route", "Activity has no route data", http.StatusNotFound)
		return
	}

	points, err := polyline.Decode(encoded)
	if err != nil {
		// Flag the record, do not fail the whole dashboard.
		logger.Warn("malformed route polyline", zap.Int64("activity", id), zap.Error(err))
		utils.WriteError(w, "malformed_polyline", err.Error(), http.StatusUnprocessableEntity)
		return
	}
	utils.WriteJSON(w, points)
}

func (h *Handler) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.Summarize(records)
	})
}

func (h *Handler) handleStatsWeekly(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.WeeklyDistance(records)
	})
}

func (h *Handler) handleStatsMonthly(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.MonthlyDistance(records)
	})
}

func (h *Handler) handleStatsPace(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("type")
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.PaceSeries(records, sport)
	})
}

func (h *Handler) handleStatsRaces(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.RaceEvolution(records)
	})
}

func (h *Handler) handleStatsTypes(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return stats.TypeHistogram(records, h.labels)
	})
}

func (h *Handler) handleStatsCorrelation(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, func(records []feed.ActivityRecord) interface{} {
		return map[string]float64{"distance_pace": stats.DistancePaceCorrelation(records)}
	})
}

func (h *Handler) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	cond, err := h.weather.Current(r.Context(), city)
	if err != nil {
		if errors.Is(err, weather.ErrNoCity) {
			utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, cond)
}

// withHistory fetches the full history and responds with a derived view.
func (h *Handler) withHistory(w http.ResponseWriter, r *http.Request, derive func([]feed.ActivityRecord) interface{}) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}
	records, err := h.feed.FetchAllActivities(r.Context(), token)
	if err != nil {
		h.writeFeedError(w, err)
		return
	}
	utils.WriteJSON(w, derive(records))
}

// accessToken resolves the session and a valid access token, writing the
// error response itself when that fails.
func (h *Handler) accessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, "reauthorization_required", "No session, login at /auth/login", http.StatusUnauthorized)
		return "", false
	}
	token, err := h.coordinator.ValidAccessToken(r.Context(), session)
	if err != nil {
		h.writeFeedError(w, err)
		return "", false
	}
	return token, true
}

func (h *Handler) writeFeedError(w http.ResponseWriter, err error) {
	var rateLimited *provider.RateLimitError
	switch {
	case errors.Is(err, auth.ErrReauthorizationRequired):
		utils.WriteError(w, "reauthorization_required", err.Error(), http.StatusUnauthorized)
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter/time.Second)))
		utils.WriteError(w, "rate_limited", err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		utils.WriteError(w, "upstream_unavailable", err.Error(), http.StatusBadGateway)
	default:
		logger.Error("feed request failed", zap.Error(err))
		utils.WriteError(w, "internal_error", err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
