// Package status serves the charge plan and live state over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/state"
)

// PriceSource returns price intervals for whole days.
type PriceSource interface {
	Prices(ctx context.Context, days ...time.Time) []model.PricedInterval
}

// Deps are the collaborators of the router.
type Deps struct {
	Store            *state.Store
	Prices           PriceSource
	Metrics          http.Handler
	Chart            func(prices []model.PricedInterval, plan model.ChargePlan) (string, error)
	DefaultDeparture model.Clock
	SmartDefault     bool
	Location         *time.Location
	Log              logger.Logger
	Now              func() time.Time
}

type handler struct {
	deps Deps
	log  logger.Logger
}

// NewRouter returns the HTTP API.
func NewRouter(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	h := &handler{deps: deps, log: logger.OrNop(deps.Log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/plan", h.plan)
		r.Get("/status", h.status)
		r.Get("/limits", h.limits)
		r.Put("/departure", h.setDeparture)
		r.Put("/smart", h.setSmart)
		if deps.Prices != nil {
			r.Get("/prices", h.prices)
			if deps.Chart != nil {
				r.Get("/prices/chart", h.chart)
			}
		}
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
