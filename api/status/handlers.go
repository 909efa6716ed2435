package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

func (h *handler) plan(w http.ResponseWriter, r *http.Request) {
	p, ok := h.deps.Store.Plan(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type statusResponse struct {
	Status        string             `json:"status"`
	SmartCharging bool               `json:"smartCharging"`
	Departure     string             `json:"departure"`
	Limits        model.ChargerLimit `json:"limits"`
	PlanID        string             `json:"planId,omitempty"`
	InSlot        bool               `json:"inSlot"`
	ActiveSlot    *model.PlanSlot    `json:"activeSlot,omitempty"`
	NextSlot      *model.PlanSlot    `json:"nextSlot,omitempty"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.deps.Now()
	resp := statusResponse{
		Status:        h.deps.Store.Status(ctx).String(),
		SmartCharging: h.deps.Store.SmartCharging(ctx, h.deps.SmartDefault),
		Departure:     h.deps.Store.Departure(ctx, h.deps.DefaultDeparture).String(),
		Limits:        h.deps.Store.Limits(ctx, model.ChargerLimit{}),
	}
	if p, ok := h.deps.Store.Plan(ctx); ok {
		resp.PlanID = p.ID
		if s, ok := p.ActiveSlot(now); ok {
			resp.InSlot = true
			resp.ActiveSlot = &s
		}
		for _, s := range p.Slots {
			if s.Start.After(now) {
				s := s
				resp.NextSlot = &s
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) limits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Store.Limits(r.Context(), model.ChargerLimit{}))
}

func (h *handler) setDeparture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Departure string `json:"departure"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	c, err := model.ParseClock(body.Departure)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Store.SetDeparture(r.Context(), c); err != nil {
		h.log.Errorf("set departure: %v", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"departure": c.String()})
}

func (h *handler) setSmart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.deps.Store.SetSmartCharging(r.Context(), *body.Enabled); err != nil {
		h.log.Errorf("set smart charging: %v", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *body.Enabled})
}

// days returns today and tomorrow in the configured location.
func (h *handler) days() []time.Time {
	now := h.deps.Now().In(h.deps.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.deps.Location)
	return []time.Time{today, today.AddDate(0, 0, 1)}
}

func (h *handler) prices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Prices.Prices(r.Context(), h.days()...))
}

func (h *handler) chart(w http.ResponseWriter, r *http.Request) {
	prices := h.deps.Prices.Prices(r.Context(), h.days()...)
	if len(prices) == 0 {
		writeError(w, http.StatusNotFound, "no prices")
		return
	}
	plan, _ := h.deps.Store.Plan(r.Context())
	html, err := h.deps.Chart(prices, plan)
	if err != nil {
		h.log.Errorf("render chart: %v", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
