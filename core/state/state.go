// Package state gives typed access to the named variables the cycles share.
//
// Every entity is stored as a string under a fixed name. Reads never fail:
// an absent or unreadable value becomes the documented default and the
// problem is logged. Writes are last-writer-wins.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// Variable names.
const (
	VarPlan      = "ChargePlanJson"
	VarStatus    = "ChargeStatus"
	VarLimits    = "ChargeCurrent"
	VarDeparture = "ChargeDepartureTime"
	VarSmart     = "ChargeSmart"

	carCapacityPrefix = "Car_BatteryCapacity_"
)

// CarCapacityVar returns the variable holding the battery capacity of carID.
func CarCapacityVar(carID string) string {
	return carCapacityPrefix + carID
}

// VariableStore is a string key-value store safe for concurrent use.
type VariableStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

// Store wraps a VariableStore with typed accessors.
type Store struct {
	vars VariableStore
	log  logger.Logger
}

// New creates a Store.
func New(vars VariableStore, log logger.Logger) *Store {
	return &Store{vars: vars, log: logger.OrNop(log)}
}

func (s *Store) get(ctx context.Context, name string) (string, bool) {
	v, ok, err := s.vars.Get(ctx, name)
	if err != nil {
		s.log.Warnf("read %s: %v", name, err)
		return "", false
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Plan returns the persisted plan. ok is false when no usable plan exists.
func (s *Store) Plan(ctx context.Context) (model.ChargePlan, bool) {
	raw, ok := s.get(ctx, VarPlan)
	if !ok {
		return model.ChargePlan{}, false
	}
	var p model.ChargePlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warnf("decode %s: %v", VarPlan, err)
		return model.ChargePlan{}, false
	}
	if p.Empty() {
		return model.ChargePlan{}, false
	}
	return p, true
}

// SavePlan persists p.
func (s *Store) SavePlan(ctx context.Context, p model.ChargePlan) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := s.vars.Set(ctx, VarPlan, string(b)); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// Status returns the persisted status, StatusUnset when absent or unknown.
func (s *Store) Status(ctx context.Context) model.ChargeStatus {
	raw, ok := s.get(ctx, VarStatus)
	if !ok {
		return model.StatusUnset
	}
	st := model.ChargeStatus(strings.TrimSpace(raw))
	if !st.Valid() {
		s.log.Warnf("unknown %s %q", VarStatus, raw)
		return model.StatusUnset
	}
	return st
}

// SetStatus persists st.
func (s *Store) SetStatus(ctx context.Context, st model.ChargeStatus) error {
	if err := s.vars.Set(ctx, VarStatus, string(st)); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// Limits returns the last applied per-phase limits, def when absent.
func (s *Store) Limits(ctx context.Context, def model.ChargerLimit) model.ChargerLimit {
	raw, ok := s.get(ctx, VarLimits)
	if !ok {
		return def
	}
	var l model.ChargerLimit
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		s.log.Warnf("decode %s: %v", VarLimits, err)
		return def
	}
	return l
}

// SaveLimits persists l as {"L1":..,"L2":..,"L3":..}.
func (s *Store) SaveLimits(ctx context.Context, l model.ChargerLimit) error {
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode limits: %w", err)
	}
	if err := s.vars.Set(ctx, VarLimits, string(b)); err != nil {
		return fmt.Errorf("save limits: %w", err)
	}
	return nil
}

// Departure returns the configured departure clock, def when absent or
// malformed.
func (s *Store) Departure(ctx context.Context, def model.Clock) model.Clock {
	raw, ok := s.get(ctx, VarDeparture)
	if !ok {
		return def
	}
	c, err := model.ParseClock(strings.TrimSpace(raw))
	if err != nil {
		s.log.Warnf("%s: %v", VarDeparture, err)
		return def
	}
	return c
}

// SmartCharging returns the smart charging toggle, def when absent.
func (s *Store) SmartCharging(ctx context.Context, def bool) bool {
	raw, ok := s.get(ctx, VarSmart)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.log.Warnf("%s: %v", VarSmart, err)
		return def
	}
	return v
}

// CarCapacity returns the battery capacity in kWh stored for carID.
func (s *Store) CarCapacity(ctx context.Context, carID string) (float64, bool) {
	name := CarCapacityVar(carID)
	raw, ok := s.get(ctx, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		s.log.Warnf("%s: invalid capacity %q", name, raw)
		return 0, false
	}
	return v, true
}

// SetDeparture stores the departure clock.
func (s *Store) SetDeparture(ctx context.Context, c model.Clock) error {
	if err := s.vars.Set(ctx, VarDeparture, c.String()); err != nil {
		return fmt.Errorf("write %s: %w", VarDeparture, err)
	}
	return nil
}

// SetSmartCharging stores the smart charging toggle.
func (s *Store) SetSmartCharging(ctx context.Context, on bool) error {
	if err := s.vars.Set(ctx, VarSmart, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("write %s: %w", VarSmart, err)
	}
	return nil
}
