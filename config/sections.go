package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/smartcharge/core/allocator"
	"github.com/kilianp07/smartcharge/core/demand"
	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/notify"
	"github.com/kilianp07/smartcharge/core/pricing"
	"github.com/kilianp07/smartcharge/infra/pricefeed"
)

// LocationConfig sets the time zone used for clock times and day files.
type LocationConfig struct {
	Timezone string `json:"timezone"`
}

func (c *LocationConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Stockholm"
	}
}

func (c LocationConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	return nil
}

// Load returns the configured location.
func (c LocationConfig) Load() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MarkupConfig turns spot prices into retail prices.
type MarkupConfig struct {
	Factor    *float64 `json:"factor"`
	Surcharge *float64 `json:"surcharge"`
}

// PricingConfig configures the price feed.
type PricingConfig struct {
	Feed            pricefeed.Config `json:"feed"`
	FallbackMinutes int              `json:"fallback_minutes"`
	Markup          MarkupConfig     `json:"markup"`
}

func (c *PricingConfig) SetDefaults() {
	if c.Feed.Zone == "" {
		c.Feed.Zone = "SE3"
	}
	if c.FallbackMinutes <= 0 {
		c.FallbackMinutes = 60
	}
}

func (c PricingConfig) Validate() error {
	switch c.Feed.Zone {
	case "SE1", "SE2", "SE3", "SE4":
		return nil
	}
	return fmt.Errorf("pricing: unknown zone %q", c.Feed.Zone)
}

// Fallback is the assumed length of a price row without an end.
func (c PricingConfig) Fallback() time.Duration {
	return time.Duration(c.FallbackMinutes) * time.Minute
}

// ToMarkup returns the markup, defaulting unset fields.
func (c PricingConfig) ToMarkup() pricing.Markup {
	m := pricing.DefaultMarkup
	if c.Markup.Factor != nil {
		m.Factor = *c.Markup.Factor
	}
	if c.Markup.Surcharge != nil {
		m.Surcharge = *c.Markup.Surcharge
	}
	return m
}

// PlanningConfig holds the demand and window parameters.
type PlanningConfig struct {
	WindowStart      string        `json:"window_start"`
	DefaultDeparture string        `json:"default_departure"`
	MinBlock         time.Duration `json:"min_block"`
	TargetSoC        float64       `json:"target_soc"`
	Efficiency       float64       `json:"efficiency"`
	SmartDefault     *bool         `json:"smart_default"`
	CarSelector      string        `json:"car_selector"`
}

func (c *PlanningConfig) SetDefaults() {
	if c.WindowStart == "" {
		c.WindowStart = "00:00"
	}
	if c.DefaultDeparture == "" {
		c.DefaultDeparture = "08:00"
	}
	if c.MinBlock <= 0 {
		c.MinBlock = 30 * time.Minute
	}
	if c.TargetSoC == 0 {
		c.TargetSoC = demand.DefaultTarget
	}
	if c.Efficiency == 0 {
		c.Efficiency = 0.9
	}
	if c.SmartDefault == nil {
		on := true
		c.SmartDefault = &on
	}
	if c.CarSelector == "" {
		c.CarSelector = "lowest_soc"
	}
}

func (c PlanningConfig) Validate() error {
	var errs []error
	if _, err := model.ParseClock(c.WindowStart); err != nil {
		errs = append(errs, fmt.Errorf("planning.window_start: %w", err))
	}
	if _, err := model.ParseClock(c.DefaultDeparture); err != nil {
		errs = append(errs, fmt.Errorf("planning.default_departure: %w", err))
	}
	if c.TargetSoC <= 0 || c.TargetSoC > 1 {
		errs = append(errs, errors.New("planning.target_soc must be in (0, 1]"))
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		errs = append(errs, errors.New("planning.efficiency must be in (0, 1]"))
	}
	if !slices.Contains(device.Selectors.Names(), c.CarSelector) {
		errs = append(errs, fmt.Errorf("planning.car_selector: unknown %q", c.CarSelector))
	}
	return errors.Join(errs...)
}

// Clocks returns the parsed window start and default departure.
func (c PlanningConfig) Clocks() (start, departure model.Clock) {
	start, _ = model.ParseClock(c.WindowStart)
	departure, _ = model.ParseClock(c.DefaultDeparture)
	return start, departure
}

// GridConfig describes the installation.
type GridConfig struct {
	FuseRating     float64 `json:"fuse_rating"`
	SafetyHeadroom float64 `json:"safety_headroom"`
	Voltage        float64 `json:"voltage"`
}

func (c *GridConfig) SetDefaults() {
	d := allocator.DefaultConfig()
	if c.FuseRating == 0 {
		c.FuseRating = d.FuseRating
	}
	if c.SafetyHeadroom == 0 {
		c.SafetyHeadroom = d.SafetyHeadroom
	}
	if c.Voltage == 0 {
		c.Voltage = 230
	}
}

func (c GridConfig) Validate() error {
	if c.FuseRating <= 0 {
		return errors.New("grid.fuse_rating must be positive")
	}
	if c.Voltage <= 0 {
		return errors.New("grid.voltage must be positive")
	}
	return nil
}

// ChargerConfig describes one charger.
type ChargerConfig struct {
	ID               string  `json:"id"`
	Phases           int     `json:"phases"`
	SinglePhaseFuse  int     `json:"single_phase_fuse"`
	MaxCurrent       float64 `json:"max_current"`
	MinActiveCurrent float64 `json:"min_active_current"`
	Asymmetric       bool    `json:"asymmetric"`
}

func (c *ChargerConfig) SetDefaults() {
	d := allocator.DefaultConfig()
	if c.Phases == 0 {
		c.Phases = d.Phases
	}
	if c.SinglePhaseFuse == 0 {
		c.SinglePhaseFuse = d.SinglePhaseFuse
	}
	if c.MaxCurrent == 0 {
		c.MaxCurrent = d.MaxChargeCurrent
	}
	if c.MinActiveCurrent == 0 {
		c.MinActiveCurrent = d.MinActiveCurrent
	}
}

// Validate checks the charger against the grid it is installed on.
func (c ChargerConfig) Validate(grid GridConfig) error {
	if c.ID == "" {
		return errors.New("charger: id is required")
	}
	if err := c.Allocator(grid).Validate(); err != nil {
		return fmt.Errorf("charger %s: %w", c.ID, err)
	}
	return nil
}

// Allocator returns the allocator parameters of the charger.
func (c ChargerConfig) Allocator(grid GridConfig) allocator.Config {
	return allocator.Config{
		FuseRating:       grid.FuseRating,
		SafetyHeadroom:   grid.SafetyHeadroom,
		MaxChargeCurrent: c.MaxCurrent,
		MinActiveCurrent: c.MinActiveCurrent,
		Phases:           c.Phases,
		SinglePhaseFuse:  c.SinglePhaseFuse,
		Asymmetric:       c.Asymmetric,
	}
}

// MaxPower returns the charger's power ceiling in kW.
func (c ChargerConfig) MaxPower(grid GridConfig) float64 {
	return demand.PowerFromCurrent(c.MaxCurrent, c.Phases, grid.Voltage)
}

// CarConfig describes a car. A zero capacity is read from the
// Car_BatteryCapacity_<id> variable.
type CarConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CapacityKWh float64 `json:"capacity_kwh"`
}

func (c CarConfig) Validate() error {
	if c.ID == "" {
		return errors.New("car: id is required")
	}
	if c.CapacityKWh < 0 {
		return fmt.Errorf("car %s: capacity must not be negative", c.ID)
	}
	return nil
}

// MeterConfig names the installation meter.
type MeterConfig struct {
	ID string `json:"id"`
}

// DevicesConfig overrides attribute and action names.
type DevicesConfig struct {
	Attributes device.Attributes `json:"attributes"`
}

func (c *DevicesConfig) SetDefaults() {
	d := device.DefaultAttributes()
	a := &c.Attributes
	for i := range a.MeterCurrent {
		if a.MeterCurrent[i] == "" {
			a.MeterCurrent[i] = d.MeterCurrent[i]
		}
		if a.ChargerCurrent[i] == "" {
			a.ChargerCurrent[i] = d.ChargerCurrent[i]
		}
	}
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&a.ChargerCeiling, d.ChargerCeiling)
	def(&a.CarConnected, d.CarConnected)
	def(&a.CarBattery, d.CarBattery)
	def(&a.CarChargeState, d.CarChargeState)
	def(&a.ActionStart, d.ActionStart)
	def(&a.ActionStop, d.ActionStop)
	def(&a.ActionSetLimits, d.ActionSetLimits)
}

// ScheduleConfig sets when the cycles run. PlanEvery takes precedence over
// PlanAt when set.
type ScheduleConfig struct {
	PlanAt       string        `json:"plan_at"`
	PlanEvery    time.Duration `json:"plan_every"`
	ExecuteEvery time.Duration `json:"execute_every"`
	BalanceEvery time.Duration `json:"balance_every"`
	RunOnStart   *bool         `json:"run_on_start"`
}

func (c *ScheduleConfig) SetDefaults() {
	if c.PlanAt == "" {
		c.PlanAt = "14:00"
	}
	if c.ExecuteEvery <= 0 {
		c.ExecuteEvery = time.Minute
	}
	if c.BalanceEvery <= 0 {
		c.BalanceEvery = 10 * time.Second
	}
	if c.RunOnStart == nil {
		on := true
		c.RunOnStart = &on
	}
}

func (c ScheduleConfig) Validate() error {
	if c.PlanEvery < 0 {
		return errors.New("schedule.plan_every must not be negative")
	}
	if _, err := model.ParseClock(c.PlanAt); err != nil {
		return fmt.Errorf("schedule.plan_at: %w", err)
	}
	return nil
}

// APIConfig configures the HTTP status server.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

// NotificationsConfig configures push texts.
type NotificationsConfig struct {
	Enabled  *bool           `json:"enabled"`
	Messages notify.Messages `json:"messages"`
}

func (c *NotificationsConfig) SetDefaults() {
	if c.Enabled == nil {
		on := true
		c.Enabled = &on
	}
	c.Messages = c.Messages.WithDefaults()
}
