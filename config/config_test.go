package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `location:
  timezone: Europe/Stockholm
pricing:
  feed:
    zone: SE4
  markup:
    factor: 1.0
    surcharge: 0
planning:
  default_departure: "07:30"
  min_block: 45m
  smart_default: false
grid:
  fuse_rating: 20
chargers:
  - id: easee-1
    phases: 1
    single_phase_fuse: 2
cars:
  - id: car-1
    name: Model Y
    capacity_kwh: 75
meter:
  id: pulse
mqtt:
  broker: tcp://localhost:1883
  qos:
    command: 1
store:
  type: sqlite
  conf:
    path: /tmp/smartcharge.db
metrics:
  sinks:
    - type: prometheus
schedule:
  balance_every: 5s
api:
  enabled: true
notifications:
  messages:
    paused: "Paused"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "SE4", cfg.Pricing.Feed.Zone)
	assert.Equal(t, 60*time.Minute, cfg.Pricing.Fallback())
	m := cfg.Pricing.ToMarkup()
	assert.Equal(t, 1.0, m.Factor)
	assert.Equal(t, 0.0, m.Surcharge)

	start, dep := cfg.Planning.Clocks()
	assert.Equal(t, "00:00", start.String())
	assert.Equal(t, "07:30", dep.String())
	assert.Equal(t, 45*time.Minute, cfg.Planning.MinBlock)
	assert.False(t, *cfg.Planning.SmartDefault)
	assert.Equal(t, 0.8, cfg.Planning.TargetSoC)
	assert.Equal(t, "lowest_soc", cfg.Planning.CarSelector)

	require.Len(t, cfg.Chargers, 1)
	ch := cfg.Chargers[0]
	assert.Equal(t, 16.0, ch.MaxCurrent)
	ac := ch.Allocator(cfg.Grid)
	assert.Equal(t, 20.0, ac.FuseRating)
	assert.Equal(t, 4.0, ac.SafetyHeadroom)
	assert.Equal(t, 1, ac.Phases)
	assert.Equal(t, 2, ac.SinglePhaseFuse)
	assert.InDelta(t, 3.68, ch.MaxPower(cfg.Grid), 1e-9)

	assert.Equal(t, 75.0, cfg.Cars[0].CapacityKWh)
	assert.Equal(t, "pulse", cfg.Meter.ID)
	assert.Equal(t, "measure_current.L2", cfg.Devices.Attributes.MeterCurrent[1])
	assert.Equal(t, byte(1), cfg.MQTT.QoS["command"])
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/smartcharge.db", cfg.Store.Conf["path"])
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, 5*time.Second, cfg.Schedule.BalanceEvery)
	assert.Equal(t, time.Minute, cfg.Schedule.ExecuteEvery)
	assert.Equal(t, "14:00", cfg.Schedule.PlanAt)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, ":8080", cfg.API.Address)
	assert.Equal(t, "Paused", cfg.Notifications.Messages.Paused)
	assert.NotEmpty(t, cfg.Notifications.Messages.Started)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "chargers": [{"id": "c1"}],
  "meter": {"id": "m"},
  "grid": {"fuse_rating": 25}
}`)
	t.Setenv("K_GRID__FUSE_RATING", "35")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 35.0, cfg.Grid.FuseRating)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.InDelta(t, 11.04, cfg.Chargers[0].MaxPower(cfg.Grid), 1e-9)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported")

	_, err = Load(writeConfig(t, "config.yaml", "meter:\n  id: m\n"))
	assert.ErrorContains(t, err, "at least one charger")

	_, err = Load(writeConfig(t, "config.yaml", `chargers: [{id: c}]
meter: {id: m}
planning:
  default_departure: "25:00"
  car_selector: random
logging:
  level: loud
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "default_departure")
	assert.ErrorContains(t, err, "car_selector")
	assert.ErrorContains(t, err, "logging")

	_, err = Load(writeConfig(t, "config.yaml", `chargers: [{id: c, min_active_current: 20}]
meter: {id: m}
`))
	assert.ErrorContains(t, err, "charger c")
}
