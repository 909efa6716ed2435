package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		Prefix:      "smartcharge",
		ChargerID:   "easee",
		MeterID:     "meter",
		CarID:       "car",
		CapacityKWh: 10,
		InitialSoC:  0.5,
		Phases:      3,
		Voltage:     230,
		MaxCurrent:  16,
		Ceiling:     20,
		HouseLoad:   4,
		Interval:    time.Second,
		Speedup:     1,
	}
}

func TestBatteryCharge(t *testing.T) {
	b := &Battery{CapacityKWh: 10, Soc: 0.5}
	got := b.Charge(5, time.Hour)
	assert.InDelta(t, 5, got, 1e-9)
	assert.InDelta(t, 1, b.Level(), 1e-9)

	assert.Zero(t, b.Charge(5, time.Hour))
	assert.Zero(t, b.Charge(-1, time.Hour))
}

func TestBatteryChargePartial(t *testing.T) {
	b := &Battery{CapacityKWh: 10, Soc: 0.9}
	got := b.Charge(4, time.Hour)
	assert.InDelta(t, 1, got, 1e-9)
	assert.InDelta(t, 1, b.Level(), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.Phases = 2
	cfg.InitialSoC = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phases")
	assert.Contains(t, err.Error(), "initial soc")
}

func TestSiteCommands(t *testing.T) {
	s := NewSite(testConfig())
	require.NoError(t, s.Apply("easee", "start_charging", nil))
	require.NoError(t, s.Apply("easee", "installation_current_control", map[string]any{
		"current1": 10.0, "current2": 8.0, "current3": 6.0,
	}))

	draw := s.Step(time.Minute)
	assert.InDelta(t, 10, draw.L1, 1e-9)
	assert.InDelta(t, 8, draw.L2, 1e-9)
	assert.InDelta(t, 6, draw.L3, 1e-9)

	st := s.States()
	assert.Equal(t, "14", st[[2]string{"meter", "measure_current.L1"}])
	assert.Equal(t, "10", st[[2]string{"easee", "measure_current.phase1"}])
	assert.Equal(t, "20", st[[2]string{"easee", "available_installation_current"}])
	assert.Equal(t, "true", st[[2]string{"easee", "alarm_generic.car_connected"}])
	assert.Equal(t, "plugged_in_charging", st[[2]string{"car", "ev_charging_state"}])

	require.NoError(t, s.Apply("easee", "stop_charging", nil))
	assert.Equal(t, 0.0, s.Step(time.Minute).L1)
}

func TestSiteRejectsInvalidCommands(t *testing.T) {
	s := NewSite(testConfig())
	assert.Error(t, s.Apply("other", "start_charging", nil))
	assert.Error(t, s.Apply("easee", "unlock", nil))
	assert.Error(t, s.Apply("easee", "installation_current_control", map[string]any{"current1": 6.0}))

	s.SetConnected(false)
	assert.ErrorIs(t, s.Apply("easee", "start_charging", nil), errNotConnected)
	assert.Equal(t, "plugged_out", s.States()[[2]string{"car", "ev_charging_state"}])
}

func TestSiteTapersWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.InitialSoC = 1
	s := NewSite(cfg)
	require.NoError(t, s.Apply("easee", "start_charging", nil))
	draw := s.Step(time.Minute)
	assert.Zero(t, draw.L1)
	assert.Equal(t, "100", s.States()[[2]string{"car", "measure_battery"}])
}

type fakeToken struct{ err error }

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type fakeClient struct {
	paho.Client
	mu        sync.Mutex
	published map[string][]byte
}

func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	switch p := payload.(type) {
	case []byte:
		f.published[topic] = p
	case string:
		f.published[topic] = []byte(p)
	}
	return fakeToken{}
}

func TestAutoAckPublishesError(t *testing.T) {
	cli := &fakeClient{}
	AutoAck{}.Ack(context.Background(), cli, "smartcharge/ack", "c1", errors.New("busy"))

	var msg ackMessage
	require.NoError(t, json.Unmarshal(cli.published["smartcharge/ack"], &msg))
	assert.Equal(t, "c1", msg.CommandID)
	assert.Equal(t, "busy", msg.Error)
}

func TestRandomAckDropsEverything(t *testing.T) {
	cli := &fakeClient{}
	RandomAck{DropRate: 1}.Ack(context.Background(), cli, "smartcharge/ack", "c1", nil)
	assert.Empty(t, cli.published)
}

func TestAckCancelledDuringDelay(t *testing.T) {
	cli := &fakeClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	AutoAck{Delay: time.Hour}.Ack(ctx, cli, "smartcharge/ack", "c1", nil)
	assert.Empty(t, cli.published)
}

func TestPublishStates(t *testing.T) {
	cli := &fakeClient{}
	s := NewSite(testConfig())
	s.publish(cli)
	assert.Equal(t, "50", string(cli.published["smartcharge/car/measure_battery"]))
	assert.Equal(t, "4", string(cli.published["smartcharge/meter/measure_current.L3"]))
}
