package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/model"
)

var errNotConnected = errors.New("no car connected")

// Site simulates a home installation: a three phase meter, one charger and
// the car plugged into it.
type Site struct {
	cfg     Config
	attrs   device.Attributes
	battery *Battery

	mu        sync.Mutex
	connected bool
	charging  bool
	limit     model.ChargerLimit
	draw      model.PhaseCurrents
}

// NewSite creates a site with the car plugged in and the charger idle.
func NewSite(cfg Config) *Site {
	maxCur := cfg.MaxCurrent
	return &Site{
		cfg:       cfg,
		attrs:     device.DefaultAttributes(),
		battery:   &Battery{CapacityKWh: cfg.CapacityKWh, Soc: cfg.InitialSoC},
		connected: true,
		limit:     model.ChargerLimit{L1: maxCur, L2: maxCur, L3: maxCur},
	}
}

// Apply executes a charger command.
func (s *Site) Apply(deviceID, action string, args map[string]any) error {
	if deviceID != s.cfg.ChargerID {
		return fmt.Errorf("unknown device %s", deviceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch action {
	case s.attrs.ActionStart:
		if !s.connected {
			return errNotConnected
		}
		s.charging = true
	case s.attrs.ActionStop:
		s.charging = false
	case s.attrs.ActionSetLimits:
		l, err := parseLimit(args)
		if err != nil {
			return err
		}
		s.limit = l
	default:
		return fmt.Errorf("unsupported action %s", action)
	}
	return nil
}

func parseLimit(args map[string]any) (model.ChargerLimit, error) {
	var out [model.Phases]float64
	for i := range out {
		v, ok := args["current"+strconv.Itoa(i+1)].(float64)
		if !ok || v < 0 {
			return model.ChargerLimit{}, fmt.Errorf("invalid current%d", i+1)
		}
		out[i] = v
	}
	return model.ChargerLimit{L1: out[0], L2: out[1], L3: out[2]}, nil
}

// SetConnected plugs the car in or out. Unplugging stops charging.
func (s *Site) SetConnected(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = on
	if !on {
		s.charging = false
	}
}

// Step advances the simulation by dt and returns the charger draw.
func (s *Site) Step(dt time.Duration) model.PhaseCurrents {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draw = model.PhaseCurrents{}
	if !s.connected || !s.charging {
		return s.draw
	}
	limits := [model.Phases]float64{s.limit.L1, s.limit.L2, s.limit.L3}
	phases := s.cfg.Phases
	var sum float64
	var cur [model.Phases]float64
	for i := 0; i < phases; i++ {
		cur[i] = math.Min(limits[i], s.cfg.MaxCurrent)
		sum += cur[i]
	}
	accepted := s.battery.Charge(sum*s.cfg.Voltage/1000, dt)
	if sum > 0 {
		// Taper all phases when the battery accepts less than offered.
		scale := accepted * 1000 / s.cfg.Voltage / sum
		for i := range cur {
			cur[i] *= scale
		}
	}
	s.draw = model.PhaseCurrents{L1: cur[0], L2: cur[1], L3: cur[2]}
	return s.draw
}

// States returns the attribute readings keyed by device and attribute.
func (s *Site) States() map[[2]string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[[2]string]string{}
	draw := [model.Phases]float64{s.draw.L1, s.draw.L2, s.draw.L3}
	for i := 0; i < model.Phases; i++ {
		out[[2]string{s.cfg.MeterID, s.attrs.MeterCurrent[i]}] = num(s.cfg.HouseLoad + draw[i])
		out[[2]string{s.cfg.ChargerID, s.attrs.ChargerCurrent[i]}] = num(draw[i])
	}
	out[[2]string{s.cfg.ChargerID, s.attrs.ChargerCeiling}] = num(s.cfg.Ceiling)
	out[[2]string{s.cfg.ChargerID, s.attrs.CarConnected}] = strconv.FormatBool(s.connected)
	out[[2]string{s.cfg.CarID, s.attrs.CarBattery}] = num(s.battery.Level() * 100)
	state := "plugged_out"
	switch {
	case s.connected && s.charging:
		state = "plugged_in_charging"
	case s.connected:
		state = "plugged_in"
	}
	out[[2]string{s.cfg.CarID, s.attrs.CarChargeState}] = state
	return out
}

func num(v float64) string { return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) }

type commandMessage struct {
	CommandID string         `json:"command_id"`
	DeviceID  string         `json:"device_id"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args"`
}

// Run publishes states every interval and answers commands until ctx is
// cancelled.
func (s *Site) Run(ctx context.Context, cli paho.Client, strat AckStrategy) error {
	prefix := s.cfg.Prefix
	ackTopic := prefix + "/ack"
	acks := make(chan func(), 50)
	go func() {
		for {
			select {
			case f, ok := <-acks:
				if !ok {
					return
				}
				f()
			case <-ctx.Done():
				return
			}
		}
	}()

	onCommand := func(_ paho.Client, msg paho.Message) {
		var m commandMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Warnf("decode command on %s: %v", msg.Topic(), err)
			return
		}
		err := s.Apply(m.DeviceID, m.Action, m.Args)
		log.Infof("command %s %s: err=%v", m.DeviceID, m.Action, err)
		select {
		case acks <- func() { strat.Ack(ctx, cli, ackTopic, m.CommandID, err) }:
		default:
			log.Warnf("ack queue full, dropping command %s", m.CommandID)
		}
	}
	if token := cli.Subscribe(prefix+"/+/command/+", 1, onCommand); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	simulated := time.Duration(float64(s.cfg.Interval) * s.cfg.Speedup)
	s.publish(cli)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step(simulated)
			s.publish(cli)
		}
	}
}

func (s *Site) publish(cli paho.Client) {
	for key, payload := range s.States() {
		topic := strings.Join([]string{s.cfg.Prefix, key[0], key[1]}, "/")
		token := cli.Publish(topic, 1, true, payload)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Errorf("publish %s: %v", topic, token.Error())
		}
	}
}
