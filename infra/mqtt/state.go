package mqtt

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// onState stores retained attribute values. An empty payload clears the value.
func (g *Gateway) onState(_ paho.Client, msg paho.Message) {
	deviceID, attr, ok := g.splitTopic(msg.Topic())
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(msg.Payload()) == 0 {
		delete(g.readings[deviceID], attr)
		return
	}
	attrs := g.readings[deviceID]
	if attrs == nil {
		attrs = make(map[string]reading)
		g.readings[deviceID] = attrs
	}
	raw := make([]byte, len(msg.Payload()))
	copy(raw, msg.Payload())
	attrs[attr] = reading{raw: raw, at: g.now()}
}

func (g *Gateway) splitTopic(topic string) (deviceID, attr string, ok bool) {
	rest, found := strings.CutPrefix(topic, g.cfg.Prefix+"/")
	if !found {
		return "", "", false
	}
	deviceID, attr, found = strings.Cut(rest, "/")
	if !found || deviceID == "" || attr == "" || strings.Contains(attr, "/") {
		return "", "", false
	}
	return deviceID, attr, true
}

// raw returns the stored payload, honoring MaxAge.
func (g *Gateway) raw(deviceID, attr string) (string, bool) {
	g.mu.RLock()
	r, ok := g.readings[deviceID][attr]
	g.mu.RUnlock()
	if !ok {
		return "", false
	}
	if g.cfg.MaxAge > 0 && g.now().Sub(r.at) > g.cfg.MaxAge {
		g.logger.Debugf("stale value %s/%s", deviceID, attr)
		return "", false
	}
	return strings.TrimSpace(string(r.raw)), true
}

// Number implements device.State.
func (g *Gateway) Number(_ context.Context, deviceID, attr string) (float64, bool) {
	s, ok := g.raw(deviceID, attr)
	if !ok {
		return 0, false
	}
	if v, err := strconv.ParseFloat(unquote(s), 64); err == nil {
		return v, true
	}
	g.logger.Debugf("non numeric value %s/%s: %q", deviceID, attr, s)
	return 0, false
}

// String implements device.State.
func (g *Gateway) String(_ context.Context, deviceID, attr string) (string, bool) {
	s, ok := g.raw(deviceID, attr)
	if !ok {
		return "", false
	}
	return unquote(s), true
}

// Bool implements device.State.
func (g *Gateway) Bool(_ context.Context, deviceID, attr string) (bool, bool) {
	s, ok := g.raw(deviceID, attr)
	if !ok {
		return false, false
	}
	switch strings.ToLower(unquote(s)) {
	case "on", "yes":
		return true, true
	case "off", "no":
		return false, true
	}
	v, err := strconv.ParseBool(unquote(s))
	if err != nil {
		g.logger.Debugf("non boolean value %s/%s: %q", deviceID, attr, s)
		return false, false
	}
	return v, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' {
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return s
}
