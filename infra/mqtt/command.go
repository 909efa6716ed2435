package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/smartcharge/core/monitoring"
)

type command struct {
	CommandID string         `json:"command_id"`
	DeviceID  string         `json:"device_id"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

type ack struct {
	CommandID string `json:"command_id"`
	Error     string `json:"error,omitempty"`
}

func (g *Gateway) onAck(_ paho.Client, msg paho.Message) {
	var m ack
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		g.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	g.ackMu.Lock()
	ch, ok := g.ackChans[m.CommandID]
	g.ackMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
	}
	g.logger.Debugf("received ack %s", m.CommandID)
}

// CommandTopic returns the topic commands for deviceID are published on.
func (g *Gateway) CommandTopic(deviceID, action string) string {
	return fmt.Sprintf("%s/%s/command/%s", g.cfg.Prefix, deviceID, action)
}

// Command implements device.State. When an ack timeout is configured the
// call blocks until the device acknowledges the command.
func (g *Gateway) Command(ctx context.Context, deviceID, action string, args map[string]any) error {
	cmdID := uuid.NewString()
	payload, err := json.Marshal(command{
		CommandID: cmdID,
		DeviceID:  deviceID,
		Action:    action,
		Args:      args,
		Timestamp: g.now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	var ch chan ack
	if g.cfg.AckTimeoutMS > 0 {
		ch = make(chan ack, 1)
		g.ackMu.Lock()
		g.ackChans[cmdID] = ch
		g.ackMu.Unlock()
		defer func() {
			g.ackMu.Lock()
			delete(g.ackChans, cmdID)
			g.ackMu.Unlock()
		}()
	}

	topic := g.CommandTopic(deviceID, action)
	if err := g.publish(ctx, topic, g.cfg.qos("command"), false, payload); err != nil {
		monitoring.CaptureException(err, map[string]string{"device_id": deviceID, "action": action, "module": "mqtt"})
		return err
	}
	g.logger.Infof("sent %s %s to %s", action, cmdID, topic)
	if ch == nil {
		return nil
	}
	return g.waitForAck(ctx, cmdID, ch)
}

func (g *Gateway) waitForAck(ctx context.Context, cmdID string, ch <-chan ack) error {
	timer := time.NewTimer(time.Duration(g.cfg.AckTimeoutMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case a := <-ch:
		if a.Error != "" {
			return fmt.Errorf("command %s rejected: %s", cmdID, a.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("command %s: %w", cmdID, ErrAckTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish sends payload with exponential backoff between attempts.
func (g *Gateway) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if g.cli == nil {
		return errors.New("mqtt: not connected")
	}
	backoff := time.Duration(g.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		token := g.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		g.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == g.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return publishErr
}
