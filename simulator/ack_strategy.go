package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy defines how the installation acknowledges commands.
type AckStrategy interface {
	Ack(ctx context.Context, cli paho.Client, topic, commandID string, cmdErr error)
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string, cmdErr error) {
	if !sleep(ctx, a.Delay) {
		return
	}
	publishAck(cli, topic, commandID, cmdErr)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string, cmdErr error) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		log.Debugf("dropping ack for %s", commandID)
		return
	}
	if !sleep(ctx, r.Delay) {
		return
	}
	publishAck(cli, topic, commandID, cmdErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

type ackMessage struct {
	CommandID string `json:"command_id"`
	Error     string `json:"error,omitempty"`
}

func publishAck(cli paho.Client, topic, commandID string, cmdErr error) {
	msg := ackMessage{CommandID: commandID}
	if cmdErr != nil {
		msg.Error = cmdErr.Error()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("marshal ack: %v", err)
		return
	}
	token := cli.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Warnf("ack publish timeout for %s", commandID)
		return
	}
	if err := token.Error(); err != nil {
		log.Errorf("publish ack %s: %v", commandID, err)
	}
}
