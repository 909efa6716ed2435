package mqtt

import (
	"context"
	"encoding/json"
)

type notification struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Push implements notify.Notifier by publishing on the notify topic.
func (g *Gateway) Push(ctx context.Context, text string) error {
	payload, err := json.Marshal(notification{Text: text, Timestamp: g.now().UnixMilli()})
	if err != nil {
		return err
	}
	return g.publish(ctx, g.cfg.NotifyTopic, g.cfg.qos("notify"), false, payload)
}
