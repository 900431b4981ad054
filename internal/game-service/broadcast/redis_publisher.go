package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Envelope é a mensagem publicada no canal Pub/Sub para o fanout do ws-service
type Envelope struct {
	Type    string          `json:"type"` // "round_opened" | "round_settled"
	Payload json.RawMessage `json:"payload"`
}

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env, _ := json.Marshal(Envelope{Type: msgType, Payload: raw})
	return b.r.Publish(ctx, b.channel, env).Err()
}
