package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lucky-seven-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do jogo nos tópicos de integração.
// Um writer por tópico, como os demais producers da plataforma.
type KafkaPublisher struct {
	OpenedWriter    *kafka.Writer
	SettledWriter   *kafka.Writer
	BetPlacedWriter *kafka.Writer
}

func (p *KafkaPublisher) PublishRoundOpened(ctx context.Context, e events.RoundOpened) error {
	b, _ := json.Marshal(e)
	return p.OpenedWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	b, _ := json.Marshal(e)
	return p.SettledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.BetPlacedWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}
