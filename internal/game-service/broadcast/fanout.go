package broadcast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/engine"
	"github.com/radieske/lucky-seven-platform-poc/pkg/contracts/events"
)

// Tipos das mensagens do canal Pub/Sub
const (
	TypeRoundOpened  = "round_opened"
	TypeRoundSettled = "round_settled"
)

// EventPublisher publica os eventos de rodada no bus durável (Kafka)
type EventPublisher interface {
	PublishRoundOpened(ctx context.Context, e events.RoundOpened) error
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
}

// ChannelPublisher publica no canal de fanout em tempo real (Redis Pub/Sub)
type ChannelPublisher interface {
	Publish(ctx context.Context, msgType string, payload any) error
}

// RoundCache derruba a visão cacheada da rodada corrente
type RoundCache interface {
	InvalidateCurrentRound(ctx context.Context) error
}

// Fanout implementa engine.Broadcaster distribuindo cada evento de rodada
// em dois caminhos: Kafka (integração entre serviços, durável) e Redis
// Pub/Sub (fanout em tempo real pro ws-service). Publicação best-effort:
// falha de publicação é logada e não interrompe o ciclo das rodadas.
// A cada transição o cache da rodada corrente é invalidado, senão a API
// reporta betting_open desatualizado até o TTL expirar.
type Fanout struct {
	Kafka EventPublisher
	Redis ChannelPublisher
	Cache RoundCache
	Log   *zap.Logger
}

func (f *Fanout) RoundOpened(ctx context.Context, r *engine.Round) {
	f.invalidate(ctx, r.ID)
	e := events.RoundOpened{RoundID: r.ID, CreatedAt: r.CreatedAt}

	if err := f.Kafka.PublishRoundOpened(ctx, e); err != nil {
		f.Log.Warn("kafka publish round_opened", zap.String("round_id", r.ID), zap.Error(err))
	}
	if err := f.Redis.Publish(ctx, TypeRoundOpened, e); err != nil {
		f.Log.Warn("redis publish round_opened", zap.String("round_id", r.ID), zap.Error(err))
	}
}

func (f *Fanout) RoundSettled(ctx context.Context, r *engine.Round, st *engine.Settlement) {
	f.invalidate(ctx, r.ID)
	e := SettledEvent(r, st)

	if err := f.Kafka.PublishRoundSettled(ctx, e); err != nil {
		f.Log.Warn("kafka publish round_settled", zap.String("round_id", r.ID), zap.Error(err))
	}
	if err := f.Redis.Publish(ctx, TypeRoundSettled, e); err != nil {
		f.Log.Warn("redis publish round_settled", zap.String("round_id", r.ID), zap.Error(err))
	}
}

func (f *Fanout) invalidate(ctx context.Context, roundID string) {
	if f.Cache == nil {
		return
	}
	if err := f.Cache.InvalidateCurrentRound(ctx); err != nil {
		f.Log.Warn("round cache invalidate", zap.String("round_id", roundID), zap.Error(err))
	}
}

// SettledEvent converte o agregado da liquidação no contrato de evento
func SettledEvent(r *engine.Round, st *engine.Settlement) events.RoundSettled {
	e := events.RoundSettled{
		RoundID:     r.ID,
		DieA:        r.DieA,
		DieB:        r.DieB,
		Sum:         r.Sum(),
		LuckySeven:  r.LuckySeven(),
		Results:     make(map[string]events.BetOutcome, len(st.Results)),
		Accounts:    make(map[string]events.AccountSnapshot, len(st.Accounts)),
		TotalStaked: st.TotalStaked,
		TotalPaid:   st.TotalPaid,
		TsUnixMs:    time.Now().UnixMilli(),
	}
	if r.ClosedAt != nil {
		e.ClosedAt = *r.ClosedAt
	}
	for userID, result := range st.Results {
		e.Results[userID] = events.BetOutcome{UserID: userID, Result: string(result)}
	}
	for userID, acct := range st.Accounts {
		e.Accounts[userID] = events.AccountSnapshot{
			UserID:        userID,
			BalanceTokens: acct.BalanceTokens,
			CurrentStreak: acct.CurrentStreak,
			BestStreak:    acct.BestStreak,
		}
	}
	return e
}
