package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Broadcaster publica os eventos de ciclo de vida das rodadas.
// Entrega best-effort/at-most-once; quem perdeu o evento ressincroniza
// pela leitura de rodadas recentes.
type Broadcaster interface {
	RoundOpened(ctx context.Context, r *Round)
	RoundSettled(ctx context.Context, r *Round, st *Settlement)
}

// Scheduler é a autoridade única do ciclo de rodadas: um timer fixo fecha
// a rodada corrente com os dados sorteados, liquida de forma síncrona e só
// então abre a próxima. No máximo uma rodada está em liquidação por vez.
type Scheduler struct {
	Rounds    RoundStore
	Dice      *DiceRoller
	Settler   *Settler
	Broadcast Broadcaster

	Interval time.Duration
	Clock    clockwork.Clock
	Log      *zap.Logger

	OnTick        func() // métricas/sincronização de testes
	OnSettleError func()

	mu      sync.Mutex
	current *Round
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// Start cria imediatamente a rodada #1 (aberta) e arma o timer de ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	first, err := s.openRound(ctx)
	if err != nil {
		return err
	}
	s.current = first

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.started = true

	go s.run(ctx)
	s.Log.Info("round scheduler started",
		zap.String("round_id", first.ID),
		zap.Duration("interval", s.Interval),
	)
	return nil
}

// Stop cancela ticks futuros. Um tick em andamento roda até o fim, pra
// nunca deixar uma rodada liquidada pela metade por causa do shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.Log.Info("round scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	// o cancelamento do shutdown só encerra o loop; as escritas de um tick
	// em andamento rodam num contexto desacoplado, senão o SIGTERM abortaria
	// a liquidação no meio e deixaria apostas PENDING pra sempre
	tickCtx := context.WithoutCancel(ctx)

	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// tick síncrono: a liquidação termina antes do próximo tick ser
			// atendido; se demorar mais que o intervalo, os ticks atrasam
			// mas nunca se sobrepõem
			s.tick(tickCtx)
		}
	}
}

// tick executa uma transição completa: fecha, liquida, publica, reabre.
// Erros são logados e contidos — um bug na liquidação nunca impede a
// criação das rodadas seguintes (fail-open).
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if s.OnTick != nil {
			s.OnTick()
		}
	}()

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil && cur.Status == RoundOpen {
		dieA, dieB, err := s.Dice.Roll()
		if err != nil {
			// sem resultado justo não há fechamento; a rodada continua
			// aberta e o próximo tick tenta de novo
			s.Log.Error("dice roll failed, keeping round open", zap.Error(err))
			return
		}

		closed, err := s.Rounds.CloseRound(ctx, cur.ID, dieA, dieB, s.Clock.Now())
		if err != nil {
			s.Log.Error("round close failed", zap.String("round_id", cur.ID), zap.Error(err))
			return
		}

		s.Log.Info("round closed",
			zap.String("round_id", closed.ID),
			zap.Int("die_a", closed.DieA),
			zap.Int("die_b", closed.DieB),
			zap.Bool("lucky_seven", closed.LuckySeven()),
		)

		st, err := s.Settler.Settle(ctx, closed)
		if err != nil {
			// apostas da rodada podem ficar PENDING pra sempre; aceito em
			// troca de nunca travar o ciclo
			s.Log.Error("settlement failed", zap.String("round_id", closed.ID), zap.Error(err))
			if s.OnSettleError != nil {
				s.OnSettleError()
			}
		}
		s.Broadcast.RoundSettled(ctx, closed, st)

		s.mu.Lock()
		s.current = closed
		s.mu.Unlock()
	}

	next, err := s.openRound(ctx)
	if err != nil {
		// sem rodada aberta o placement rejeita com WindowClosed até o
		// próximo tick conseguir criar uma
		s.Log.Error("round create failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *Scheduler) openRound(ctx context.Context) (*Round, error) {
	r := &Round{
		ID:        uuid.NewString(),
		Status:    RoundOpen,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Rounds.CreateRound(ctx, r); err != nil {
		return nil, err
	}
	s.Broadcast.RoundOpened(ctx, r)
	return r, nil
}
