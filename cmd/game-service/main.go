package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/broadcast"
	gcache "github.com/radieske/lucky-seven-platform-poc/internal/game-service/cache"
	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/engine"
	ghttp "github.com/radieske/lucky-seven-platform-poc/internal/game-service/http"
	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/repo"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/cache"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/config"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/db"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/kafka"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/logger"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers, um por tópico
	openedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundOpened)
	defer openedWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()
	betPlacedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betPlacedWriter.Close()

	// métricas
	betsAccepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_bets_accepted_total", Help: "apostas aceitas"})
	betsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "game_bets_rejected_total", Help: "apostas rejeitadas por motivo"}, []string{"reason"})
	betsSettled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "game_bets_settled_total", Help: "apostas liquidadas por resultado"}, []string{"result"})
	roundTicks := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_round_ticks_total", Help: "ticks do scheduler de rodadas"})
	settleFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_settlement_failures_total", Help: "liquidações abortadas por erro"})
	tokensStaked := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_tokens_staked_total", Help: "tokens apostados em rodadas liquidadas"})
	tokensPaid := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_tokens_paid_total", Help: "tokens pagos em payouts"})
	settleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "game_settlement_duration_seconds", Help: "duração da liquidação de uma rodada"})
	prometheus.MustRegister(betsAccepted, betsRejected, betsSettled, roundTicks, settleFailures, tokensStaked, tokensPaid, settleDuration)

	repository := repo.NewPostgres(pg)
	roundCache := gcache.New(rdb)

	publisher := &broadcast.KafkaPublisher{
		OpenedWriter:    openedWriter,
		SettledWriter:   settledWriter,
		BetPlacedWriter: betPlacedWriter,
	}
	fanout := &broadcast.Fanout{
		Kafka: publisher,
		Redis: broadcast.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		Cache: roundCache,
		Log:   log,
	}

	clock := clockwork.NewRealClock()

	placer := &engine.Placer{
		Rounds:     repository,
		Bets:       repository,
		Accounts:   repository,
		Window:     cfg.BetWindow,
		MinBet:     cfg.MinBet,
		Clock:      clock,
		Log:        log,
		OnAccepted: betsAccepted.Inc,
		OnRejected: func(reason string) { betsRejected.WithLabelValues(reason).Inc() },
	}

	settler := &engine.Settler{
		Bets:            repository,
		Accounts:        repository,
		LuckyMultiplier: cfg.LuckyMultiplier,
		SafeMultiplier:  cfg.SafeMultiplier,
		Log:             log,
		OnBetSettled:    func(result string) { betsSettled.WithLabelValues(result).Inc() },
		OnSettled: func(staked, paid int64, elapsed time.Duration) {
			tokensStaked.Add(float64(staked))
			tokensPaid.Add(float64(paid))
			settleDuration.Observe(elapsed.Seconds())
		},
	}

	scheduler := &engine.Scheduler{
		Rounds:        repository,
		Dice:          engine.NewDiceRoller(),
		Settler:       settler,
		Broadcast:     fanout,
		Interval:      cfg.RoundInterval,
		Clock:         clock,
		Log:           log,
		OnTick:        roundTicks.Inc,
		OnSettleError: settleFailures.Inc,
	}
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("scheduler start", zap.Error(err))
	}

	// metrics/health em porta separada
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		if err := pg.PingContext(hctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	// HTTP público
	api := ghttp.NewServer(log, repository, placer, roundCache, clock, cfg.BetWindow, cfg.SignupBonus, publisher)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}
	go func() {
		log.Info("game-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// para o ciclo de rodadas antes de derrubar o HTTP: um tick em andamento
	// termina a liquidação, nada fica pela metade
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
