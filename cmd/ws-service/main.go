package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/lucky-seven-platform-poc/internal/shared/cache"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/config"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/logger"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/metrics"
	"github.com/radieske/lucky-seven-platform-poc/internal/ws-service/ws"
)

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "conexões WebSocket ativas",
	})
	wsEventsForwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_round_events_forwarded_total",
		Help: "eventos de rodada repassados aos clientes",
	})
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

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	prometheus.MustRegister(wsConnections, wsEventsForwarded)

	// POC: origem liberada; em produção validar contra a lista de domínios
	hub := ws.NewHub(func(*http.Request) bool { return true })
	hub.OnConnect = func() { wsConnections.Inc() }
	hub.OnDisconnect = func() { wsConnections.Dec() }
	hub.OnBroadcast = wsEventsForwarded.Inc

	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return rdb.Ping(hctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: mux,
	}
	go func() {
		log.Info("ws-service listening", zap.String("addr", srv.Addr), zap.String("channel", cfg.RedisPubSubChannel))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ws server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
