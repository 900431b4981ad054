package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lucky-seven-platform-poc/internal/shared/config"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/db"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/kafka"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/logger"
	"github.com/radieske/lucky-seven-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/lucky-seven-platform-poc/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres para a trilha de auditoria das liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome round_settled para gravar a auditoria
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRoundSettled, "settlement-audit")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettledDLQ)
		defer dlqWriter.Close()
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_rounds_consumed_total", Help: "eventos round_settled consumidos"})
	audited := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_rounds_written_total", Help: "registros de auditoria gravados"})
	dlqSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_dlq_total", Help: "eventos enviados pra DLQ"})
	prometheus.MustRegister(consumed, audited, dlqSent)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return pg.PingContext(hctx)
	})
	defer metricsSrv.Close()

	log.Info("settlement-audit-worker started", zap.String("consume", cfg.TopicRoundSettled))

	ctx := context.Background()

	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		consumed.Inc()

		var settled ev.RoundSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal round_settled", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
				dlqSent.Inc()
			}
			continue
		}

		if err := auditOne(ctx, pg, &settled); err != nil {
			log.Error("audit round", zap.String("round_id", settled.RoundID), zap.Error(err))
			// Retry simples antes de desistir pra DLQ
			const retries = 3
			for i := 0; i < retries; i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				if err = auditOne(ctx, pg, &settled); err == nil {
					break
				}
			}
			if err != nil {
				if dlqWriter != nil {
					_ = kafka.WriteJSON(ctx, dlqWriter, settled.RoundID, value)
					dlqSent.Inc()
				}
				continue
			}
		}
		audited.Inc()
	}
}

// auditOne grava a linha de auditoria da rodada. Idempotente: round_id é
// chave primária e reentregas do Kafka caem no ON CONFLICT.
func auditOne(ctx context.Context, pg *sql.DB, e *ev.RoundSettled) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO settlement_audit (round_id, die_a, die_b, sum, lucky_seven, bets, total_staked, total_paid, closed_at, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		ON CONFLICT (round_id) DO NOTHING`,
		e.RoundID, e.DieA, e.DieB, e.Sum, e.LuckySeven, len(e.Results), e.TotalStaked, e.TotalPaid, e.ClosedAt,
	)
	return err
}
