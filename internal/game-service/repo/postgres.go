package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/engine"
)

// Postgres implementa a persistência de rodadas, apostas e contas em banco
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório do jogo
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const pqUniqueViolation = "23505"

// CreateRound insere uma nova rodada aberta
func (p *Postgres) CreateRound(ctx context.Context, r *engine.Round) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds (id, status, created_at)
		VALUES ($1, 'OPEN', $2)`,
		r.ID, r.CreatedAt,
	)
	return err
}

// CloseRound fecha a rodada com os dados sorteados. O predicado status='OPEN'
// garante que a transição acontece no máximo uma vez mesmo com dois
// schedulers rodando por engano.
func (p *Postgres) CloseRound(ctx context.Context, roundID string, dieA, dieB int, closedAt time.Time) (*engine.Round, error) {
	var createdAt time.Time
	err := p.db.QueryRowContext(ctx, `
		UPDATE rounds SET status='CLOSED', die_a=$2, die_b=$3, closed_at=$4
		WHERE id=$1 AND status='OPEN'
		RETURNING created_at`,
		roundID, dieA, dieB, closedAt,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rounds WHERE id=$1)`, roundID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, engine.ErrRoundNotFound
		}
		return nil, engine.ErrRoundAlreadyClosed
	}
	if err != nil {
		return nil, err
	}
	return &engine.Round{
		ID:        roundID,
		Status:    engine.RoundClosed,
		DieA:      dieA,
		DieB:      dieB,
		CreatedAt: createdAt,
		ClosedAt:  &closedAt,
	}, nil
}

// CurrentRound retorna a rodada mais recente por criação
func (p *Postgres) CurrentRound(ctx context.Context) (*engine.Round, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, status, die_a, die_b, created_at, closed_at
		FROM rounds ORDER BY created_at DESC LIMIT 1`)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoActiveRound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecentClosedRounds retorna as últimas rodadas fechadas, mais recente primeiro
func (p *Postgres) RecentClosedRounds(ctx context.Context, limit int) ([]engine.Round, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, status, die_a, die_b, created_at, closed_at
		FROM rounds WHERE status='CLOSED'
		ORDER BY closed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRound(row rowScanner) (*engine.Round, error) {
	var r engine.Round
	var status string
	var dieA, dieB sql.NullInt64
	var closedAt sql.NullTime
	if err := row.Scan(&r.ID, &status, &dieA, &dieB, &r.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	r.Status = engine.RoundStatus(status)
	if dieA.Valid {
		r.DieA = int(dieA.Int64)
	}
	if dieB.Valid {
		r.DieB = int(dieB.Int64)
	}
	if closedAt.Valid {
		t := closedAt.Time
		r.ClosedAt = &t
	}
	return &r, nil
}

// CreateBet insere uma aposta pendente; a constraint UNIQUE(user_id, round_id)
// do banco fecha a corrida de apostas duplicadas
func (p *Postgres) CreateBet(ctx context.Context, b *engine.Bet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, round_id, amount_tokens, lucky_seven, result, created_at)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)`,
		b.ID, b.UserID, b.RoundID, b.AmountTokens, b.LuckySeven, b.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return engine.ErrDuplicateBet
	}
	return err
}

// DeleteBet remove uma aposta (usado na compensação de débito falho)
func (p *Postgres) DeleteBet(ctx context.Context, betID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM bets WHERE id=$1`, betID)
	return err
}

// ListBetsByRound retorna todas as apostas de uma rodada em ordem estável
func (p *Postgres) ListBetsByRound(ctx context.Context, roundID string) ([]engine.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, round_id, amount_tokens, lucky_seven, result, created_at
		FROM bets WHERE round_id=$1 ORDER BY created_at, id`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBets(rows)
}

// BetsForUserByRounds retorna as apostas de um usuário nas rodadas informadas
func (p *Postgres) BetsForUserByRounds(ctx context.Context, userID string, roundIDs []string) ([]engine.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, round_id, amount_tokens, lucky_seven, result, created_at
		FROM bets WHERE user_id=$1 AND round_id = ANY($2)`,
		userID, pq.Array(roundIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBets(rows)
}

func collectBets(rows *sql.Rows) ([]engine.Bet, error) {
	var out []engine.Bet
	for rows.Next() {
		var b engine.Bet
		var result string
		if err := rows.Scan(&b.ID, &b.UserID, &b.RoundID, &b.AmountTokens, &b.LuckySeven, &result, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Result = engine.BetResult(result)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetBetResult grava o resultado da liquidação de uma aposta
func (p *Postgres) SetBetResult(ctx context.Context, betID string, result engine.BetResult) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bets SET result=$2 WHERE id=$1`, betID, string(result))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrRoundNotFound
	}
	return nil
}

// GetAccount retorna a conta de um usuário
func (p *Postgres) GetAccount(ctx context.Context, userID string) (*engine.Account, error) {
	a, err := scanAccount(p.db.QueryRowContext(ctx, `
		SELECT user_id, name, balance_tokens, current_streak, best_streak, created_at
		FROM accounts WHERE user_id=$1`, userID))
	if err == sql.ErrNoRows {
		return nil, engine.ErrAccountNotFound
	}
	return a, err
}

// GetOrCreateAccount retorna a conta do usuário, criando-a com o bônus de
// cadastro se não existir. Usa transação para garantir atomicidade.
func (p *Postgres) GetOrCreateAccount(ctx context.Context, userID, name string, signupBonus int64) (*engine.Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT user_id, name, balance_tokens, current_streak, best_streak, created_at
		FROM accounts WHERE user_id=$1`, userID))
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (user_id, name, balance_tokens, current_streak, best_streak, created_at)
			VALUES ($1, $2, $3, 0, 0, $4)`,
			userID, name, signupBonus, now); err != nil {
			return nil, err
		}
		a = &engine.Account{UserID: userID, Name: name, BalanceTokens: signupBonus, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// AdjustBalance aplica um delta de saldo em um único UPDATE condicional: o
// predicado balance_tokens + delta >= 0 faz o banco rejeitar débitos que
// deixariam a conta negativa, sem janela de check-then-act
func (p *Postgres) AdjustBalance(ctx context.Context, userID string, delta int64) (*engine.Account, error) {
	a, err := scanAccount(p.db.QueryRowContext(ctx, `
		UPDATE accounts SET balance_tokens = balance_tokens + $2
		WHERE user_id=$1 AND balance_tokens + $2 >= 0
		RETURNING user_id, name, balance_tokens, current_streak, best_streak, created_at`,
		userID, delta))
	if err == sql.ErrNoRows {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id=$1)`, userID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, engine.ErrAccountNotFound
		}
		return nil, engine.ErrInsufficientFunds
	}
	return a, err
}

// MarkWin incrementa o streak atual e atualiza o melhor streak
func (p *Postgres) MarkWin(ctx context.Context, userID string) (*engine.Account, error) {
	a, err := scanAccount(p.db.QueryRowContext(ctx, `
		UPDATE accounts SET
			current_streak = current_streak + 1,
			best_streak = GREATEST(best_streak, current_streak + 1)
		WHERE user_id=$1
		RETURNING user_id, name, balance_tokens, current_streak, best_streak, created_at`,
		userID))
	if err == sql.ErrNoRows {
		return nil, engine.ErrAccountNotFound
	}
	return a, err
}

// MarkLoss zera o streak atual
func (p *Postgres) MarkLoss(ctx context.Context, userID string) (*engine.Account, error) {
	a, err := scanAccount(p.db.QueryRowContext(ctx, `
		UPDATE accounts SET current_streak = 0
		WHERE user_id=$1
		RETURNING user_id, name, balance_tokens, current_streak, best_streak, created_at`,
		userID))
	if err == sql.ErrNoRows {
		return nil, engine.ErrAccountNotFound
	}
	return a, err
}

// Leaderboard retorna as contas com melhor streak, desempatando por saldo
func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]engine.Account, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, name, balance_tokens, current_streak, best_streak, created_at
		FROM accounts
		ORDER BY best_streak DESC, balance_tokens DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Account
	for rows.Next() {
		var a engine.Account
		if err := rows.Scan(&a.UserID, &a.Name, &a.BalanceTokens, &a.CurrentStreak, &a.BestStreak, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(row rowScanner) (*engine.Account, error) {
	var a engine.Account
	if err := row.Scan(&a.UserID, &a.Name, &a.BalanceTokens, &a.CurrentStreak, &a.BestStreak, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
