package engine

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore implementa RoundStore, BetStore e AccountStore em memória para
// os testes do engine, com as mesmas garantias do storage real: unicidade
// de (user, round) no insert e saldo com piso em zero aplicado sob lock.
type memStore struct {
	mu       sync.Mutex
	rounds   map[string]*Round
	bets     map[string]*Bet
	accounts map[string]*Account

	// falhas injetáveis
	failDebit     error
	failSetResult map[string]error
	deletedBets   []string

	// hook chamado no início de ListBetsByRound (sincronização de testes)
	onListBets func()
}

func newMemStore() *memStore {
	return &memStore{
		rounds:        make(map[string]*Round),
		bets:          make(map[string]*Bet),
		accounts:      make(map[string]*Account),
		failSetResult: make(map[string]error),
	}
}

func (m *memStore) addAccount(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &Account{UserID: userID, Name: userID, BalanceTokens: balance}
}

func (m *memStore) CreateRound(_ context.Context, r *Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rounds[r.ID] = &cp
	return nil
}

func (m *memStore) CloseRound(ctx context.Context, roundID string, dieA, dieB int, closedAt time.Time) (*Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if r.Status != RoundOpen {
		return nil, ErrRoundAlreadyClosed
	}
	r.Status = RoundClosed
	r.DieA, r.DieB = dieA, dieB
	r.ClosedAt = &closedAt
	cp := *r
	return &cp, nil
}

func (m *memStore) CurrentRound(_ context.Context) (*Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Round
	for _, r := range m.rounds {
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNoActiveRound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) CreateBet(_ context.Context, b *Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.bets {
		if other.UserID == b.UserID && other.RoundID == b.RoundID {
			return ErrDuplicateBet
		}
	}
	cp := *b
	m.bets[b.ID] = &cp
	return nil
}

func (m *memStore) DeleteBet(_ context.Context, betID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bets, betID)
	m.deletedBets = append(m.deletedBets, betID)
	return nil
}

// ListBetsByRound respeita o cancelamento do contexto, como database/sql
func (m *memStore) ListBetsByRound(ctx context.Context, roundID string) ([]Bet, error) {
	if m.onListBets != nil {
		m.onListBets()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Bet
	for _, b := range m.bets {
		if b.RoundID == roundID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SetBetResult(ctx context.Context, betID string, result BetResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failSetResult[betID]; ok {
		return err
	}
	b, ok := m.bets[betID]
	if !ok {
		return ErrRoundNotFound
	}
	b.Result = result
	return nil
}

func (m *memStore) GetAccount(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) AdjustBalance(ctx context.Context, userID string, delta int64) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if delta < 0 && m.failDebit != nil {
		return nil, m.failDebit
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if a.BalanceTokens+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	a.BalanceTokens += delta
	cp := *a
	return &cp, nil
}

func (m *memStore) MarkWin(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a.CurrentStreak++
	if a.CurrentStreak > a.BestStreak {
		a.BestStreak = a.CurrentStreak
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) MarkLoss(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a.CurrentStreak = 0
	cp := *a
	return &cp, nil
}

func (m *memStore) betCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bets)
}

func (m *memStore) openRounds() []*Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Round
	for _, r := range m.rounds {
		if r.Status == RoundOpen {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

// recordingBroadcaster captura eventos publicados pelo scheduler
type recordingBroadcaster struct {
	mu      sync.Mutex
	opened  []Round
	settled []settledEvent
}

type settledEvent struct {
	round Round
	st    *Settlement
}

func (b *recordingBroadcaster) RoundOpened(_ context.Context, r *Round) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, *r)
}

func (b *recordingBroadcaster) RoundSettled(_ context.Context, r *Round, st *Settlement) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settled = append(b.settled, settledEvent{round: *r, st: st})
}

func (b *recordingBroadcaster) openedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.opened)
}

func (b *recordingBroadcaster) settledCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.settled)
}
