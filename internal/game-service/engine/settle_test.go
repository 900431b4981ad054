package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestSettler(store *memStore) *Settler {
	return &Settler{
		Bets:            store,
		Accounts:        store,
		LuckyMultiplier: DefaultLuckyMultiplier,
		SafeMultiplier:  DefaultSafeMultiplier,
		Log:             zap.NewNop(),
	}
}

func closedRound(t *testing.T, store *memStore, id string, dieA, dieB int) *Round {
	t.Helper()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &Round{ID: id, Status: RoundOpen, CreatedAt: created}
	if err := store.CreateRound(context.Background(), r); err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	closed, err := store.CloseRound(context.Background(), id, dieA, dieB, created.Add(15*time.Second))
	if err != nil {
		t.Fatalf("CloseRound: %v", err)
	}
	return closed
}

func pendingBet(t *testing.T, store *memStore, id, userID, roundID string, amount int64, lucky bool) {
	t.Helper()
	err := store.CreateBet(context.Background(), &Bet{
		ID: id, UserID: userID, RoundID: roundID,
		AmountTokens: amount, LuckySeven: lucky, Result: BetPending,
	})
	if err != nil {
		t.Fatalf("CreateBet: %v", err)
	}
}

func TestSettleLuckySevenWin(t *testing.T) {
	store := newMemStore()
	// cenário de referência: saldo 100, aposta 50 no seven, já debitada
	store.addAccount("alice", 50)
	round := closedRound(t, store, "r1", 3, 4) // soma 7
	pendingBet(t, store, "b1", "alice", "r1", 50, true)

	st, err := newTestSettler(store).Settle(context.Background(), round)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if st.Results["alice"] != BetWon {
		t.Errorf("result = %s, want WIN", st.Results["alice"])
	}
	acct := st.Accounts["alice"]
	if acct.BalanceTokens != 450 {
		t.Errorf("balance = %d, want 450 (50 + payout 400)", acct.BalanceTokens)
	}
	if acct.CurrentStreak != 1 || acct.BestStreak != 1 {
		t.Errorf("streaks = %d/%d, want 1/1", acct.CurrentStreak, acct.BestStreak)
	}
	if st.TotalStaked != 50 || st.TotalPaid != 400 {
		t.Errorf("staked/paid = %d/%d, want 50/400", st.TotalStaked, st.TotalPaid)
	}
}

func TestSettleLossForfeitsStakeAndResetsStreak(t *testing.T) {
	store := newMemStore()
	store.addAccount("bob", 90)
	store.mu.Lock()
	store.accounts["bob"].CurrentStreak = 3
	store.accounts["bob"].BestStreak = 5
	store.mu.Unlock()

	round := closedRound(t, store, "r1", 2, 3) // soma 5
	pendingBet(t, store, "b1", "bob", "r1", 10, true)

	st, err := newTestSettler(store).Settle(context.Background(), round)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if st.Results["bob"] != BetLost {
		t.Errorf("result = %s, want LOSE", st.Results["bob"])
	}
	acct := st.Accounts["bob"]
	if acct.BalanceTokens != 90 {
		t.Errorf("balance = %d, want 90 (no credit, stake already forfeited)", acct.BalanceTokens)
	}
	if acct.CurrentStreak != 0 {
		t.Errorf("current streak = %d, want 0", acct.CurrentStreak)
	}
	if acct.BestStreak != 5 {
		t.Errorf("best streak = %d, want 5 preserved", acct.BestStreak)
	}
}

func TestSettleSafeSideWin(t *testing.T) {
	store := newMemStore()
	store.addAccount("carol", 0)
	round := closedRound(t, store, "r1", 6, 6) // soma 12
	pendingBet(t, store, "b1", "carol", "r1", 10, false)

	st, err := newTestSettler(store).Settle(context.Background(), round)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if st.Accounts["carol"].BalanceTokens != 20 {
		t.Errorf("balance = %d, want 20 (stake + 1x)", st.Accounts["carol"].BalanceTokens)
	}
}

func TestSettleConservesValue(t *testing.T) {
	store := newMemStore()
	// saldos já refletem o débito do placement
	store.addAccount("alice", 50) // apostou 50 no seven
	store.addAccount("bob", 80)   // apostou 20 contra
	store.addAccount("carol", 95) // apostou 5 no seven

	round := closedRound(t, store, "r1", 5, 2) // soma 7
	pendingBet(t, store, "b1", "alice", "r1", 50, true)
	pendingBet(t, store, "b2", "bob", "r1", 20, false)
	pendingBet(t, store, "b3", "carol", "r1", 5, true)

	st, err := newTestSettler(store).Settle(context.Background(), round)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// total debitado no placement == total creditado ou perdido; nenhum
	// token é criado fora da fórmula de payout
	if st.TotalStaked != 75 {
		t.Errorf("total staked = %d, want 75", st.TotalStaked)
	}
	wantPaid := Payout(50, true, 7, 1) + Payout(5, true, 7, 1) // 400 + 40
	if st.TotalPaid != wantPaid {
		t.Errorf("total paid = %d, want %d", st.TotalPaid, wantPaid)
	}
	if st.Accounts["alice"].BalanceTokens != 450 {
		t.Errorf("alice balance = %d, want 450", st.Accounts["alice"].BalanceTokens)
	}
	if st.Accounts["bob"].BalanceTokens != 80 {
		t.Errorf("bob balance = %d, want 80", st.Accounts["bob"].BalanceTokens)
	}
	if st.Accounts["carol"].BalanceTokens != 135 {
		t.Errorf("carol balance = %d, want 135", st.Accounts["carol"].BalanceTokens)
	}
}

func TestSettleTwiceIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.addAccount("alice", 50)
	round := closedRound(t, store, "r1", 3, 4)
	pendingBet(t, store, "b1", "alice", "r1", 50, true)

	s := newTestSettler(store)
	if _, err := s.Settle(context.Background(), round); err != nil {
		t.Fatalf("first Settle: %v", err)
	}

	st, err := s.Settle(context.Background(), round)
	if err != nil {
		t.Fatalf("second Settle: %v", err)
	}
	if len(st.Results) != 0 {
		t.Errorf("second settle results = %d, want 0 (no-op)", len(st.Results))
	}

	// nunca paga duas vezes
	acct, _ := store.GetAccount(context.Background(), "alice")
	if acct.BalanceTokens != 450 {
		t.Errorf("balance = %d, want 450 after double settle", acct.BalanceTokens)
	}
	if acct.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1 after double settle", acct.CurrentStreak)
	}
}

func TestSettleAbortsBatchOnFailureWithoutRollback(t *testing.T) {
	store := newMemStore()
	store.addAccount("alice", 0)
	store.addAccount("bob", 0)
	store.addAccount("carol", 0)

	round := closedRound(t, store, "r1", 4, 3)
	pendingBet(t, store, "b1", "alice", "r1", 10, true)
	pendingBet(t, store, "b2", "bob", "r1", 10, true)
	pendingBet(t, store, "b3", "carol", "r1", 10, true)

	boom := errors.New("storage down")
	store.failSetResult["b2"] = boom

	st, err := newTestSettler(store).Settle(context.Background(), round)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped storage error", err)
	}
	// agregado vazio no aborto
	if len(st.Results) != 0 || len(st.Accounts) != 0 {
		t.Errorf("aggregate not empty on abort: %d results", len(st.Results))
	}

	// a primeira aposta já aplicada não é desfeita
	alice, _ := store.GetAccount(context.Background(), "alice")
	if alice.BalanceTokens != 80 {
		t.Errorf("alice balance = %d, want 80 (applied update kept)", alice.BalanceTokens)
	}
	// as restantes continuam pendentes
	bets, _ := store.ListBetsByRound(context.Background(), "r1")
	pending := 0
	for _, b := range bets {
		if b.Result == BetPending {
			pending++
		}
	}
	if pending != 2 {
		t.Errorf("pending bets = %d, want 2", pending)
	}
}

func TestSettleRejectsOpenRound(t *testing.T) {
	store := newMemStore()
	r := &Round{ID: "r1", Status: RoundOpen, CreatedAt: time.Now()}
	if err := store.CreateRound(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestSettler(store).Settle(context.Background(), r); err == nil {
		t.Error("Settle on open round: want error, got nil")
	}
}
