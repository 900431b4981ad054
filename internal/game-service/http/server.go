package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/dto"
	"github.com/radieske/lucky-seven-platform-poc/internal/game-service/engine"
	"github.com/radieske/lucky-seven-platform-poc/pkg/contracts/events"
)

const (
	defaultRecentRounds   = 5
	defaultLeaderboardTop = 10
	maxListLimit          = 50
	currentRoundTTL       = 2 * time.Second
)

// Store define as leituras e mutações de conta que a API consome do
// repositório, além das stores do engine embutidas no Placer
type Store interface {
	GetOrCreateAccount(ctx context.Context, userID, name string, signupBonus int64) (*engine.Account, error)
	GetAccount(ctx context.Context, userID string) (*engine.Account, error)
	CurrentRound(ctx context.Context) (*engine.Round, error)
	RecentClosedRounds(ctx context.Context, limit int) ([]engine.Round, error)
	BetsForUserByRounds(ctx context.Context, userID string, roundIDs []string) ([]engine.Bet, error)
	Leaderboard(ctx context.Context, limit int) ([]engine.Account, error)
}

// RoundCache é a visão cacheada da rodada corrente
type RoundCache interface {
	GetCurrentRound(ctx context.Context, dst any) (bool, error)
	SetCurrentRound(ctx context.Context, v any, ttl time.Duration) error
}

type Server struct {
	log         *zap.Logger
	repo        Store
	placer      *engine.Placer
	cache       RoundCache
	clock       clockwork.Clock
	window      time.Duration
	signupBonus int64
	publ        interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	}
}

func NewServer(
	log *zap.Logger,
	r Store,
	placer *engine.Placer,
	c RoundCache,
	clock clockwork.Clock,
	window time.Duration,
	signupBonus int64,
	p interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	},
) *Server {
	return &Server{log: log, repo: r, placer: placer, cache: c, clock: clock, window: window, signupBonus: signupBonus, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/accounts", s.createAccount)
	r.Get("/v1/accounts/{id}", s.getAccount)
	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/rounds/current", s.currentRound)
	r.Get("/v1/rounds/recent", s.recentRounds)
	r.Get("/v1/leaderboard", s.leaderboard)
	return r
}

// createAccount cria a conta com o bônus de cadastro; idempotente, repetir
// o POST devolve a conta existente sem novo bônus
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
		return
	}
	if req.Name == "" {
		req.Name = req.UserID
	}

	acct, err := s.repo.GetOrCreateAccount(r.Context(), req.UserID, req.Name, s.signupBonus)
	if err != nil {
		s.log.Error("get or create account", zap.String("user_id", req.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	acct, err := s.repo.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

// placeBet registra a aposta na rodada corrente. Toda rejeição da taxonomia
// sai como resposta estruturada (accepted=false + reason), nunca como 500.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
		return
	}

	bet, acct, err := s.placer.PlaceBet(r.Context(), req.UserID, req.AmountTokens, req.LuckySeven)
	if err != nil {
		writeJSON(w, rejectionStatus(err), dto.PlaceBetResponse{
			Accepted:  false,
			Reason:    engine.ReasonOf(err),
			Retryable: engine.Retryable(err),
		})
		return
	}

	// evento de integração best-effort; a aposta já está aceita
	if perr := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		BetID:        bet.ID,
		UserID:       bet.UserID,
		RoundID:      bet.RoundID,
		AmountTokens: bet.AmountTokens,
		LuckySeven:   bet.LuckySeven,
	}); perr != nil {
		s.log.Warn("publish bet_placed", zap.String("bet_id", bet.ID), zap.Error(perr))
	}

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{
		Accepted:   true,
		BetID:      bet.ID,
		RoundID:    bet.RoundID,
		NewBalance: &acct.BalanceTokens,
	})
}

// rejectionStatus mapeia a taxonomia de erros do placement em status HTTP
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrDuplicateBet),
		errors.Is(err, engine.ErrWindowClosed),
		errors.Is(err, engine.ErrNoActiveRound):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) currentRound(w http.ResponseWriter, r *http.Request) {
	var fromCache dto.CurrentRoundResponse
	if ok, _ := s.cache.GetCurrentRound(r.Context(), &fromCache); ok {
		writeJSON(w, http.StatusOK, fromCache)
		return
	}

	round, err := s.repo.CurrentRound(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNoActiveRound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no round yet"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	// mesmo relógio do scheduler e do placement; relógio de parede aqui
	// divergiria da janela que o placement realmente aplica
	resp := dto.CurrentRoundResponse{
		RoundID:     round.ID,
		Status:      string(round.Status),
		CreatedAt:   round.CreatedAt,
		BettingOpen: engine.CanAcceptBets(round, s.clock.Now(), s.window),
	}
	_ = s.cache.SetCurrentRound(r.Context(), resp, currentRoundTTL)
	writeJSON(w, http.StatusOK, resp)
}

// recentRounds lista as últimas rodadas fechadas; com ?userId anota cada
// rodada com a aposta do usuário, como a tela de histórico espera
func (s *Server) recentRounds(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, "limit", defaultRecentRounds)
	userID := r.URL.Query().Get("userId")

	rounds, err := s.repo.RecentClosedRounds(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	out := make([]dto.RecentRoundResponse, 0, len(rounds))
	byRound := map[string]*engine.Bet{}
	if userID != "" && len(rounds) > 0 {
		ids := make([]string, len(rounds))
		for i, rd := range rounds {
			ids[i] = rd.ID
		}
		bets, err := s.repo.BetsForUserByRounds(r.Context(), userID, ids)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
			return
		}
		for i := range bets {
			byRound[bets[i].RoundID] = &bets[i]
		}
	}

	for i := range rounds {
		rd := &rounds[i]
		item := dto.RecentRoundResponse{
			RoundID:    rd.ID,
			DieA:       rd.DieA,
			DieB:       rd.DieB,
			Sum:        rd.Sum(),
			LuckySeven: rd.LuckySeven(),
			ClosedAt:   rd.ClosedAt,
		}
		if b, ok := byRound[rd.ID]; ok {
			item.MyBet = &dto.MyBet{
				AmountTokens: b.AmountTokens,
				LuckySeven:   b.LuckySeven,
				Result:       string(b.Result),
			}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, "limit", defaultLeaderboardTop)

	accounts, err := s.repo.Leaderboard(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	out := make([]dto.LeaderboardEntry, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		out = append(out, dto.LeaderboardEntry{
			UserID:        a.UserID,
			Name:          a.Name,
			BestStreak:    a.BestStreak,
			CurrentStreak: a.CurrentStreak,
			BalanceTokens: a.BalanceTokens,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func accountResponse(a *engine.Account) dto.AccountResponse {
	return dto.AccountResponse{
		UserID:        a.UserID,
		Name:          a.Name,
		BalanceTokens: a.BalanceTokens,
		CurrentStreak: a.CurrentStreak,
		BestStreak:    a.BestStreak,
	}
}

func queryLimit(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxListLimit {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
